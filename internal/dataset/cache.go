package dataset

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/d00mkeeps/ibhackathon/models"
)

// Loader fetches every dataset row in load order.
type Loader interface {
	ListDatasetRows(ctx context.Context) ([]models.DatasetRow, error)
}

// Snapshot is an immutable view of the dataset and the summary computed
// from it. A nil or empty Snapshot means the dataset is unavailable.
type Snapshot struct {
	records []models.DatasetRecord
	names   []string
	summary models.DatasetSummary
}

func NewSnapshot(records []models.DatasetRecord) *Snapshot {
	s := &Snapshot{
		records: records,
		names:   make([]string, len(records)),
		summary: Summarize(records),
	}
	for i := range records {
		s.names[i] = normalizeName(records[i].Name)
	}
	return s
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

func (s *Snapshot) Empty() bool { return s.Len() == 0 }

func (s *Snapshot) Summary() models.DatasetSummary {
	if s == nil {
		return models.DatasetSummary{Metrics: map[string]models.MetricStats{}}
	}
	return s.summary
}

// LookupByTicker matches the ticker exactly, ignoring case.
func (s *Snapshot) LookupByTicker(ticker string) *models.DatasetRecord {
	t := strings.TrimSpace(ticker)
	if s == nil || t == "" {
		return nil
	}
	for i := range s.records {
		if strings.EqualFold(s.records[i].Ticker, t) {
			return &s.records[i]
		}
	}
	return nil
}

// FindByName returns the first record, in load order, whose normalized name
// contains or is contained in the normalized query.
func (s *Snapshot) FindByName(name string) *models.DatasetRecord {
	q := normalizeName(name)
	if s == nil || q == "" {
		return nil
	}
	for i, candidate := range s.names {
		if candidate == "" {
			continue
		}
		if strings.Contains(candidate, q) || strings.Contains(q, candidate) {
			return &s.records[i]
		}
	}
	return nil
}

// Tickers returns up to n tickers in load order, "N/A" for blanks.
func (s *Snapshot) Tickers(n int) []string {
	if s == nil {
		return nil
	}
	if n <= 0 || n > len(s.records) {
		n = len(s.records)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = s.records[i].Ticker
		if out[i] == "" {
			out[i] = "N/A"
		}
	}
	return out
}

func normalizeName(name string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Cache loads the dataset once and hands the same Snapshot to every caller.
type Cache struct {
	loader Loader
	log    *logrus.Entry

	mu   sync.Mutex
	snap *Snapshot
}

func NewCache(loader Loader, log *logrus.Entry) *Cache {
	if log == nil {
		log = logrus.WithField("component", "dataset")
	}
	return &Cache{loader: loader, log: log}
}

// Snapshot returns the memoized snapshot, loading it on first use. A failed
// or empty load yields an empty snapshot and is retried on the next call.
func (c *Cache) Snapshot(ctx context.Context) *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap != nil {
		return c.snap
	}
	if c.loader == nil {
		return NewSnapshot(nil)
	}

	rows, err := c.loader.ListDatasetRows(ctx)
	if err != nil {
		c.log.WithError(err).Warn("dataset unavailable")
		return NewSnapshot(nil)
	}
	records := make([]models.DatasetRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, ParseRow(row))
	}
	snap := NewSnapshot(records)
	if snap.Empty() {
		c.log.Warn("dataset is empty")
		return snap
	}
	c.log.WithField("companies", snap.Len()).Info("dataset loaded")
	c.snap = snap
	return snap
}

// Invalidate drops the memoized snapshot. Snapshots already handed out are
// unaffected.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}
