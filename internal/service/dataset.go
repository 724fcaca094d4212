package service

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/d00mkeeps/ibhackathon/internal/dataset"
	"github.com/d00mkeeps/ibhackathon/internal/prompt"
	"github.com/d00mkeeps/ibhackathon/models"
)

type DatasetStore interface {
	ReplaceDataset(ctx context.Context, rows []models.DatasetRow) (int, error)
}

type SnapshotCache interface {
	Snapshot(ctx context.Context) *dataset.Snapshot
	Invalidate()
}

// DatasetService imports the comparison dataset and reports on it.
type DatasetService struct {
	store      DatasetStore
	cache      SnapshotCache
	provenance prompt.Provenance
	log        *logrus.Entry
}

func NewDatasetService(store DatasetStore, cache SnapshotCache, prov prompt.Provenance, log *logrus.Entry) *DatasetService {
	if log == nil {
		log = logrus.WithField("component", "dataset_service")
	}
	return &DatasetService{store: store, cache: cache, provenance: prov, log: log}
}

// Import replaces the stored dataset with the rows of a CSV file. Sessions
// that already hold a snapshot keep it.
func (s *DatasetService) Import(ctx context.Context, r io.Reader) (int, error) {
	rows, err := dataset.ReadCSV(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	n, err := s.store.ReplaceDataset(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("replace dataset: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate()
	}
	s.log.WithField("companies", n).Info("dataset imported")
	return n, nil
}

func (s *DatasetService) Summary(ctx context.Context) *models.DatasetSummaryResponse {
	snap := s.cache.Snapshot(ctx)
	if snap.Empty() {
		return &models.DatasetSummaryResponse{
			Success: false,
			Source:  s.provenance.Source,
			AsOf:    s.provenance.AsOf,
			Message: prompt.DatasetUnavailable,
			Metrics: map[string]models.MetricStats{},
		}
	}
	sum := snap.Summary()
	return &models.DatasetSummaryResponse{
		Success:        true,
		Source:         s.provenance.Source,
		AsOf:           s.provenance.AsOf,
		TotalCompanies: sum.TotalCompanies,
		Metrics:        sum.Metrics,
		Tickers:        snap.Tickers(10),
	}
}
