package search

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const googleNewsBaseURL = "https://news.google.com"

// GoogleNewsClient reads the public Google News RSS search feed. It needs no
// credential.
type GoogleNewsClient struct {
	client  *resty.Client
	results int
}

func NewGoogleNewsClient(opts ...Option) *GoogleNewsClient {
	o := applyOptions(googleNewsBaseURL, opts)

	client := resty.New()
	client.SetBaseURL(o.baseURL)
	client.SetTimeout(15 * time.Second)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; cara/1.0)")

	return &GoogleNewsClient{client: client, results: o.results}
}

func (c *GoogleNewsClient) Search(ctx context.Context, query string) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":    query,
			"hl":   "en-US",
			"gl":   "US",
			"ceid": "US:en",
		}).
		Get("/rss/search")
	if err != nil {
		return "", fmt.Errorf("%w: google news request: %v", ErrSearchUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("%w: google news status %d", ErrSearchUnavailable, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return "", fmt.Errorf("%w: parse google news feed: %v", ErrSearchUnavailable, err)
	}

	var lines []string
	doc.Find("item").EachWithBreak(func(i int, s *goquery.Selection) bool {
		title := strings.TrimSpace(s.Find("title").First().Text())
		if title == "" {
			return true
		}
		line := "- " + title
		if date := strings.TrimSpace(s.Find("pubdate").First().Text()); date != "" {
			line += " (" + date + ")"
		}
		lines = append(lines, line)
		return len(lines) < c.results
	})
	if len(lines) == 0 {
		return "", fmt.Errorf("%w: no news for %q", ErrSearchUnavailable, query)
	}
	return strings.Join(lines, "\n"), nil
}
