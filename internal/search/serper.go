package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const serperBaseURL = "https://google.serper.dev"

// SerperClient queries the Serper Google Search API.
type SerperClient struct {
	client  *resty.Client
	apiKey  string
	results int
}

func NewSerperClient(apiKey string, opts ...Option) *SerperClient {
	o := applyOptions(serperBaseURL, opts)

	client := resty.New()
	client.SetBaseURL(o.baseURL)
	client.SetTimeout(15 * time.Second)

	return &SerperClient{
		client:  client,
		apiKey:  apiKey,
		results: o.results,
	}
}

type serperResponse struct {
	AnswerBox *struct {
		Answer             string   `json:"answer"`
		Snippet            string   `json:"snippet"`
		SnippetHighlighted []string `json:"snippetHighlighted"`
	} `json:"answerBox"`
	KnowledgeGraph *struct {
		Title       string            `json:"title"`
		Type        string            `json:"type"`
		Description string            `json:"description"`
		Attributes  map[string]string `json:"attributes"`
	} `json:"knowledgeGraph"`
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (c *SerperClient) Search(ctx context.Context, query string) (string, error) {
	if c.apiKey == "" {
		return "", ErrSearchUnavailable
	}
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("X-API-KEY", c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"q":   query,
			"num": c.results,
			"gl":  "us",
			"hl":  "en",
		}).
		Post("/search")
	if err != nil {
		return "", fmt.Errorf("%w: serper request: %v", ErrSearchUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("%w: serper status %d", ErrSearchUnavailable, resp.StatusCode())
	}

	var parsed serperResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", fmt.Errorf("%w: decode serper response: %v", ErrSearchUnavailable, err)
	}
	snippets := parsed.snippets(c.results)
	if len(snippets) == 0 {
		return "", fmt.Errorf("%w: no results for %q", ErrSearchUnavailable, query)
	}
	return strings.Join(snippets, " "), nil
}

// snippets prefers a direct answer, then knowledge-graph facts, then organic
// result snippets.
func (r *serperResponse) snippets(k int) []string {
	if box := r.AnswerBox; box != nil {
		switch {
		case box.Answer != "":
			return []string{box.Answer}
		case box.Snippet != "":
			return []string{strings.ReplaceAll(box.Snippet, "\n", " ")}
		case len(box.SnippetHighlighted) > 0:
			return box.SnippetHighlighted
		}
	}

	var out []string
	if kg := r.KnowledgeGraph; kg != nil {
		if kg.Title != "" && kg.Type != "" {
			out = append(out, fmt.Sprintf("%s: %s.", kg.Title, kg.Type))
		}
		if kg.Description != "" {
			out = append(out, kg.Description)
		}
		attrs := make([]string, 0, len(kg.Attributes))
		for attr := range kg.Attributes {
			attrs = append(attrs, attr)
		}
		sort.Strings(attrs)
		for _, attr := range attrs {
			out = append(out, fmt.Sprintf("%s %s: %s.", kg.Title, attr, kg.Attributes[attr]))
		}
	}
	for i, res := range r.Organic {
		if i >= k {
			break
		}
		if res.Snippet != "" {
			out = append(out, res.Snippet)
		}
	}
	return out
}
