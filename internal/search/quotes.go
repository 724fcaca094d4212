package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"
)

// Quoter returns a one-line live price summary for a ticker.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (string, error)
}

// YahooQuoter reads quotes from Yahoo Finance.
type YahooQuoter struct {
	get func(symbol string) (*finance.Quote, error)
}

func NewYahooQuoter() *YahooQuoter {
	return &YahooQuoter{get: quote.Get}
}

func (q *YahooQuoter) Quote(ctx context.Context, symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", fmt.Errorf("symbol is required")
	}

	type result struct {
		q   *finance.Quote
		err error
	}
	ch := make(chan result, 1)
	go func() {
		fq, err := q.get(symbol)
		ch <- result{fq, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return "", fmt.Errorf("quote %s: %w", symbol, r.err)
		}
		if r.q == nil {
			return "", fmt.Errorf("quote %s: not found", symbol)
		}
		return formatQuote(symbol, r.q), nil
	}
}

func formatQuote(symbol string, fq *finance.Quote) string {
	name := symbol
	if fq.ShortName != "" {
		name = fmt.Sprintf("%s (%s)", symbol, fq.ShortName)
	}
	currency := fq.CurrencyID
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("Latest quote for %s: %.2f %s (%+.2f%% today)",
		name, fq.RegularMarketPrice, currency, fq.RegularMarketChangePercent)
}
