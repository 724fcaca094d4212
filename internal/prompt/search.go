package prompt

import (
	"fmt"
	"strings"

	"github.com/d00mkeeps/ibhackathon/models"
)

const (
	NoSearchContext = "No current search context available"
	NoSearchName    = "No company name available for search"
)

// SearchQuery is the web query issued for a company.
func SearchQuery(name string) string {
	return fmt.Sprintf("%s stock news earnings recent", strings.TrimSpace(name))
}

// SearchResult is the outcome of the live lookups for one turn.
type SearchResult struct {
	Snippet string
	Err     error
	// Quote is an optional live price line.
	Quote string
}

// SearchContext turns a search outcome into prompt text. It never fails.
func SearchContext(company *models.Company, res SearchResult) string {
	if company == nil {
		return NoSearchContext
	}
	name := strings.TrimSpace(company.Name)
	if name == "" {
		return NoSearchName
	}

	var text string
	if res.Err != nil || strings.TrimSpace(res.Snippet) == "" {
		text = fmt.Sprintf("Search temporarily unavailable for %s", name)
	} else {
		text = fmt.Sprintf("Recent market information for %s:\n%s", name, strings.TrimSpace(res.Snippet))
	}
	if res.Quote != "" {
		text += "\n" + res.Quote
	}
	return text
}
