package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/d00mkeeps/ibhackathon/internal/dataset"
	"github.com/d00mkeeps/ibhackathon/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(22)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	completedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// DisplayWelcomeBanner prints the chat banner.
func DisplayWelcomeBanner(w io.Writer) {
	fmt.Fprintln(w, titleStyle.Render("CARA - Company Analysis & Research Assistant"))
	fmt.Fprintln(w, mutedStyle.Render("Commands: /company NAME, /ticker SYMBOL, /clear, /quit"))
	fmt.Fprintln(w)
}

func renderKV(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label+":"), value)
}

func configured(ok bool) string {
	if ok {
		return completedStyle.Render("configured")
	}
	return warningStyle.Render("not configured")
}

// renderSummary prints per-metric statistics in catalog order.
func renderSummary(w io.Writer, resp *models.DatasetSummaryResponse) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Comparison dataset: %s (%s)", resp.Source, resp.AsOf)))
	if !resp.Success {
		fmt.Fprintln(w, warningStyle.Render(resp.Message))
		return
	}
	renderKV(w, "Companies", fmt.Sprintf("%d", resp.TotalCompanies))
	if len(resp.Tickers) > 0 {
		renderKV(w, "Sample tickers", strings.Join(resp.Tickers, ", "))
	}
	fmt.Fprintln(w)

	for _, m := range dataset.Catalog {
		st, ok := resp.Metrics[m.Key]
		if !ok || st.Count == 0 {
			continue
		}
		renderKV(w, m.Label, fmt.Sprintf("avg %s  median %s  range %s - %s  (n=%d)",
			m.Unit.Format(st.Mean.Decimal), m.Unit.Format(st.Median.Decimal),
			m.Unit.Format(st.Min.Decimal), m.Unit.Format(st.Max.Decimal), st.Count))
	}
}

func renderConversations(w io.Writer, convs []models.Conversation) {
	if len(convs) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No conversations yet."))
		return
	}
	for _, c := range convs {
		fmt.Fprintf(w, "%s  %s  %s\n", mutedStyle.Render(c.CreatedAt), c.ID, c.Name)
	}
}

// renderAttributes prints a company's notes sorted by key.
func renderAttributes(w io.Writer, attrs map[string]any) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		renderKV(w, k, fmt.Sprint(attrs[k]))
	}
}
