package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"budget/internal/core"
	"budget/internal/metrics"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	incomeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#2e7d32"))
	expenseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#c62828"))
)

// table writes tab separated rows under a styled header and a dashed rule.
type table struct {
	w *tabwriter.Writer
}

func newTable(out io.Writer, headers ...string) *table {
	t := &table{w: tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)}

	styled := make([]string, len(headers))
	rules := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = headerStyle.Render(h)
		rules[i] = strings.Repeat("-", max(len(h), 4))
	}
	fmt.Fprintln(t.w, strings.Join(styled, "\t"))
	fmt.Fprintln(t.w, strings.Join(rules, "\t"))
	return t
}

func (t *table) row(cols ...any) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(t.w, strings.Join(parts, "\t"))
}

func (t *table) flush() error {
	return t.w.Flush()
}

func swatch(color string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("■") + " " + color
}

func typeLabel(t core.CategoryType) string {
	if t == core.Income {
		return incomeStyle.Render(t.String())
	}
	return expenseStyle.Render(t.String())
}

func orMuted(s *string, fallback string) string {
	if s == nil {
		return mutedStyle.Render(fallback)
	}
	return *s
}

func printStats(out io.Writer, m *metrics.Metrics) error {
	s, err := m.Snapshot()
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	t := newTable(out, "Counter", "Value")
	t.row("storage ok", s.StorageOK)
	t.row("storage errors", s.StorageErrors)
	t.row("summary cache hits", s.CacheHits)
	t.row("summary cache misses", s.CacheMisses)
	t.row("summary cache hit rate", fmt.Sprintf("%.0f%%", s.HitRate()*100))
	t.row("events published", s.EventsOK)
	t.row("events failed", s.EventsFailed)
	return t.flush()
}
