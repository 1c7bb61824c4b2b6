package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
)

// summaryStyles holds the lipgloss styles used for the run summary.
type summaryStyles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}

func newSummaryStyles() summaryStyles {
	return summaryStyles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).Width(14),
		Value:   lipgloss.NewStyle().Foreground(lipgloss.Color("#CDD6F4")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#45475A")).
			Padding(0, 1),
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// writeSummaryJSON prints the summary as indented JSON.
func writeSummaryJSON(w io.Writer, s *domain.RunSummary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// renderSummary writes a human-readable summary. styled adds colour and a border.
func renderSummary(w io.Writer, s *domain.RunSummary, styled bool) {
	if s == nil {
		return
	}
	st := newSummaryStyles()
	style := func(ls lipgloss.Style, v string) string {
		if !styled {
			return v
		}
		return ls.Render(v)
	}
	row := func(label, value string) string {
		if !styled {
			return fmt.Sprintf("  %-13s %s", label, value)
		}
		return st.Label.Render(label) + st.Value.Render(value)
	}

	stateStyle := st.Success
	switch {
	case s.State == domain.RunFailed:
		stateStyle = st.Error
	case s.Cancelled:
		stateStyle = st.Warning
	}
	state := s.State.String()
	if s.Cancelled {
		state += " (cancelled)"
	}

	lines := []string{
		style(st.Title, "Run "+s.RunID) + " " + style(stateStyle, state) + " " +
			style(st.Muted, "in "+s.Duration.Round(time.Millisecond).String()),
		row("fetched", fmt.Sprintf("%d (%d malformed)", s.Fetched, s.Malformed)),
		row("enhanced", fmt.Sprintf("%d (%d failed)", s.Enhanced, s.EnhancementFailed)),
		row("classified", fmt.Sprintf("%d (%d unclassified)", s.Classified, s.Unclassified)),
		row("rejected", fmt.Sprintf("%d%s", s.TotalRejected(), formatCounts(s.Rejected))),
		row("emitted", fmt.Sprintf("%d (%.0f%%)", s.Emitted, s.SuccessRate()*100)),
		row("avg quality", fmt.Sprintf("%.2f", s.AverageQuality)),
	}
	if len(s.Categories) > 0 {
		lines = append(lines, row("categories", formatHistogram(s.Categories)))
	}
	if len(s.SourceErrors) > 0 {
		lines = append(lines, row("source errors", style(st.Warning, formatHistogram(s.SourceErrors))))
	}
	if s.OutputPath != "" {
		lines = append(lines, row("output", s.OutputPath))
	}
	if s.Error != "" {
		lines = append(lines, row("error", style(st.Error, s.Error)))
	}

	body := strings.Join(lines, "\n")
	if styled {
		body = st.Box.Render(body)
	}
	fmt.Fprintln(w, body)
}

// formatCounts renders " (a 1, b 2)" sorted by key, or "" when all counts are zero.
func formatCounts[K ~string](m map[K]int) string {
	keys := make([]string, 0, len(m))
	for k, n := range m {
		if n > 0 {
			keys = append(keys, string(k))
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %d", k, m[K(k)])
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

// formatHistogram renders "a 3, b 1" by count descending then key.
func formatHistogram[K ~string](m map[K]int) string {
	type entry struct {
		key string
		n   int
	}
	entries := make([]entry, 0, len(m))
	for k, n := range m {
		entries = append(entries, entry{string(k), n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].n != entries[j].n {
			return entries[i].n > entries[j].n
		}
		return entries[i].key < entries[j].key
	})
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s %d", e.key, e.n)
	}
	return strings.Join(parts, ", ")
}
