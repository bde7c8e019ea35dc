package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vinayprograms/recoverkit/memory"
	"github.com/vinayprograms/recoverkit/state"
)

// statusRow is one tracked signature as shown by stats and watch.
type statusRow struct {
	Signature string
	Category  string
	Tool      string
	Phase     int
	Attempts  int
	Limit     int
	Total     int
	Last      time.Time
}

// renderStatus draws the phase summary followed by one row per signature.
func renderStatus(stats state.Stats, rows []statusRow, now time.Time) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Retry state"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%d tracked  ", stats.Total)
	for p := state.MinPhase; p <= state.MaxPhase; p++ {
		b.WriteString(phaseStyles[p].Render(fmt.Sprintf("phase %d: %d", p, stats.ByPhase[p])))
		b.WriteString("  ")
	}
	b.WriteString("\n")

	if len(rows) == 0 {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("No failing signatures."))
		b.WriteString("\n")
		return b.String()
	}

	headers := []string{"SIGNATURE", "CATEGORY", "TOOL", "PHASE", "ATTEMPTS", "TOTAL", "LAST"}
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		limit := "-"
		if r.Limit > 0 {
			limit = fmt.Sprintf("%d", r.Limit)
		}
		cells = append(cells, []string{
			r.Signature,
			orDash(r.Category),
			orDash(r.Tool),
			fmt.Sprintf("%d/3", r.Phase),
			fmt.Sprintf("%d/%s", r.Attempts, limit),
			fmt.Sprintf("%d", r.Total),
			since(now, r.Last),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range cells {
		for i, c := range row {
			if len(c) > widths[i] {
				widths[i] = len(c)
			}
		}
	}

	b.WriteString("\n")
	line := make([]string, len(headers))
	for i, h := range headers {
		line[i] = cellStyle.Width(widths[i] + 2).Render(headerStyle.Render(h))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, line...))
	b.WriteString("\n")

	for ri, row := range cells {
		for i, c := range row {
			style := cellStyle.Width(widths[i] + 2)
			if i == 3 {
				if ps, ok := phaseStyles[rows[ri].Phase]; ok {
					c = ps.Render(c)
				}
			}
			line[i] = style.Render(c)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, line...))
		b.WriteString("\n")
	}
	return b.String()
}

// renderResults draws failure search hits.
func renderResults(query string, results []memory.SearchResult) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Failures matching %q", query)))
	b.WriteString("\n")
	if len(results) == 0 {
		b.WriteString(mutedStyle.Render("No recorded failures."))
		b.WriteString("\n")
		return b.String()
	}
	for _, r := range results {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render(fmt.Sprintf("%s: %s", r.Date, r.Category)))
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  score %.2f", r.Score)))
		b.WriteString("\n")
		fmt.Fprintf(&b, "  What: %s\n", r.What)
		fmt.Fprintf(&b, "  Reason: %s\n", r.Reason)
		fmt.Fprintf(&b, "  Suggestion: %s\n", r.Suggestion)
		fmt.Fprintf(&b, "  Signature: %s\n", r.Signature)
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// since formats the age of t relative to now.
func since(now, t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
