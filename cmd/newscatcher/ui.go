package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

var (
	primaryColor = lipgloss.Color("#0969DA")
	accentColor  = lipgloss.Color("#2DA44E")
	warningColor = lipgloss.Color("#D29922")
	errorColor   = lipgloss.Color("#CF222E")
	dimColor     = lipgloss.Color("#6E7681")
	linkColor    = lipgloss.Color("#58A6FF")
	dateColor    = lipgloss.Color("#A371F7")
	sourceColor  = lipgloss.Color("#FFA657")

	headerStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	linkStyle = lipgloss.NewStyle().
			Foreground(linkColor).
			Underline(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(dateColor).
			Italic(true)

	sourceStyle = lipgloss.NewStyle().
			Foreground(sourceColor).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Width(14)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)

func statusStyle(s types.RunStatus) lipgloss.Style {
	switch s {
	case types.RunCompleted:
		return successStyle
	case types.RunCompletedWithErrors:
		return warningStyle
	default:
		return dimStyle
	}
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

// renderRun formats a run summary followed by its log trail.
func renderRun(run *types.ScrapeRun) string {
	elapsed := "running"
	if run.EndTime != nil {
		elapsed = run.EndTime.Sub(run.StartTime).Round(time.Millisecond).String()
	}
	summary := lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("Scrape run "+run.ID),
		row("Status", statusStyle(run.Status).Render(string(run.Status))),
		row("Started", dateStyle.Render(run.StartTime.Format(time.RFC3339))),
		row("Elapsed", elapsed),
		row("Sources", fmt.Sprintf("%d total, %s, %s",
			run.Total,
			successStyle.Render(fmt.Sprintf("%d ok", run.Successful)),
			errorStyle.Render(fmt.Sprintf("%d failed", run.Errors)))),
	)

	var trail []string
	for _, line := range run.Log {
		switch {
		case strings.HasPrefix(line, "✓"):
			trail = append(trail, successStyle.Render(line))
		case strings.HasPrefix(line, "✗"):
			trail = append(trail, errorStyle.Render(line))
		default:
			trail = append(trail, dimStyle.Render(line))
		}
	}
	if len(trail) == 0 {
		return boxStyle.Render(summary)
	}
	return boxStyle.Render(summary) + "\n" + strings.Join(trail, "\n")
}

// renderStats formats the non-zero pipeline counters.
func renderStats(stats map[string]int64) string {
	keys := []string{
		"candidates", "records_stored", "records_duplicate", "records_excluded",
		"records_ungeocoded", "records_dropped", "extract_provider", "extract_heuristic",
		"extract_basic", "extract_failed", "geocode_provider_calls", "geocode_cache_hits",
		"bytes_downloaded",
	}
	lines := []string{headerStyle.Render("Pipeline")}
	for _, k := range keys {
		if v := stats[k]; v > 0 {
			lines = append(lines, row(strings.ReplaceAll(k, "_", " "), fmt.Sprint(v)))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderRecord formats one stored record.
func renderRecord(r *types.NewsRecord) string {
	var b strings.Builder
	b.WriteString(successStyle.Render(r.Title))
	b.WriteString("\n")
	meta := []string{sourceStyle.Render(string(r.Category))}
	if r.Location != "" {
		meta = append(meta, r.Location)
	}
	meta = append(meta,
		fmt.Sprintf("%.4f,%.4f", r.Latitude, r.Longitude),
		dateStyle.Render(r.PublishedAt.Format("2006-01-02 15:04")),
		fmt.Sprintf("confidence %.2f", r.Confidence),
	)
	b.WriteString("  " + strings.Join(meta, dimStyle.Render(" · ")) + "\n")
	if r.Summary != "" {
		b.WriteString("  " + dimStyle.Render(types.Truncate(r.Summary, 160)) + "\n")
	}
	b.WriteString("  " + linkStyle.Render(r.SourceURL))
	return b.String()
}

func renderRecords(records []*types.NewsRecord) string {
	if len(records) == 0 {
		return dimStyle.Render("No records.")
	}
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = renderRecord(r)
	}
	return strings.Join(out, "\n\n")
}

// renderCandidate formats one fetched candidate before extraction.
func renderCandidate(i int, c types.Candidate) string {
	title := c.Title
	if title == "" {
		title = types.Truncate(strings.SplitN(c.Text, "\n", 2)[0], 80)
	}
	line := fmt.Sprintf("%3d. %s", i+1, title)
	if !c.Published.IsZero() {
		line += " " + dateStyle.Render(c.Published.Format("2006-01-02"))
	}
	return line + "\n     " + linkStyle.Render(c.URL)
}

func renderSource(s types.SourceDescriptor) string {
	state := successStyle.Render("active  ")
	if !s.Active {
		state = dimStyle.Render("inactive")
	}
	line := fmt.Sprintf("%s %s %s", state, sourceStyle.Render(s.Name), dimStyle.Render("["+string(s.Category)+"]"))
	if s.Location != "" {
		line += " " + s.Location
	}
	return line + "\n         " + linkStyle.Render(s.URL) + dimStyle.Render("  id="+s.ID)
}
