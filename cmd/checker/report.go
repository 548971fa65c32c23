package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RishiKendai/textguard/internal/plagiarism"
	"github.com/fatih/color"
)

const ruleWidth = 80

var statusColors = map[plagiarism.Status]*color.Color{
	plagiarism.StatusHigh:    color.New(color.FgRed, color.Bold),
	plagiarism.StatusMedium:  color.New(color.FgYellow),
	plagiarism.StatusLow:     color.New(color.FgCyan),
	plagiarism.StatusMinimal: color.New(color.FgGreen),
}

// formatReport renders the comparison table followed by the summary
func formatReport(report *plagiarism.Report, thresholds plagiarism.Thresholds) string {
	var b strings.Builder
	title := color.New(color.FgWhite, color.Bold)

	b.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	b.WriteString(title.Sprint("PLAGIARISM DETECTION RESULTS") + "\n")
	b.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	fmt.Fprintf(&b, "%-24s %-24s %-12s %-10s %s\n", "File 1", "File 2", "Similarity", "Segments", "Status")
	b.WriteString(strings.Repeat("-", ruleWidth) + "\n")

	for _, r := range report.Comparisons {
		status := string(r.Status)
		if c, ok := statusColors[r.Status]; ok {
			status = c.Sprint(status)
		}
		fmt.Fprintf(&b, "%-24s %-24s %-12s %-10d %s\n",
			truncate(r.File1, 24), truncate(r.File2, 24),
			fmt.Sprintf("%.2f%%", r.SimilarityPercentage), r.CommonSegments, status)
	}

	b.WriteString(strings.Repeat("-", ruleWidth) + "\n")
	fmt.Fprintf(&b, "Method used: %s\n", report.Method)

	s := report.Summary
	b.WriteString("\n" + title.Sprint("SUMMARY") + "\n")
	fmt.Fprintf(&b, "  Files compared:           %d\n", s.TotalFiles)
	fmt.Fprintf(&b, "  Comparisons:              %d\n", s.TotalComparisons)
	fmt.Fprintf(&b, "  Average similarity:       %.2f%%\n", s.AverageSimilarity)
	fmt.Fprintf(&b, "  Highest similarity:       %.2f%%\n", s.HighestSimilarity)
	fmt.Fprintf(&b, "  Suspicious pairs (>=%.0f%%): %d\n", thresholds.Medium, s.SuspiciousPairs)
	fmt.Fprintf(&b, "  High risk pairs (>=%.0f%%):  %d\n", thresholds.High, s.HighRiskPairs)

	if len(report.Excluded) > 0 {
		warn := color.New(color.FgYellow)
		b.WriteString("\n" + warn.Sprint("EXCLUDED") + "\n")
		for _, e := range report.Excluded {
			fmt.Fprintf(&b, "  %s: %s\n", e.DocumentID, e.Reason)
		}
	}

	return b.String()
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// reportFilename names a report report_YYYYMMDD_HHMMSS_<method>.json
func reportFilename(method plagiarism.Method, at time.Time) string {
	return fmt.Sprintf("report_%s_%s.json", at.Format("20060102_150405"), method)
}

func writeReport(report *plagiarism.Report, dir string, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	path := filepath.Join(dir, reportFilename(report.Method, at))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
