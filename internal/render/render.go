// Package render draws the CLI report for a blueprint: a set of styled
// cards summarizing the project star, per-altitude completeness, and the
// doctrine check results.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"canopy/internal/blueprint"
	"canopy/internal/doctrine"
	"canopy/internal/jsontree"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	cardStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2a3850")).
			Padding(0, 1).
			Width(58)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4db6ac"))
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
)

// altitudeOrder fixes the card order for the planning tiers.
var altitudeOrder = []struct {
	level string
	label string
}{
	{"30000", "30,000 ft — Strategic Vision"},
	{"20000", "20,000 ft — System Architecture"},
	{"10000", "10,000 ft — Implementation"},
	{"5000", "5,000 ft — Tactical Execution"},
}

// Report renders the full card stack for a validated blueprint.
func Report(doc map[string]any, result blueprint.ValidationResult) string {
	cards := []string{
		starCard(doc),
		altitudeCard(doc),
		doctrineCard(result),
		validationCard(result),
	}
	return strings.Join(cards, "\n") + "\n"
}

// starCard shows project identity and version stamp.
func starCard(doc map[string]any) string {
	project := jsontree.GetString(doc, "altitudes.30000.project_name", "")
	if project == "" {
		project = jsontree.GetString(doc, "project_slug", "(unnamed)")
	}
	objective := jsontree.GetString(doc, "altitudes.30000.objective", "(no objective)")
	version := jsontree.GetString(doc, "meta.blueprint_version_hash", "unstamped")

	var b strings.Builder
	b.WriteString(titleStyle.Render(project) + "\n")
	b.WriteString(objective + "\n")
	b.WriteString(labelStyle.Render("version ") + version)
	return cardStyle.Render(b.String())
}

// altitudeCard shows one completeness bar per planning tier.
func altitudeCard(doc map[string]any) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Altitudes") + "\n")
	for i, tier := range altitudeOrder {
		if i > 0 {
			b.WriteString("\n")
		}
		score := jsontree.ScoreNode(jsontree.GetMap(doc, "altitudes."+tier.level))
		b.WriteString(fmt.Sprintf("%-34s %s", tier.label, bar(score.Percent())))
	}
	return cardStyle.Render(b.String())
}

// doctrineCard lists each doctrine check with a pass/fail mark, in table
// order so the output is stable.
func doctrineCard(result blueprint.ValidationResult) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Doctrine") + "\n")
	for i, check := range doctrine.Checks {
		if i > 0 {
			b.WriteString("\n")
		}
		mark := passStyle.Render("✓")
		if !result.Checks[check.Name] {
			mark = failStyle.Render("✗")
		}
		b.WriteString(fmt.Sprintf("%s %s", mark, check.Name))
	}
	return cardStyle.Render(b.String())
}

// validationCard summarizes errors, warnings, and overall completeness.
func validationCard(result blueprint.ValidationResult) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Validation") + "\n")
	b.WriteString(fmt.Sprintf("completeness %s\n", bar(result.Completeness)))
	if result.Valid {
		b.WriteString(passStyle.Render("valid") + "\n")
	} else {
		b.WriteString(failStyle.Render(fmt.Sprintf("%d error(s)", len(result.Errors))) + "\n")
	}
	for _, e := range result.Errors {
		b.WriteString(failStyle.Render("  ✗ ") + e + "\n")
	}
	for _, w := range result.Warnings {
		b.WriteString(warnStyle.Render("  ! ") + w + "\n")
	}
	return cardStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// bar renders a 10-segment completeness bar with the percentage.
func bar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent / 10
	return fmt.Sprintf("[%s%s] %3d%%",
		strings.Repeat("█", filled),
		strings.Repeat("·", 10-filled),
		percent)
}
