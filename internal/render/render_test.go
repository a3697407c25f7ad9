package render

import (
	"strings"
	"testing"

	"canopy/internal/blueprint"
	"canopy/internal/doctrine"
)

// Styled output embeds ANSI sequences depending on the terminal profile, so
// these tests assert on content substrings rather than exact layout.

func TestReport_ContainsProjectAndChecks(t *testing.T) {
	doc := map[string]any{
		"project_slug": "demo",
		"meta":         map[string]any{"blueprint_version_hash": "abc123def456"},
		"altitudes": map[string]any{
			"30000": map[string]any{
				"project_name": "Demo Project",
				"objective":    "Ship it",
			},
		},
	}
	result := blueprint.ValidationResult{
		Valid:        true,
		Completeness: 80,
		Checks:       map[string]bool{},
	}

	out := Report(doc, result)
	for _, want := range []string{
		"Demo Project",
		"Ship it",
		"abc123def456",
		"Altitudes",
		"Doctrine",
		"Validation",
		"30,000 ft",
		"5,000 ft",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
	// Every doctrine check appears by name.
	for _, check := range doctrine.Checks {
		if !strings.Contains(out, check.Name) {
			t.Errorf("report missing doctrine check %q", check.Name)
		}
	}
}

func TestReport_FallbacksForSparseDocument(t *testing.T) {
	out := Report(map[string]any{}, blueprint.ValidationResult{Checks: map[string]bool{}})
	if !strings.Contains(out, "(unnamed)") {
		t.Error("missing project fallback")
	}
	if !strings.Contains(out, "unstamped") {
		t.Error("missing version fallback")
	}
}

func TestReport_ListsErrorsAndWarnings(t *testing.T) {
	result := blueprint.ValidationResult{
		Valid:    false,
		Errors:   []string{"missing required field: meta.unique_id"},
		Warnings: []string{"blueprint has no version stamp"},
		Checks:   map[string]bool{},
	}
	out := Report(map[string]any{}, result)
	if !strings.Contains(out, "meta.unique_id") {
		t.Error("report missing validation error text")
	}
	if !strings.Contains(out, "version stamp") {
		t.Error("report missing warning text")
	}
	if !strings.Contains(out, "1 error(s)") {
		t.Error("report missing error count")
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		percent int
		want    string
	}{
		{0, "[··········]   0%"},
		{50, "[█████·····]  50%"},
		{100, "[██████████] 100%"},
		// Mid-decade percentages floor to the segment.
		{67, "[██████····]  67%"},
		// Out-of-range input clamps.
		{-5, "[··········]   0%"},
		{140, "[██████████] 100%"},
	}
	for _, tc := range tests {
		if got := bar(tc.percent); got != tc.want {
			t.Errorf("bar(%d) = %q, want %q", tc.percent, got, tc.want)
		}
	}
}
