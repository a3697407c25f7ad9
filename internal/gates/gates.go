// Package gates validates an emitted artifact directory against the
// required shape of each gate file (01_altitude through 04_stack).
//
// Every gate always runs: a missing or unparseable file fails its own gate
// but never stops the later ones, and errors/warnings accumulate across all
// of them. Exit decisions belong to the caller — a run passes iff it
// produced no errors.
package gates

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"canopy/internal/jsontree"
)

// altitudeLevels are the four planning tiers every 01_altitude.json carries.
var altitudeLevels = []string{"30000", "20000", "10000", "5000"}

// Gate names one emitted file and the check applied to its parsed contents.
type Gate struct {
	File  string
	Check func(doc map[string]any, r *Result)
}

// Gates is the fixed gate table, evaluated in order.
var Gates = []Gate{
	{"01_altitude.json", checkAltitude},
	{"02_imo.json", checkIMO},
	{"03_ctb.json", checkCTB},
	{"04_stack.json", checkStack},
}

// Result accumulates the outcome of one RunAll call.
type Result struct {
	Passed   map[string]bool
	Errors   []string
	Warnings []string

	file string // gate file currently being checked
}

// OK reports whether every gate passed with no errors.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, r.file+": "+fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, r.file+": "+fmt.Sprintf(format, args...))
}

// RunAll validates every gate file in dir.
func RunAll(dir string) *Result {
	r := &Result{Passed: make(map[string]bool, len(Gates))}
	for _, gate := range Gates {
		r.file = gate.File
		before := len(r.Errors)

		doc, err := loadGateFile(filepath.Join(dir, gate.File))
		if err != nil {
			r.Errors = append(r.Errors, err.Error())
		} else {
			gate.Check(doc, r)
		}
		r.Passed[gate.File] = len(r.Errors) == before
	}
	return r
}

// loadGateFile reads and parses one emitted JSON file.
func loadGateFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file not found at %s", filepath.Base(path), path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read failed: %w", filepath.Base(path), err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: invalid JSON: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// Report renders the pass/fail listing plus accumulated errors and warnings.
func (r *Result) Report() string {
	var b strings.Builder
	for _, gate := range Gates {
		status := "PASS"
		if !r.Passed[gate.File] {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "Gate: %s... [%s]\n", gate.File, status)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "\nERRORS (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  [x] %s\n", e)
		}
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "\nWARNINGS (%d):\n", len(r.Warnings))
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "  [!] %s\n", w)
		}
	}
	if r.OK() {
		b.WriteString("\nResult: ALL GATES PASSED\n")
	} else {
		b.WriteString("\nResult: VALIDATION FAILED\n")
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Per-gate checks
// ---------------------------------------------------------------------------

func checkAltitude(doc map[string]any, r *Result) {
	altitudes, ok := doc["altitudes"].(map[string]any)
	if !ok {
		r.errorf("missing 'altitudes' root object")
		return
	}
	for _, level := range altitudeLevels {
		tier, present := altitudes[level]
		if !present {
			r.errorf("missing altitude level '%s'", level)
			continue
		}
		if _, ok := tier.(map[string]any); !ok {
			r.errorf("altitude '%s' must be an object", level)
		}
	}
	if _, ok := altitudes["30000"].(map[string]any); ok {
		for _, field := range []string{"project_name", "objective"} {
			if jsontree.GetString(doc, "altitudes.30000."+field, "") == "" {
				r.errorf("missing required field 'altitudes.30000.%s'", field)
			}
		}
	}
}

func checkIMO(doc map[string]any, r *Result) {
	for _, section := range []string{"input", "middle", "output"} {
		v, present := doc[section]
		if !present {
			r.errorf("missing required section '%s'", section)
			continue
		}
		if _, ok := v.(map[string]any); !ok {
			r.errorf("section '%s' must be an object", section)
		}
	}
	if middle, ok := doc["middle"].(map[string]any); ok {
		if _, ok := middle["orchestration"]; !ok {
			r.warnf("'middle.orchestration' recommended for tooling clarity")
		}
	}
}

func checkCTB(doc map[string]any, r *Result) {
	for _, section := range []string{"heir_canopy", "star", "branches"} {
		if _, present := doc[section]; !present {
			r.errorf("missing required section '%s'", section)
		}
	}
	if heir, ok := doc["heir_canopy"].(map[string]any); ok {
		for _, field := range []string{"history", "enforcement", "integrity", "repair"} {
			if _, present := heir[field]; !present {
				r.warnf("HEIR canopy missing '%s' field", field)
			}
		}
	}
	if branches, present := doc["branches"]; present {
		list, ok := branches.([]any)
		switch {
		case !ok:
			r.errorf("'branches' must be an array")
		case len(list) == 0:
			r.warnf("no branches defined")
		}
	}
}

func checkStack(doc map[string]any, r *Result) {
	for _, section := range []string{"languages", "frameworks", "deployment"} {
		if _, present := doc[section]; !present {
			r.errorf("missing required section '%s'", section)
		}
	}
	if deployment, ok := doc["deployment"].(map[string]any); ok {
		if _, present := deployment["target"]; !present {
			r.warnf("'deployment.target' not specified")
		}
	}
}
