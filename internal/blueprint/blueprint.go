// Package blueprint loads, stamps, validates, and saves blueprint documents.
//
// A blueprint is an arbitrary nested JSON or YAML document describing a
// project plan. No schema is imposed at parse time; validation is a list of
// required paths plus the doctrine checks, and results are accumulated —
// never fail-fast.
package blueprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"canopy/internal/doctrine"
	"canopy/internal/jsontree"
)

// Stamp field locations inside the document.
const (
	metaKey      = "meta"
	hashField    = "blueprint_version_hash"
	stampedField = "stamped_at"
)

// hashLen is the number of hex characters kept from the sha256 digest.
const hashLen = 12

// ---------------------------------------------------------------------------
// Load / save
// ---------------------------------------------------------------------------

// Load reads and parses a blueprint file. The format is chosen by extension:
// .json is decoded as JSON, .yaml/.yml as YAML. YAML trees are normalized so
// every map has string keys (bare numeric keys like 30000 become "30000").
func Load(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var raw any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	doc, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parse %s: top level must be an object", path)
	}
	return doc, nil
}

// Save writes doc to path as canonical JSON (sorted keys, two-space indent,
// trailing newline). Identical documents always produce identical bytes.
func Save(path string, doc map[string]any) error {
	data, err := Canonical(doc)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Canonical returns the canonical JSON encoding of doc.
func Canonical(doc map[string]any) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// normalize rewrites a decoded YAML/JSON tree so that every map is a
// map[string]any. YAML allows non-string mapping keys; those are rendered
// with fmt.Sprint.
func normalize(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[k] = normalize(child)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[fmt.Sprint(k)] = normalize(child)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, child := range node {
			out[i] = normalize(child)
		}
		return out
	default:
		return v
	}
}

// ---------------------------------------------------------------------------
// Version stamping
// ---------------------------------------------------------------------------

// ContentHash computes the short content hash of doc: sha256 over the
// canonical JSON with the stamp fields removed, truncated to 12 hex chars.
// Stable for identical content; changes reliably with content.
func ContentHash(doc map[string]any) (string, error) {
	stripped := stripStamp(doc)
	data, err := Canonical(stripped)
	if err != nil {
		return "", fmt.Errorf("canonicalize: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:hashLen], nil
}

// Stamp writes meta.blueprint_version_hash and meta.stamped_at into doc
// (mutating it) and returns the hash. All other fields are untouched.
func Stamp(doc map[string]any) (string, error) {
	hash, err := ContentHash(doc)
	if err != nil {
		return "", err
	}
	meta, ok := doc[metaKey].(map[string]any)
	if !ok {
		meta = map[string]any{}
		doc[metaKey] = meta
	}
	meta[hashField] = hash
	meta[stampedField] = time.Now().UTC().Format(time.RFC3339)
	return hash, nil
}

// UpToDate reports whether the stored stamp matches the current content
// hash. An unstamped document is never up to date.
func UpToDate(doc map[string]any) (bool, error) {
	stored := jsontree.GetString(doc, metaKey+"."+hashField, "")
	if stored == "" {
		return false, nil
	}
	hash, err := ContentHash(doc)
	if err != nil {
		return false, err
	}
	return stored == hash, nil
}

// stripStamp returns a copy of doc with the stamp fields removed. Only the
// root and meta maps are copied; subtrees are shared (they are not mutated).
func stripStamp(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	meta, ok := out[metaKey].(map[string]any)
	if !ok {
		return out
	}
	mcopy := make(map[string]any, len(meta))
	for k, v := range meta {
		if k == hashField || k == stampedField {
			continue
		}
		mcopy[k] = v
	}
	out[metaKey] = mcopy
	return out
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// DefaultRequiredPaths are the paths every blueprint must resolve.
// Settings may extend this list per repository.
var DefaultRequiredPaths = []string{
	"meta.unique_id",
	"altitudes.30000.project_name",
	"altitudes.30000.objective",
	"altitudes.20000",
	"altitudes.10000",
	"altitudes.5000",
}

// Options tunes a Validate call. Zero value means defaults.
type Options struct {
	// RequiredPaths replaces DefaultRequiredPaths when non-nil.
	RequiredPaths []string
	// ExtraPaths are checked in addition to the required paths.
	ExtraPaths []string
	// Placeholders replaces jsontree.DefaultPlaceholders when non-nil.
	Placeholders []string
}

// ValidationResult is the outcome of a single Validate call.
// Invariant: len(Errors) > 0 implies !Valid.
type ValidationResult struct {
	Valid        bool
	Errors       []string
	Warnings     []string
	Completeness int
	Checks       map[string]bool
}

// Validate runs the required-path checks, the doctrine checks, and the
// completeness scorer over doc. Every check runs; failures accumulate.
func Validate(doc map[string]any, opts Options) ValidationResult {
	required := opts.RequiredPaths
	if required == nil {
		required = DefaultRequiredPaths
	}
	required = append(append([]string(nil), required...), opts.ExtraPaths...)

	placeholders := opts.Placeholders
	if placeholders == nil {
		placeholders = jsontree.DefaultPlaceholders
	}

	var result ValidationResult
	for _, path := range required {
		if !jsontree.Exists(doc, path) {
			result.Errors = append(result.Errors, fmt.Sprintf("missing required field '%s'", path))
		}
	}

	dr := doctrine.Run(doc)
	result.Errors = append(result.Errors, dr.Errors...)
	result.Checks = dr.Checks

	result.Completeness = jsontree.ScoreNodeWith(doc, placeholders).Percent()
	if result.Completeness < 50 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("blueprint only %d%% complete", result.Completeness))
	}
	if jsontree.GetString(doc, metaKey+"."+hashField, "") == "" {
		result.Warnings = append(result.Warnings, "blueprint has no version stamp (run 'canopy stamp')")
	}

	result.Valid = len(result.Errors) == 0
	return result
}
