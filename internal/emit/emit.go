// Package emit converts a blueprint document into its modular artifact set.
//
// Artifact layout:
//
//	01_altitude.json     — multi-altitude planning breakdown (30k/20k/10k/5k)
//	02_imo.json          — input → middle → output structure
//	03_ctb.json          — christmas tree backbone (HEIR canopy + branches)
//	04_stack.json        — technology stack configuration
//	05_build_prompt.txt  — human-readable build instructions
//	06_ci_config.json    — CI pipeline configuration
//	manifest.json        — per-file sha256 inventory
//
// Generation is pure (no files written) so every artifact is testable;
// writing happens separately, in sorted path order for idempotency.
package emit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"canopy/internal/jsontree"
)

// Bundle holds generated artifact content (relative path → bytes) plus the
// manifest metadata collected while generating.
type Bundle struct {
	files       map[string][]byte
	generatedAt string
	source      string
}

// Paths returns the sorted artifact paths in the bundle (manifest included).
func (b *Bundle) Paths() []string {
	paths := make([]string, 0, len(b.files)+1)
	for p := range b.files {
		paths = append(paths, p)
	}
	paths = append(paths, "manifest.json")
	sort.Strings(paths)
	return paths
}

// File returns the generated bytes for one artifact path.
func (b *Bundle) File(path string) ([]byte, bool) {
	if path == "manifest.json" {
		data, err := b.manifest()
		return data, err == nil
	}
	data, ok := b.files[path]
	return data, ok
}

// Generate builds every artifact from doc. sourcePath is recorded in the
// manifest for provenance. No files are written.
func Generate(doc map[string]any, sourcePath string) (*Bundle, error) {
	b := &Bundle{
		files:       make(map[string][]byte),
		generatedAt: time.Now().UTC().Format(time.RFC3339),
		source:      sourcePath,
	}

	steps := []struct {
		path  string
		build func(map[string]any) (any, error)
	}{
		{"01_altitude.json", buildAltitude},
		{"02_imo.json", buildIMO},
		{"03_ctb.json", buildCTB},
		{"04_stack.json", buildStack},
		{"06_ci_config.json", buildCIConfig},
	}
	for _, step := range steps {
		artifact, err := step.build(doc)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", step.path, err)
		}
		data, err := json.MarshalIndent(artifact, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", step.path, err)
		}
		b.files[step.path] = append(data, '\n')
	}

	b.files["05_build_prompt.txt"] = []byte(buildPrompt(doc, b.generatedAt))
	return b, nil
}

// Write writes every artifact in bundle to dir, creating it as needed.
// Artifacts are written in sorted path order; the manifest (which hashes
// the others) is generated on the fly like any other path.
func Write(bundle *Bundle, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	for _, p := range bundle.Paths() {
		data, ok := bundle.File(p)
		if !ok {
			return fmt.Errorf("generate %s: missing content", p)
		}
		if err := os.WriteFile(filepath.Join(dir, p), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", p, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Manifest
// ---------------------------------------------------------------------------

type manifestEntry struct {
	SHA256    string `json:"sha256"`
	SizeBytes int    `json:"size_bytes"`
	Type      string `json:"type"`
}

// manifest builds manifest.json over the other artifacts. The manifest does
// not list itself.
func (b *Bundle) manifest() ([]byte, error) {
	entries := make(map[string]manifestEntry, len(b.files))
	total := 0
	for path, data := range b.files {
		sum := sha256.Sum256(data)
		contentType := "application/json"
		if strings.HasSuffix(path, ".txt") {
			contentType = "text/plain"
		}
		entries[path] = manifestEntry{
			SHA256:    hex.EncodeToString(sum[:]),
			SizeBytes: len(data),
			Type:      contentType,
		}
		total += len(data)
	}
	doc := map[string]any{
		"manifest_version": "1.0",
		"generated_at":     b.generatedAt,
		"source_blueprint": b.source,
		"files":            entries,
		"summary": map[string]any{
			"total_files":      len(entries),
			"total_size_bytes": total,
		},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// ---------------------------------------------------------------------------
// Artifact builders
// ---------------------------------------------------------------------------

// tierOr returns altitudes.<level> from doc, or the given skeleton when the
// tier is absent.
func tierOr(doc map[string]any, level string, skeleton map[string]any) map[string]any {
	altitudes, ok := doc["altitudes"].(map[string]any)
	if !ok {
		return skeleton
	}
	tier, ok := altitudes[level].(map[string]any)
	if !ok {
		return skeleton
	}
	return tier
}

func buildAltitude(doc map[string]any) (any, error) {
	return map[string]any{
		"altitudes": map[string]any{
			"30000": tierOr(doc, "30000", map[string]any{
				"project_name":     jsontree.GetString(doc, "project_slug", ""),
				"objective":        "",
				"success_criteria": []any{},
				"stakeholders":     []any{},
			}),
			"20000": tierOr(doc, "20000", map[string]any{
				"components": []any{},
				"roles":      []any{},
				"stages":     []any{},
				"inputs":     []any{},
				"outputs":    []any{},
			}),
			"10000": tierOr(doc, "10000", map[string]any{
				"steps":           []any{},
				"apis_services":   []any{},
				"decision_points": []any{},
				"llms":            []any{},
				"compliance":      []any{},
			}),
			"5000": tierOr(doc, "5000", map[string]any{
				"documentation_plan": []any{},
				"agent_roles":        map[string]any{},
				"handoffs":           []any{},
				"firebreak_queue":    map[string]any{},
			}),
		},
		"meta": jsontree.GetMap(doc, "meta"),
	}, nil
}

func buildIMO(doc map[string]any) (any, error) {
	tenK := jsontree.GetMap(doc, "altitudes.10000")
	twentyK := jsontree.GetMap(doc, "altitudes.20000")

	return map[string]any{
		"input": map[string]any{
			"data_sources":  listOr(twentyK["inputs"]),
			"external_apis": listOr(tenK["apis_services"]),
			"user_inputs":   []any{},
			"config_files":  []any{},
		},
		"middle": map[string]any{
			"orchestration": map[string]any{
				"tools":           []any{},
				"gates":           []any{"gate_01", "gate_02", "gate_03", "gate_04"},
				"orchestrators":   []any{},
				"decision_points": listOr(tenK["decision_points"]),
			},
			"processing": map[string]any{
				"llms":            listOr(tenK["llms"]),
				"transformations": []any{},
				"validations":     []any{},
			},
		},
		"output": map[string]any{
			"deliverables":  listOr(twentyK["outputs"]),
			"artifacts":     []any{},
			"documentation": listOr(tenK["documentation_plan"]),
			"deployments":   []any{},
		},
		"doctrine": map[string]any{
			"orbt": map[string]any{
				"operate": "How to run the system",
				"repair":  "How to fix issues",
				"build":   "How to enhance",
				"train":   "How to learn",
			},
		},
	}, nil
}

func buildCTB(doc map[string]any) (any, error) {
	meta := jsontree.GetMap(doc, "meta")

	return map[string]any{
		"heir_canopy": map[string]any{
			"history":     "Audit trail and lineage tracking",
			"enforcement": "Doctrine compliance checks",
			"integrity":   "Data validation and verification",
			"repair":      "Self-healing and recovery mechanisms",
		},
		"star": map[string]any{
			"project_name":      jsontree.GetString(doc, "project_slug", ""),
			"unique_id":         stringOr(meta["unique_id"]),
			"blueprint_version": stringOr(meta["blueprint_version_hash"]),
		},
		"branches": []any{
			map[string]any{
				"name":     "doctrine",
				"category": "governance",
				"nodes": []any{
					map[string]any{"id": "doctrine-001", "label": "HEIR Compliance", "type": "validation"},
					map[string]any{"id": "doctrine-002", "label": "ORBT Discipline", "type": "process"},
				},
			},
			map[string]any{"name": "input", "category": "data_ingestion", "nodes": []any{}},
			map[string]any{"name": "middle", "category": "orchestration", "nodes": []any{}},
			map[string]any{"name": "output", "category": "delivery", "nodes": []any{}},
		},
		"schema_foundation": listOr(jsontree.GetMap(doc, "trunk_root")["schema_enforcement"]),
		"telemetry":         jsontree.GetMap(doc, "trunk_root.telemetry"),
	}, nil
}

func buildStack(doc map[string]any) (any, error) {
	schemas := jsontree.Strings(jsontree.GetList(doc, "trunk_root.schema_enforcement"))

	// The schema enforcement entries double as database declarations.
	var databases []any
	for _, schema := range schemas {
		switch {
		case strings.Contains(schema, "Neon"):
			databases = append(databases, map[string]any{"name": "PostgreSQL", "provider": "Neon", "purpose": "vault"})
		case strings.Contains(schema, "Firebase"):
			databases = append(databases, map[string]any{"name": "Firebase", "provider": "Google", "purpose": "workbench"})
		case strings.Contains(schema, "BigQuery"):
			databases = append(databases, map[string]any{"name": "BigQuery", "provider": "Google", "purpose": "warehouse"})
		}
	}
	if databases == nil {
		databases = []any{}
	}

	return map[string]any{
		"languages":  []any{"Python 3.11+", "TypeScript", "JavaScript"},
		"frameworks": []any{"Next.js 14", "FastAPI", "React 18"},
		"databases":  databases,
		"deployment": map[string]any{
			"target": "multi-platform",
			"platforms": []any{
				map[string]any{"name": "Vercel", "purpose": "frontend"},
				map[string]any{"name": "Render", "purpose": "backend"},
			},
		},
		"integrations": map[string]any{
			"mcp_servers": []any{"composio", "firebase", "github"},
			"apis":        []any{},
		},
		"doctrine": listOr(jsontree.GetMap(doc, "meta")["doctrine"]),
	}, nil
}

func buildCIConfig(doc map[string]any) (any, error) {
	meta := jsontree.GetMap(doc, "meta")

	return map[string]any{
		"version": "1.0",
		"doctrine_checks": map[string]any{
			"enabled":    true,
			"gates":      []any{"01_altitude", "02_imo", "03_ctb", "04_stack"},
			"on_failure": "block_merge",
		},
		"pipelines": map[string]any{
			"validate": map[string]any{
				"trigger": "on_pull_request",
				"steps": []any{
					map[string]any{"name": "Run gate validation", "command": "canopy gate blueprints/"},
					map[string]any{"name": "Check doctrine compliance", "command": "canopy validate blueprint.json"},
				},
			},
			"build": map[string]any{
				"trigger": "on_push_to_main",
				"steps": []any{
					map[string]any{"name": "Install dependencies", "command": "npm install && pip install -r requirements.txt"},
					map[string]any{"name": "Build artifacts", "command": "make build"},
					map[string]any{"name": "Run tests", "command": "make test"},
				},
			},
			"deploy": map[string]any{
				"trigger": "on_tag",
				"steps": []any{
					map[string]any{"name": "Deploy frontend", "platform": "vercel"},
					map[string]any{"name": "Deploy backend", "platform": "render"},
				},
			},
		},
		"notifications": map[string]any{
			"on_failure": []any{"github_status"},
			"on_success": []any{"github_status"},
		},
		"meta": map[string]any{
			"blueprint_version": stringOr(meta["blueprint_version_hash"]),
			"doctrine":          listOr(meta["doctrine"]),
		},
	}, nil
}

// buildPrompt renders 05_build_prompt.txt.
func buildPrompt(doc map[string]any, generatedAt string) string {
	meta := jsontree.GetMap(doc, "meta")
	thirtyK := jsontree.GetMap(doc, "altitudes.30000")

	project := jsontree.GetString(doc, "altitudes.30000.project_name", "")
	if project == "" {
		project = jsontree.GetString(doc, "project_slug", "Unnamed")
	}
	objective := jsontree.GetString(doc, "altitudes.30000.objective", "Not specified")
	if objective == "" {
		objective = "Not specified"
	}
	version := stringOr(meta["blueprint_version_hash"])
	if version == "" {
		version = "N/A"
	}

	stakeholders := jsontree.Strings(listOr(thirtyK["stakeholders"]))
	if len(stakeholders) == 0 {
		stakeholders = []string{"None listed"}
	}

	rule := strings.Repeat("=", 60)
	sub := strings.Repeat("-", 60)

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line(rule)
	line("BLUEPRINT BUILD INSTRUCTIONS")
	line(rule)
	line("")
	line("Project: %s", project)
	line("Objective: %s", objective)
	line("Blueprint Version: %s", version)
	line("")
	line(sub)
	line("ALTITUDE BREAKDOWN")
	line(sub)
	line("")
	line("30,000 ft - STRATEGIC VISION")
	line("  Stakeholders: %s", strings.Join(stakeholders, ", "))
	line("  Success Criteria: %d defined", len(listOr(thirtyK["success_criteria"])))
	line("")
	line("20,000 ft - SYSTEM ARCHITECTURE")
	line("  Components: %d components", len(jsontree.GetList(doc, "altitudes.20000.components")))
	line("  Roles: %d roles", len(jsontree.GetList(doc, "altitudes.20000.roles")))
	line("")
	line("10,000 ft - IMPLEMENTATION")
	line("  Steps: %d implementation steps", len(jsontree.GetList(doc, "altitudes.10000.steps")))
	line("  APIs/Services: %d integrations", len(jsontree.GetList(doc, "altitudes.10000.apis_services")))
	line("")
	line("5,000 ft - TACTICAL EXECUTION")
	line("  Agent Roles: %d agents", len(jsontree.GetMap(doc, "altitudes.5000.agent_roles")))
	line("  Handoffs: %d handoff points", len(jsontree.GetList(doc, "altitudes.5000.handoffs")))
	line("")
	line(sub)
	line("DOCTRINE ENFORCEMENT")
	line(sub)
	line("")
	for _, d := range jsontree.Strings(listOr(meta["doctrine"])) {
		line("  [x] %s", d)
	}
	line("")
	line(sub)
	line("BUILD SEQUENCE")
	line(sub)
	line("")
	line("1. Validate all gates (canopy gate)")
	line("2. Set up infrastructure from 04_stack.json")
	line("3. Implement IMO structure from 02_imo.json")
	line("4. Apply CTB governance from 03_ctb.json")
	line("5. Follow altitude plan from 01_altitude.json")
	line("6. Deploy per 06_ci_config.json")
	line("")
	line(rule)
	line("Generated: %s", generatedAt)
	line(rule)

	return b.String()
}

// ---------------------------------------------------------------------------
// Small conversions
// ---------------------------------------------------------------------------

func listOr(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{}
}

func stringOr(v any) string {
	s, _ := v.(string)
	return s
}
