package emit

// emit_test.go — Tests for artifact generation and writing.
//
// All generation tests work on the in-memory bundle (Generate is pure);
// Write tests use a temp dir and assert on the files.

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// allArtifacts is the complete expected artifact set, sorted.
var allArtifacts = []string{
	"01_altitude.json",
	"02_imo.json",
	"03_ctb.json",
	"04_stack.json",
	"05_build_prompt.txt",
	"06_ci_config.json",
	"manifest.json",
}

// sampleBlueprint returns a filled-in document exercising every builder.
func sampleBlueprint() map[string]any {
	return map[string]any{
		"project_slug": "demo",
		"meta": map[string]any{
			"unique_id":              "demo-001",
			"blueprint_version_hash": "abc123def456",
			"doctrine":               []any{"HEIR", "ORBT"},
		},
		"trunk_root": map[string]any{
			"schema_enforcement": []any{
				"Neon (STAMPED)", "Firebase (SPVPET)", "BigQuery (STACKED)",
			},
			"telemetry": map[string]any{"enabled": true},
		},
		"altitudes": map[string]any{
			"30000": map[string]any{
				"project_name":     "Demo",
				"objective":        "Ship it",
				"success_criteria": []any{"works", "fast"},
				"stakeholders":     []any{"team"},
			},
			"20000": map[string]any{
				"components": []any{"api", "worker"},
				"roles":      []any{"owner"},
				"inputs":     []any{"orders"},
				"outputs":    []any{"reports"},
			},
			"10000": map[string]any{
				"steps":           []any{"build", "test"},
				"apis_services":   []any{"stripe"},
				"decision_points": []any{"retry?"},
				"llms":            []any{"summarizer"},
			},
			"5000": map[string]any{
				"agent_roles": map[string]any{"builder": "builds"},
				"handoffs":    []any{"review"},
			},
		},
	}
}

// parseArtifact unmarshals one generated JSON artifact.
func parseArtifact(t *testing.T, b *Bundle, path string) map[string]any {
	t.Helper()
	data, ok := b.File(path)
	if !ok {
		t.Fatalf("artifact %s not generated", path)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("artifact %s is not valid JSON: %v", path, err)
	}
	return doc
}

// ---------------------------------------------------------------------------
// Generate
// ---------------------------------------------------------------------------

func TestGenerate_AllArtifacts(t *testing.T) {
	bundle, err := Generate(sampleBlueprint(), "blueprint.json")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	paths := bundle.Paths()
	if len(paths) != len(allArtifacts) {
		t.Fatalf("got %d artifacts %v, want %d", len(paths), paths, len(allArtifacts))
	}
	for i, want := range allArtifacts {
		if paths[i] != want {
			t.Errorf("paths[%d] = %q, want %q (sorted order)", i, paths[i], want)
		}
	}
}

func TestGenerate_Altitude(t *testing.T) {
	bundle, err := Generate(sampleBlueprint(), "blueprint.json")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	doc := parseArtifact(t, bundle, "01_altitude.json")

	altitudes, ok := doc["altitudes"].(map[string]any)
	if !ok {
		t.Fatal("missing altitudes object")
	}
	for _, level := range []string{"30000", "20000", "10000", "5000"} {
		if _, ok := altitudes[level].(map[string]any); !ok {
			t.Errorf("altitude %s missing or not an object", level)
		}
	}
	tier := altitudes["30000"].(map[string]any)
	if tier["project_name"] != "Demo" {
		t.Errorf("30000.project_name = %v, want Demo", tier["project_name"])
	}
}

// TestGenerate_AltitudeSkeleton: absent tiers get skeleton defaults rather
// than being dropped.
func TestGenerate_AltitudeSkeleton(t *testing.T) {
	bundle, err := Generate(map[string]any{"project_slug": "bare"}, "blueprint.json")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	doc := parseArtifact(t, bundle, "01_altitude.json")
	altitudes := doc["altitudes"].(map[string]any)

	tier, ok := altitudes["30000"].(map[string]any)
	if !ok {
		t.Fatal("skeleton 30000 tier missing")
	}
	// The skeleton seeds project_name from the slug.
	if tier["project_name"] != "bare" {
		t.Errorf("skeleton project_name = %v, want bare", tier["project_name"])
	}
	if _, ok := altitudes["5000"].(map[string]any); !ok {
		t.Error("skeleton 5000 tier missing")
	}
}

func TestGenerate_IMO(t *testing.T) {
	bundle, err := Generate(sampleBlueprint(), "blueprint.json")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	doc := parseArtifact(t, bundle, "02_imo.json")

	for _, section := range []string{"input", "middle", "output", "doctrine"} {
		if _, ok := doc[section].(map[string]any); !ok {
			t.Errorf("missing section %q", section)
		}
	}
	input := doc["input"].(map[string]any)
	sources, _ := input["data_sources"].([]any)
	if len(sources) != 1 || sources[0] != "orders" {
		t.Errorf("input.data_sources = %v, want [orders]", sources)
	}
	middle := doc["middle"].(map[string]any)
	orch := middle["orchestration"].(map[string]any)
	gates, _ := orch["gates"].([]any)
	if len(gates) != 4 {
		t.Errorf("orchestration.gates = %v, want 4 gates", gates)
	}
}

func TestGenerate_CTB(t *testing.T) {
	bundle, err := Generate(sampleBlueprint(), "blueprint.json")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	doc := parseArtifact(t, bundle, "03_ctb.json")

	heir, ok := doc["heir_canopy"].(map[string]any)
	if !ok {
		t.Fatal("missing heir_canopy")
	}
	for _, field := range []string{"history", "enforcement", "integrity", "repair"} {
		if _, ok := heir[field]; !ok {
			t.Errorf("heir_canopy missing %q", field)
		}
	}
	star := doc["star"].(map[string]any)
	if star["unique_id"] != "demo-001" {
		t.Errorf("star.unique_id = %v", star["unique_id"])
	}
	if star["blueprint_version"] != "abc123def456" {
		t.Errorf("star.blueprint_version = %v", star["blueprint_version"])
	}
	branches, _ := doc["branches"].([]any)
	if len(branches) != 4 {
		t.Errorf("branches = %d entries, want 4", len(branches))
	}
}

// TestGenerate_StackDatabases: database entries are inferred from the
// schema enforcement descriptors.
func TestGenerate_StackDatabases(t *testing.T) {
	bundle, err := Generate(sampleBlueprint(), "blueprint.json")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	doc := parseArtifact(t, bundle, "04_stack.json")

	databases, _ := doc["databases"].([]any)
	if len(databases) != 3 {
		t.Fatalf("databases = %v, want 3 inferred entries", databases)
	}
	providers := make(map[string]bool)
	for _, d := range databases {
		entry := d.(map[string]any)
		providers[entry["provider"].(string)] = true
	}
	for _, want := range []string{"Neon", "Google"} {
		if !providers[want] {
			t.Errorf("missing inferred database provider %q", want)
		}
	}
}

func TestGenerate_StackNoSchemas(t *testing.T) {
	bundle, err := Generate(map[string]any{}, "blueprint.json")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	doc := parseArtifact(t, bundle, "04_stack.json")
	databases, ok := doc["databases"].([]any)
	if !ok {
		t.Fatal("databases must be an array even when empty")
	}
	if len(databases) != 0 {
		t.Errorf("databases = %v, want empty", databases)
	}
}

func TestGenerate_BuildPrompt(t *testing.T) {
	bundle, err := Generate(sampleBlueprint(), "blueprint.json")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	data, ok := bundle.File("05_build_prompt.txt")
	if !ok {
		t.Fatal("build prompt not generated")
	}
	text := string(data)

	for _, want := range []string{
		"BLUEPRINT BUILD INSTRUCTIONS",
		"Project: Demo",
		"Objective: Ship it",
		"Success Criteria: 2 defined",
		"Components: 2 components",
		"DOCTRINE ENFORCEMENT",
		"[x] HEIR",
		"BUILD SEQUENCE",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("build prompt missing %q", want)
		}
	}
}

func TestGenerate_CIConfig(t *testing.T) {
	bundle, err := Generate(sampleBlueprint(), "blueprint.json")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	doc := parseArtifact(t, bundle, "06_ci_config.json")

	checks := doc["doctrine_checks"].(map[string]any)
	gates, _ := checks["gates"].([]any)
	if len(gates) != 4 {
		t.Errorf("doctrine_checks.gates = %v, want 4", gates)
	}
	pipelines := doc["pipelines"].(map[string]any)
	for _, name := range []string{"validate", "build", "deploy"} {
		if _, ok := pipelines[name].(map[string]any); !ok {
			t.Errorf("missing pipeline %q", name)
		}
	}
}

// ---------------------------------------------------------------------------
// Manifest
// ---------------------------------------------------------------------------

func TestManifest_HashesEveryArtifact(t *testing.T) {
	bundle, err := Generate(sampleBlueprint(), "blueprints/blueprint.json")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	manifest := parseArtifact(t, bundle, "manifest.json")

	if manifest["source_blueprint"] != "blueprints/blueprint.json" {
		t.Errorf("source_blueprint = %v", manifest["source_blueprint"])
	}
	files, ok := manifest["files"].(map[string]any)
	if !ok {
		t.Fatal("manifest missing files map")
	}
	// Every artifact except the manifest itself is listed with its real hash.
	if _, listed := files["manifest.json"]; listed {
		t.Error("manifest must not list itself")
	}
	for _, name := range allArtifacts {
		if name == "manifest.json" {
			continue
		}
		entry, ok := files[name].(map[string]any)
		if !ok {
			t.Errorf("manifest missing entry for %s", name)
			continue
		}
		data, _ := bundle.File(name)
		sum := sha256.Sum256(data)
		if entry["sha256"] != hex.EncodeToString(sum[:]) {
			t.Errorf("manifest hash mismatch for %s", name)
		}
		if int(entry["size_bytes"].(float64)) != len(data) {
			t.Errorf("manifest size mismatch for %s", name)
		}
	}
	summary := manifest["summary"].(map[string]any)
	if int(summary["total_files"].(float64)) != len(allArtifacts)-1 {
		t.Errorf("summary.total_files = %v, want %d", summary["total_files"], len(allArtifacts)-1)
	}
}

func TestManifest_ContentTypes(t *testing.T) {
	bundle, err := Generate(sampleBlueprint(), "blueprint.json")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	manifest := parseArtifact(t, bundle, "manifest.json")
	files := manifest["files"].(map[string]any)

	prompt := files["05_build_prompt.txt"].(map[string]any)
	if prompt["type"] != "text/plain" {
		t.Errorf("build prompt type = %v, want text/plain", prompt["type"])
	}
	altitude := files["01_altitude.json"].(map[string]any)
	if altitude["type"] != "application/json" {
		t.Errorf("altitude type = %v, want application/json", altitude["type"])
	}
}

// ---------------------------------------------------------------------------
// Write
// ---------------------------------------------------------------------------

func TestWrite_AllFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	bundle, err := Generate(sampleBlueprint(), "blueprint.json")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := Write(bundle, dir); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for _, name := range allArtifacts {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("missing written artifact %s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("artifact %s is empty", name)
		}
	}
}

// TestWrite_MatchesBundle: bytes on disk equal the in-memory artifacts.
func TestWrite_MatchesBundle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	bundle, err := Generate(sampleBlueprint(), "blueprint.json")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := Write(bundle, dir); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for _, name := range bundle.Paths() {
		want, _ := bundle.File(name)
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != string(want) {
			t.Errorf("written %s differs from generated content", name)
		}
	}
}
