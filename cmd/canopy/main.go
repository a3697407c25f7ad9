package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"canopy/internal/blueprint"
	"canopy/internal/emit"
	"canopy/internal/gates"
	"canopy/internal/jsontree"
	"canopy/internal/render"
	"canopy/internal/settings"
)

// command describes a CLI subcommand.
type command struct {
	name  string
	short string
	usage string
	long  string
	run   func(args []string) error
}

var commands = []command{
	{
		name:  "new",
		short: "Create a skeleton blueprint",
		usage: "canopy new <path>",
		long: `Create a skeleton blueprint at <path>.

Prompts for the project name, slug, and objective, then writes a stamped
blueprint with empty altitude tiers ready to fill in.

Errors if the file already exists.
`,
		run: runNew,
	},
	{
		name:  "validate",
		short: "Validate a blueprint against required paths and doctrine",
		usage: "canopy validate <blueprint>",
		long: `Validate a blueprint file (JSON or YAML).

Checks every required path, runs all doctrine checks, and reports the
completeness percentage. All failures are accumulated and listed; the
command exits non-zero if any error was found.

Extra required paths and placeholder markers can be configured in
.canopy/settings.yaml next to the blueprint.
`,
		run: runValidate,
	},
	{
		name:  "stamp",
		short: "Write the content hash and timestamp into a blueprint",
		usage: "canopy stamp <blueprint>",
		long: `Recompute the blueprint's content hash and write it (with a UTC
timestamp) into meta.blueprint_version_hash / meta.stamped_at.

All other fields are left untouched.
`,
		run: runStamp,
	},
	{
		name:  "emit",
		short: "Emit the modular artifact files from a blueprint",
		usage: "canopy emit <blueprint> <output-dir>",
		long: `Generate the modular artifact set from a blueprint:

  01_altitude.json, 02_imo.json, 03_ctb.json, 04_stack.json,
  05_build_prompt.txt, 06_ci_config.json, manifest.json

The manifest records a sha256 hash and size for every emitted file.
`,
		run: runEmit,
	},
	{
		name:  "gate",
		short: "Validate an emitted artifact directory",
		usage: "canopy gate <dir>",
		long: `Run the gate checks over an emitted artifact directory.

Each gate file (01_altitude.json .. 04_stack.json) is parsed and checked
for its required sections. Every gate runs even after failures; the
command exits non-zero if any error was found.
`,
		run: runGate,
	},
	{
		name:  "report",
		short: "Show a styled summary of a blueprint",
		usage: "canopy report <blueprint>",
		long: `Render a card-style summary of a blueprint: project star,
per-altitude completeness, doctrine check status, and validation result.
`,
		run: runReport,
	},
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "canopy — blueprint validation and emission\n\n")
	fmt.Fprintf(w, "Usage:\n  canopy <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintf(w, "\nRun 'canopy help <command>' for details on a specific command.\n")
}

func printCommandHelp(w io.Writer, name string) {
	for _, cmd := range commands {
		if cmd.name == name {
			fmt.Fprintf(w, "Usage: %s\n\n%s", cmd.usage, cmd.long)
			return
		}
	}
	fmt.Fprintf(w, "canopy: unknown command %q\n\nRun 'canopy help' for usage.\n", name)
}

func dispatch(args []string) error {
	if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
		printUsage(os.Stdout)
		return nil
	}
	if args[0] == "help" {
		if len(args) >= 2 {
			printCommandHelp(os.Stdout, args[1])
		} else {
			printUsage(os.Stdout)
		}
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(args[1:])
		}
	}
	return fmt.Errorf("unknown command %q\n\nRun 'canopy help' for usage.", args[0])
}

// ---------------------------------------------------------------------------
// new
// ---------------------------------------------------------------------------

func runNew(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: canopy new <path>")
	}
	path := args[0]
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("blueprint %q already exists", path)
	}

	answers, err := promptQuestions([]question{
		{key: "project_name", prompt: "Project name"},
		{key: "project_slug", prompt: "Project slug (short identifier)"},
		{key: "objective", prompt: "Objective"},
	})
	if err != nil {
		return fmt.Errorf("prompt: %w", err)
	}

	doc := skeletonBlueprint(answers["project_name"], answers["project_slug"], answers["objective"])
	if _, err := blueprint.Stamp(doc); err != nil {
		return fmt.Errorf("stamp: %w", err)
	}
	if err := blueprint.Save(path, doc); err != nil {
		return err
	}
	fmt.Printf("created blueprint %s\n", path)
	return nil
}

// skeletonBlueprint builds a fresh blueprint document. Unanswered planning
// fields stay empty so the completeness score reflects real progress.
func skeletonBlueprint(name, slug, objective string) map[string]any {
	return map[string]any{
		"project_slug": slug,
		"meta": map[string]any{
			"unique_id": slug,
			"doctrine":  []any{"HEIR", "ORBT", "IMO"},
		},
		"heir": map[string]any{
			"name":    "Hierarchical Error-handling, ID management, and Reporting",
			"acronym": "HEIR",
		},
		"trunk_root": map[string]any{
			"schema_enforcement": []any{
				"Neon (STAMPED)",
				"Firebase (SPVPET)",
				"BigQuery (STACKED)",
			},
			"telemetry": map[string]any{},
		},
		"altitudes": map[string]any{
			"30000": map[string]any{
				"project_name":     name,
				"objective":        objective,
				"success_criteria": []any{},
				"stakeholders":     []any{},
			},
			"20000": map[string]any{
				"components": []any{},
				"roles":      []any{},
				"stages":     []any{},
				"inputs":     []any{},
				"outputs":    []any{},
			},
			"10000": map[string]any{
				"steps":           []any{},
				"apis_services":   []any{},
				"decision_points": []any{},
				"llms":            []any{},
				"compliance":      []any{},
			},
			"5000": map[string]any{
				"documentation_plan": []any{},
				"agent_roles":        map[string]any{},
				"handoffs":           []any{},
				"firebreak_queue":    map[string]any{},
			},
		},
		"branches": []any{},
	}
}

// ---------------------------------------------------------------------------
// validate
// ---------------------------------------------------------------------------

// validateOptions assembles blueprint.Options from the settings file (if
// any) next to the blueprint.
func validateOptions(blueprintPath string) (blueprint.Options, error) {
	s, err := settings.Load(filepath.Dir(blueprintPath))
	if err != nil {
		return blueprint.Options{}, err
	}
	opts := blueprint.Options{ExtraPaths: s.RequiredPaths()}
	if extra := s.Placeholders(); len(extra) > 0 {
		opts.Placeholders = append(append([]string(nil), jsontree.DefaultPlaceholders...), extra...)
	}
	return opts, nil
}

func runValidate(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: canopy validate <blueprint>")
	}
	path := args[0]

	doc, err := blueprint.Load(path)
	if err != nil {
		return err
	}
	opts, err := validateOptions(path)
	if err != nil {
		return err
	}

	result := blueprint.Validate(doc, opts)
	fmt.Printf("Validating %s\n\n", path)
	if len(result.Errors) > 0 {
		fmt.Printf("ERRORS (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  [x] %s\n", e)
		}
		fmt.Println()
	}
	if len(result.Warnings) > 0 {
		fmt.Printf("WARNINGS (%d):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			fmt.Printf("  [!] %s\n", w)
		}
		fmt.Println()
	}
	fmt.Printf("Completeness: %d%%\n", result.Completeness)
	if !result.Valid {
		fmt.Println("Result: VALIDATION FAILED")
		return fmt.Errorf("%d validation error(s)", len(result.Errors))
	}
	fmt.Println("Result: VALID")
	return nil
}

// ---------------------------------------------------------------------------
// stamp
// ---------------------------------------------------------------------------

func runStamp(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: canopy stamp <blueprint>")
	}
	path := args[0]

	doc, err := blueprint.Load(path)
	if err != nil {
		return err
	}
	if upToDate, err := blueprint.UpToDate(doc); err == nil && upToDate {
		fmt.Printf("%s already stamped and up to date\n", path)
		return nil
	}
	hash, err := blueprint.Stamp(doc)
	if err != nil {
		return fmt.Errorf("stamp: %w", err)
	}
	if err := blueprint.Save(path, doc); err != nil {
		return err
	}
	fmt.Printf("stamped %s (version %s)\n", path, hash)
	return nil
}

// ---------------------------------------------------------------------------
// emit
// ---------------------------------------------------------------------------

func runEmit(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: canopy emit <blueprint> <output-dir>")
	}
	path, dir := args[0], args[1]

	doc, err := blueprint.Load(path)
	if err != nil {
		return err
	}
	bundle, err := emit.Generate(doc, path)
	if err != nil {
		return err
	}
	if err := emit.Write(bundle, dir); err != nil {
		return err
	}
	for _, p := range bundle.Paths() {
		data, _ := bundle.File(p)
		fmt.Printf("emitted %s (%d bytes)\n", p, len(data))
	}
	fmt.Printf("done → %s\n", dir)
	return nil
}

// ---------------------------------------------------------------------------
// gate
// ---------------------------------------------------------------------------

func runGate(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: canopy gate <dir>")
	}
	dir := args[0]
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("directory not found: %s", dir)
	}

	result := gates.RunAll(dir)
	fmt.Print(result.Report())
	if !result.OK() {
		return fmt.Errorf("%d gate error(s)", len(result.Errors))
	}
	return nil
}

// ---------------------------------------------------------------------------
// report
// ---------------------------------------------------------------------------

func runReport(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: canopy report <blueprint>")
	}
	path := args[0]

	doc, err := blueprint.Load(path)
	if err != nil {
		return err
	}
	opts, err := validateOptions(path)
	if err != nil {
		return err
	}
	result := blueprint.Validate(doc, opts)
	fmt.Print(render.Report(doc, result))
	return nil
}

// ---------------------------------------------------------------------------
// TUI prompt helpers
// ---------------------------------------------------------------------------

// question is one wizard prompt; answers are keyed by key.
type question struct {
	key    string
	prompt string
}

// promptModel is a bubbletea model that asks one question at a time.
type promptModel struct {
	questions []question
	idx       int
	inputs    []textinput.Model
	done      bool
}

func newPromptModel(questions []question) promptModel {
	inputs := make([]textinput.Model, len(questions))
	for i, q := range questions {
		ti := textinput.New()
		ti.Placeholder = q.prompt
		ti.CharLimit = 512
		inputs[i] = ti
	}
	m := promptModel{
		questions: questions,
		inputs:    inputs,
	}
	if len(inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.idx < len(m.inputs)-1 {
				m.inputs[m.idx].Blur()
				m.idx++
				m.inputs[m.idx].Focus()
				return m, textinput.Blink
			}
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.inputs[m.idx], cmd = m.inputs[m.idx].Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done || len(m.questions) == 0 {
		return ""
	}
	q := m.questions[m.idx]
	return fmt.Sprintf("%s: %s\n", q.prompt, m.inputs[m.idx].View())
}

// promptQuestions runs the TUI and returns answers keyed by question.key.
func promptQuestions(questions []question) (map[string]string, error) {
	if len(questions) == 0 {
		return map[string]string{}, nil
	}
	m := newPromptModel(questions)
	p := tea.NewProgram(m)
	result, err := p.Run()
	if err != nil {
		return nil, err
	}
	final, ok := result.(promptModel)
	if !ok || !final.done {
		return nil, fmt.Errorf("prompt cancelled")
	}
	answers := make(map[string]string, len(questions))
	for i, q := range questions {
		answers[q.key] = final.inputs[i].Value()
	}
	return answers, nil
}

func main() {
	if err := dispatch(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
