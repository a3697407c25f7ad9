// Package doctrine holds the fixed structural rules a blueprint must
// satisfy. The rules are a declarative table of named predicates evaluated
// uniformly in a loop; every predicate always runs and every failure is
// reported (no short-circuit), so one broken section never hides another.
package doctrine

import (
	"strings"

	"canopy/internal/jsontree"
)

// SchemaDescriptors are the three external schema disciplines every
// blueprint's trunk must enforce.
var SchemaDescriptors = []string{"STAMPED", "SPVPET", "STACKED"}

// orbtFields is the four-field discipline record required on every node.
var orbtFields = []string{"operate", "repair", "build", "train"}

// Check is one named doctrine predicate. Pass returns true when the
// document satisfies the rule; Message is appended to the error list when
// it does not.
type Check struct {
	Name    string
	Message string
	Pass    func(doc map[string]any) bool
}

// Checks is the fixed rule table. Not user-extensible at runtime.
var Checks = []Check{
	{
		Name:    "heirCanopy",
		Message: "HEIR canopy missing: blueprint must carry a 'heir' object with 'name' and 'acronym'",
		Pass:    checkHeirCanopy,
	},
	{
		Name:    "orbtDiscipline",
		Message: "ORBT discipline missing: every branch node needs an 'orbt' record with operate/repair/build/train",
		Pass:    checkOrbtDiscipline,
	},
	{
		Name:    "imoStructure",
		Message: "IMO structure incomplete: every branch node needs imo.input/middle/output, with middle carrying an orchestrator, operations, and a gate flag",
		Pass:    checkImoStructure,
	},
	{
		Name:    "schemaEnforcement",
		Message: "schema enforcement incomplete: trunk_root.schema_enforcement must name STAMPED, SPVPET, and STACKED",
		Pass:    checkSchemaEnforcement,
	},
}

// Result reports each check's pass/fail status plus the accumulated error
// strings. The text is advisory only; there are no structured error codes.
type Result struct {
	Checks map[string]bool
	Errors []string
}

// Run evaluates every check in the table against doc.
func Run(doc map[string]any) Result {
	result := Result{Checks: make(map[string]bool, len(Checks))}
	for _, c := range Checks {
		ok := c.Pass(doc)
		result.Checks[c.Name] = ok
		if !ok {
			result.Errors = append(result.Errors, c.Message)
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Predicates
// ---------------------------------------------------------------------------

func checkHeirCanopy(doc map[string]any) bool {
	heir, ok := doc["heir"].(map[string]any)
	if !ok {
		return false
	}
	name, _ := heir["name"].(string)
	acronym, _ := heir["acronym"].(string)
	return name != "" && acronym != ""
}

// eachNode invokes fn for every node in every branch. Returns false as soon
// as fn does, true otherwise (vacuously true with no branches or nodes).
// Branches that are not objects, or node lists that are not arrays, fail.
func eachNode(doc map[string]any, fn func(node map[string]any) bool) bool {
	branches, ok := doc["branches"]
	if !ok {
		return true
	}
	list, ok := branches.([]any)
	if !ok {
		return false
	}
	for _, b := range list {
		branch, ok := b.(map[string]any)
		if !ok {
			return false
		}
		nodes, ok := branch["nodes"]
		if !ok {
			continue
		}
		nodeList, ok := nodes.([]any)
		if !ok {
			return false
		}
		for _, n := range nodeList {
			node, ok := n.(map[string]any)
			if !ok {
				return false
			}
			if !fn(node) {
				return false
			}
		}
	}
	return true
}

func checkOrbtDiscipline(doc map[string]any) bool {
	return eachNode(doc, func(node map[string]any) bool {
		orbt, ok := node["orbt"].(map[string]any)
		if !ok {
			return false
		}
		for _, field := range orbtFields {
			if _, ok := orbt[field]; !ok {
				return false
			}
		}
		return true
	})
}

func checkImoStructure(doc map[string]any) bool {
	return eachNode(doc, func(node map[string]any) bool {
		imo, ok := node["imo"].(map[string]any)
		if !ok {
			return false
		}
		if _, ok := imo["input"]; !ok {
			return false
		}
		if _, ok := imo["output"]; !ok {
			return false
		}
		middle, ok := imo["middle"].(map[string]any)
		if !ok {
			return false
		}
		orchestrator, _ := middle["orchestrator"].(string)
		if orchestrator == "" {
			return false
		}
		ops, ok := middle["operations"].([]any)
		if !ok || len(ops) == 0 {
			return false
		}
		// The promotion gate must be declared as an explicit boolean.
		_, ok = middle["gate"].(bool)
		return ok
	})
}

func checkSchemaEnforcement(doc map[string]any) bool {
	schemas := jsontree.Strings(jsontree.GetList(doc, "trunk_root.schema_enforcement"))
	if len(schemas) == 0 {
		return false
	}
	// Entries are free text ("Neon (STAMPED)", "Firebase (SPVPET)"), so
	// match each descriptor by substring, case-insensitively.
	for _, want := range SchemaDescriptors {
		found := false
		for _, s := range schemas {
			if strings.Contains(strings.ToUpper(s), want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
