// Package testing implements the scenario-based test harness for install
// modules. A scenario fixes the host file states, replays a selection and a
// list of wizard actions, then asserts on the resulting selections, flags,
// visible steps, and install plan.
package testing

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/ormasoftchile/fomod/pkg/kernel/flags"
	"github.com/ormasoftchile/fomod/pkg/kernel/schema"
	"gopkg.in/yaml.v3"
)

// Scenario declares the inputs of a wizard run and what to assert about it.
// All expectation fields are optional; a scenario without any is skipped.
type Scenario struct {
	Description string                      `yaml:"description,omitempty" json:"description,omitempty"`
	Files       map[string]schema.FileState `yaml:"files,omitempty" json:"files,omitempty"`             // host file states, others Missing
	FlagPolicy  flags.Policy                `yaml:"flag_policy,omitempty" json:"flag_policy,omitempty"` // document-order (default) or last-write
	Selection   *schema.Selection           `yaml:"selection,omitempty" json:"selection,omitempty"`     // applied before actions
	Actions     []Action                    `yaml:"actions,omitempty" json:"actions,omitempty"`

	ExpectedSelected     []string          `yaml:"expected_selected,omitempty" json:"expected_selected,omitempty"`         // Step/Group/Option
	ExpectedNotSelected  []string          `yaml:"expected_not_selected,omitempty" json:"expected_not_selected,omitempty"` // Step/Group/Option
	ExpectedFlags        map[string]string `yaml:"expected_flags,omitempty" json:"expected_flags,omitempty"`               // "" asserts absence
	MustShow             []string          `yaml:"must_show,omitempty" json:"must_show,omitempty"`                         // step names
	MustHide             []string          `yaml:"must_hide,omitempty" json:"must_hide,omitempty"`                         // step names
	ExpectedState        string            `yaml:"expected_state,omitempty" json:"expected_state,omitempty"`
	ExpectedDestinations []string          `yaml:"expected_destinations,omitempty" json:"expected_destinations,omitempty"` // exact plan order
	ExpectError          string            `yaml:"expect_error,omitempty" json:"expect_error,omitempty"`                   // error code
	Assert               []string          `yaml:"assert,omitempty" json:"assert,omitempty"`                               // expr-lang boolean expressions
	Tags                 []string          `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Action is one wizard operation replayed by a scenario.
type Action struct {
	Do     string `yaml:"do" json:"do"`                             // select, deselect, forward, back
	Option string `yaml:"option,omitempty" json:"option,omitempty"` // Step/Group/Option for select and deselect
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	for i, a := range s.Actions {
		switch a.Do {
		case "select", "deselect":
			if len(splitOptionPath(a.Option)) != 3 {
				return nil, fmt.Errorf("action %d: option %q must be Step/Group/Option", i, a.Option)
			}
		case "forward", "back":
		default:
			return nil, fmt.Errorf("action %d: unknown action %q", i, a.Do)
		}
	}
	return &s, nil
}

// HasExpectations reports whether the scenario asserts anything.
func (s *Scenario) HasExpectations() bool {
	return len(s.ExpectedSelected) > 0 || len(s.ExpectedNotSelected) > 0 ||
		len(s.ExpectedFlags) > 0 || len(s.MustShow) > 0 || len(s.MustHide) > 0 ||
		s.ExpectedState != "" || s.ExpectedDestinations != nil || s.ExpectError != "" ||
		len(s.Assert) > 0
}

func splitOptionPath(p string) []string {
	return strings.SplitN(p, "/", 3)
}

// ---------------------------------------------------------------------------
// Run Result (input to assertion evaluator)
// ---------------------------------------------------------------------------

// RunResult captures the final wizard state for assertion evaluation.
type RunResult struct {
	Selected     map[string]bool   // Step/Group/Option → selected, placeholders included
	Categories   map[string]string // Step/Group/Option → resolved category
	Visible      map[string]bool   // step name → visible
	Flags        map[string]string
	State        string
	Destinations []string // nil when no plan was built
	Error        error    // construction, selection, or action failure
	PlanError    error
}

// ---------------------------------------------------------------------------
// Assertion Evaluation
// ---------------------------------------------------------------------------

// AssertionResult is the result of a single assertion.
type AssertionResult struct {
	Type     string `json:"type"` // expected_selected, expected_flag, must_show, assert, etc.
	Key      string `json:"key,omitempty"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
}

// Evaluate runs all assertions from a Scenario against a RunResult.
func Evaluate(s *Scenario, run *RunResult) []AssertionResult {
	var results []AssertionResult

	results = append(results, evalError(s.ExpectError, run))
	if run.Error != nil {
		// Nothing else is meaningful once the run itself failed.
		return results
	}

	for _, p := range s.ExpectedSelected {
		results = append(results, evalSelected("expected_selected", p, true, run.Selected))
	}
	for _, p := range s.ExpectedNotSelected {
		results = append(results, evalSelected("expected_not_selected", p, false, run.Selected))
	}

	for _, name := range sortedKeys(s.ExpectedFlags) {
		expected := s.ExpectedFlags[name]
		actual := run.Flags[name]
		results = append(results, AssertionResult{
			Type:     "expected_flag",
			Key:      name,
			Expected: expected,
			Actual:   actual,
			Passed:   compareValue(expected, actual),
			Message:  fmt.Sprintf("flag %q: expected %q, got %q", name, expected, actual),
		})
	}

	for _, step := range s.MustShow {
		results = append(results, evalVisible("must_show", step, true, run.Visible))
	}
	for _, step := range s.MustHide {
		results = append(results, evalVisible("must_hide", step, false, run.Visible))
	}

	if s.ExpectedState != "" {
		results = append(results, AssertionResult{
			Type:     "expected_state",
			Expected: s.ExpectedState,
			Actual:   run.State,
			Passed:   run.State == s.ExpectedState,
			Message:  fmt.Sprintf("state: expected %q, got %q", s.ExpectedState, run.State),
		})
	}

	if s.ExpectedDestinations != nil {
		expected := strings.Join(s.ExpectedDestinations, ", ")
		actual := strings.Join(run.Destinations, ", ")
		results = append(results, AssertionResult{
			Type:     "expected_destinations",
			Expected: expected,
			Actual:   actual,
			Passed:   run.Destinations != nil && expected == actual,
			Message:  fmt.Sprintf("destinations: expected [%s], got [%s]", expected, actual),
		})
	}

	for _, a := range s.Assert {
		results = append(results, evalExpr(a, run))
	}

	return results
}

// HasFailures returns true if any assertion failed.
func HasFailures(results []AssertionResult) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}

func evalError(expectCode string, run *RunResult) AssertionResult {
	err := run.Error
	if err == nil && expectCode != "" {
		err = run.PlanError
	}
	actual := ""
	if err != nil {
		actual = err.Error()
	}
	if expectCode == "" {
		res := AssertionResult{Type: "expect_error", Expected: "no error", Actual: actual, Passed: run.Error == nil}
		if !res.Passed {
			res.Message = fmt.Sprintf("unexpected error: %s", actual)
		}
		return res
	}
	passed := schema.HasCode(err, expectCode)
	return AssertionResult{
		Type:     "expect_error",
		Expected: expectCode,
		Actual:   actual,
		Passed:   passed,
		Message:  fmt.Sprintf("error: expected code %s, got %q", expectCode, actual),
	}
}

func evalSelected(typ, path string, want bool, selected map[string]bool) AssertionResult {
	got, known := selected[path]
	actual := fmt.Sprint(got)
	if !known {
		actual = "unknown option"
	}
	return AssertionResult{
		Type:     typ,
		Key:      path,
		Expected: fmt.Sprint(want),
		Actual:   actual,
		Passed:   known && got == want,
		Message:  fmt.Sprintf("%s %q: %s", typ, path, actual),
	}
}

func evalVisible(typ, step string, want bool, visible map[string]bool) AssertionResult {
	got, known := visible[step]
	actual := boolToShown(got)
	if !known {
		actual = "unknown step"
	}
	return AssertionResult{
		Type:     typ,
		Key:      step,
		Expected: boolToShown(want),
		Actual:   actual,
		Passed:   known && got == want,
		Message:  fmt.Sprintf("%s %q: %s", typ, step, actual),
	}
}

// evalExpr evaluates a boolean expr-lang expression over the run.
// Available: selected(path), flag(name), visible(step), category(path),
// state, destinations, flags.
func evalExpr(code string, run *RunResult) AssertionResult {
	res := AssertionResult{Type: "assert", Key: code, Expected: "true"}
	env := map[string]any{
		"selected": func(path string) bool { return run.Selected[path] },
		"flag":     func(name string) string { return run.Flags[name] },
		"visible":  func(step string) bool { return run.Visible[step] },
		"category": func(path string) string { return run.Categories[path] },
		"state":    run.State,
		"flags":    run.Flags,
		"destinations": func() []string {
			if run.Destinations == nil {
				return []string{}
			}
			return run.Destinations
		}(),
	}
	program, err := expr.Compile(code, expr.Env(env), expr.AsBool())
	if err != nil {
		res.Actual = "compile error"
		res.Message = fmt.Sprintf("compile assert %q: %s", code, err)
		return res
	}
	out, err := expr.Run(program, env)
	if err != nil {
		res.Actual = "eval error"
		res.Message = fmt.Sprintf("eval assert %q: %s", code, err)
		return res
	}
	ok, _ := out.(bool)
	res.Actual = fmt.Sprint(ok)
	res.Passed = ok
	res.Message = fmt.Sprintf("assert %q: %v", code, ok)
	return res
}

// compareValue supports two match modes:
//   - /pattern/ → regex match
//   - exact string equality (default)
func compareValue(expected, actual string) bool {
	if strings.HasPrefix(expected, "/") && strings.HasSuffix(expected, "/") && len(expected) > 2 {
		pattern := expected[1 : len(expected)-1]
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(actual)
	}
	return expected == actual
}

func boolToShown(b bool) string {
	if b {
		return "shown"
	}
	return "hidden"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
