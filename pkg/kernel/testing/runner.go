package testing

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ormasoftchile/fomod/pkg/host"
	"github.com/ormasoftchile/fomod/pkg/kernel/engine"
	"github.com/ormasoftchile/fomod/pkg/kernel/schema"
	"github.com/ormasoftchile/fomod/pkg/kernel/trace"
)

// TestResult is the result of running one scenario.
type TestResult struct {
	ModuleName   string            `json:"module_name"`
	ScenarioName string            `json:"scenario_name"`
	Status       string            `json:"status"` // passed, failed, skipped, error
	DurationMs   int64             `json:"duration_ms"`
	Assertions   []AssertionResult `json:"assertions,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// TestSummary aggregates counts across scenarios.
type TestSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// TestOutput is the top-level output of a test run.
type TestOutput struct {
	Module    string       `json:"module"`
	Scenarios []TestResult `json:"scenarios"`
	Summary   TestSummary  `json:"summary"`
}

// Runner executes scenario-based tests against a module.
type Runner struct {
	FailFast bool
	// TraceDir, when set, receives one JSONL trace per scenario.
	TraceDir string
}

// ScenarioInfo describes a discovered scenario directory.
type ScenarioInfo struct {
	Name string
	Dir  string
}

// DiscoverScenarios finds scenario directories for a module.
// Convention: scenarios are in a sibling `scenarios/<module-name>/` directory,
// each subdirectory containing a `scenario.yaml`.
func DiscoverScenarios(modulePath string) ([]ScenarioInfo, error) {
	scenariosDir := scenariosRoot(modulePath)
	entries, err := os.ReadDir(scenariosDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read scenarios dir: %w", err)
	}

	var scenarios []ScenarioInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		scenarioFile := filepath.Join(scenariosDir, entry.Name(), "scenario.yaml")
		if _, err := os.Stat(scenarioFile); err == nil {
			scenarios = append(scenarios, ScenarioInfo{
				Name: entry.Name(),
				Dir:  filepath.Join(scenariosDir, entry.Name()),
			})
		}
	}
	return scenarios, nil
}

func scenariosRoot(modulePath string) string {
	dir := filepath.Dir(modulePath)
	base := strings.TrimSuffix(filepath.Base(modulePath), filepath.Ext(modulePath))
	return filepath.Join(dir, "scenarios", base)
}

// RunAll discovers and runs all scenarios for a module.
func (r *Runner) RunAll(modulePath string) (*TestOutput, error) {
	scenarios, err := DiscoverScenarios(modulePath)
	if err != nil {
		return nil, err
	}

	mod, err := schema.LoadFile(modulePath)
	if err != nil {
		return nil, fmt.Errorf("load module: %w", err)
	}

	output := &TestOutput{
		Module:    mod.Name,
		Scenarios: []TestResult{},
	}

	for _, si := range scenarios {
		result := r.runScenario(mod, si)
		output.Scenarios = append(output.Scenarios, result)

		switch result.Status {
		case "passed":
			output.Summary.Passed++
		case "failed":
			output.Summary.Failed++
		case "skipped":
			output.Summary.Skipped++
		case "error":
			output.Summary.Errors++
		}
		output.Summary.Total++

		if r.FailFast && (result.Status == "failed" || result.Status == "error") {
			break
		}
	}

	return output, nil
}

// RunScenario runs a single named scenario.
func (r *Runner) RunScenario(modulePath, scenarioName string) (*TestResult, error) {
	mod, err := schema.LoadFile(modulePath)
	if err != nil {
		return nil, fmt.Errorf("load module: %w", err)
	}
	si := ScenarioInfo{Name: scenarioName, Dir: filepath.Join(scenariosRoot(modulePath), scenarioName)}
	result := r.runScenario(mod, si)
	return &result, nil
}

// runScenario replays a single scenario and evaluates its expectations.
func (r *Runner) runScenario(mod *schema.Module, si ScenarioInfo) TestResult {
	start := time.Now()
	result := TestResult{ModuleName: mod.Name, ScenarioName: si.Name}
	finish := func(status string) TestResult {
		result.Status = status
		result.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	sc, err := LoadScenario(filepath.Join(si.Dir, "scenario.yaml"))
	if err != nil {
		result.Error = fmt.Sprintf("load scenario: %s", err)
		return finish("error")
	}
	if !sc.HasExpectations() {
		return finish("skipped")
	}

	var tw *trace.Writer
	var traceBuf bytes.Buffer
	if r.TraceDir != "" {
		tw = trace.NewWriter(&traceBuf, "test-"+si.Name)
	}

	run := Replay(mod, sc, tw)

	if r.TraceDir != "" {
		path := filepath.Join(r.TraceDir, si.Name+".jsonl")
		if err := os.WriteFile(path, traceBuf.Bytes(), 0o644); err != nil {
			result.Error = fmt.Sprintf("write trace: %s", err)
			return finish("error")
		}
	}

	result.Assertions = Evaluate(sc, run)
	if HasFailures(result.Assertions) {
		return finish("failed")
	}
	return finish("passed")
}

// Replay drives a wizard over mod as the scenario describes and collects
// the final state. Failures are recorded in the result, not returned.
func Replay(mod *schema.Module, sc *Scenario, tw *trace.Writer) *RunResult {
	run := &RunResult{}
	w, err := engine.New(mod, nil, engine.Config{
		RunID:      "scenario",
		Trace:      tw,
		Files:      host.Static(sc.Files),
		FlagPolicy: sc.FlagPolicy,
	})
	if err != nil {
		run.Error = err
		return run
	}

	if err := replayInputs(w, sc); err != nil {
		run.Error = err
	}
	collect(w, run)
	return run
}

func replayInputs(w *engine.Wizard, sc *Scenario) error {
	if sc.Selection != nil {
		if err := w.ApplySelection(*sc.Selection); err != nil {
			return err
		}
	}
	for i, a := range sc.Actions {
		var err error
		switch a.Do {
		case "select", "deselect":
			parts := splitOptionPath(a.Option)
			if len(parts) != 3 {
				return fmt.Errorf("action %d: option %q must be Step/Group/Option", i, a.Option)
			}
			var ref engine.OptionRef
			ref, err = w.Find(parts[0], parts[1], parts[2])
			if err == nil {
				err = w.Toggle(ref, a.Do == "select")
			}
		case "forward":
			err = w.StepForward()
		case "back":
			err = w.StepBack()
		default:
			err = fmt.Errorf("unknown action %q", a.Do)
		}
		if err != nil {
			return fmt.Errorf("action %d (%s %s): %w", i, a.Do, a.Option, err)
		}
	}
	return nil
}

func collect(w *engine.Wizard, run *RunResult) {
	snap, err := w.Snapshot()
	if err != nil {
		if run.Error == nil {
			run.Error = err
		}
		return
	}
	run.Selected = make(map[string]bool)
	run.Categories = make(map[string]string)
	run.Visible = make(map[string]bool)
	run.Flags = snap.Flags
	run.State = string(snap.State)
	for _, st := range snap.Steps {
		run.Visible[st.Name] = st.Visible
		for _, g := range st.Groups {
			for _, o := range g.Options {
				key := st.Name + "/" + g.Name + "/" + o.Name
				run.Selected[key] = o.Selected
				run.Categories[key] = string(o.Category)
			}
		}
	}

	plan, err := w.Plan()
	if err != nil {
		run.PlanError = err
		return
	}
	run.Destinations = make([]string, 0, len(plan.Files))
	for _, f := range plan.Files {
		run.Destinations = append(run.Destinations, f.Destination)
	}
}
