// Package recorder captures an interactive wizard walk as a replayable test
// scenario.
package recorder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ormasoftchile/fomod/pkg/kernel/engine"
	"github.com/ormasoftchile/fomod/pkg/kernel/flags"
	"github.com/ormasoftchile/fomod/pkg/kernel/schema"
	ktesting "github.com/ormasoftchile/fomod/pkg/kernel/testing"
	"gopkg.in/yaml.v3"
)

// Recorder wraps a wizard and records every state-changing call as a
// scenario action.
type Recorder struct {
	wizard  *engine.Wizard
	files   map[string]schema.FileState
	log     *FileLog
	policy  flags.Policy
	Actions []ktesting.Action
}

// New creates a recording wrapper around w. files and policy are the
// host file states and flag policy the wizard was built with; they are
// copied into the recorded scenario.
func New(w *engine.Wizard, files map[string]schema.FileState, policy flags.Policy) *Recorder {
	return &Recorder{wizard: w, files: files, policy: policy}
}

// UseFileLog takes the scenario's file states from l instead of the map
// given to New. l must be the query the wizard was built with.
func (r *Recorder) UseFileLog(l *FileLog) {
	r.log = l
}

// Toggle delegates to the wizard and records the request. Requests the
// wizard rejects are not recorded.
func (r *Recorder) Toggle(ref engine.OptionRef, selected bool) error {
	path, err := r.wizard.Path(ref)
	if err != nil {
		return err
	}
	if err := r.wizard.Toggle(ref, selected); err != nil {
		return err
	}
	do := "deselect"
	if selected {
		do = "select"
	}
	r.Actions = append(r.Actions, ktesting.Action{Do: do, Option: path})
	return nil
}

// StepForward delegates to the wizard and records the move.
func (r *Recorder) StepForward() error {
	if err := r.wizard.StepForward(); err != nil {
		return err
	}
	r.Actions = append(r.Actions, ktesting.Action{Do: "forward"})
	return nil
}

// StepBack delegates to the wizard and records the move.
func (r *Recorder) StepBack() error {
	if err := r.wizard.StepBack(); err != nil {
		return err
	}
	r.Actions = append(r.Actions, ktesting.Action{Do: "back"})
	return nil
}

// Scenario builds a scenario whose expectations pin the wizard's current
// state: selected options of visible steps, flags, step visibility, the
// wizard state, and the install plan (or its error code).
func (r *Recorder) Scenario(description string) (*ktesting.Scenario, error) {
	snap, err := r.wizard.Snapshot()
	if err != nil {
		return nil, err
	}

	files := r.files
	if r.log != nil {
		files = r.log.Seen()
	}
	sc := &ktesting.Scenario{
		Description:   description,
		Files:         files,
		FlagPolicy:    r.policy,
		Actions:       append([]ktesting.Action(nil), r.Actions...),
		ExpectedFlags: snap.Flags,
		ExpectedState: string(snap.State),
	}
	for _, st := range snap.Steps {
		if !st.Visible {
			sc.MustHide = append(sc.MustHide, st.Name)
			continue
		}
		sc.MustShow = append(sc.MustShow, st.Name)
		for _, g := range st.Groups {
			for _, o := range g.Options {
				if o.Selected && !o.Placeholder {
					sc.ExpectedSelected = append(sc.ExpectedSelected, st.Name+"/"+g.Name+"/"+o.Name)
				}
			}
		}
	}
	sort.Strings(sc.ExpectedSelected)

	plan, err := r.wizard.Plan()
	var serr *schema.Error
	switch {
	case err == nil:
		sc.ExpectedDestinations = make([]string, 0, len(plan.Files))
		for _, f := range plan.Files {
			sc.ExpectedDestinations = append(sc.ExpectedDestinations, f.Destination)
		}
	case errors.As(err, &serr):
		sc.ExpectError = serr.Code
	default:
		return nil, fmt.Errorf("build plan: %w", err)
	}
	return sc, nil
}

// Save writes sc to <dir>/scenario.yaml, creating dir as needed.
func Save(dir string, sc *ktesting.Scenario) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create scenario dir: %w", err)
	}
	data, err := yaml.Marshal(sc)
	if err != nil {
		return fmt.Errorf("marshal scenario: %w", err)
	}
	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write scenario: %w", err)
	}
	return nil
}
