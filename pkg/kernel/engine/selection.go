package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ormasoftchile/fomod/pkg/kernel/schema"
)

type resolvedGroup struct {
	step, group int
	listed      map[int]bool
}

// ApplySelection replays a named selection. Every identifier is resolved
// before anything changes; an unknown one fails with UNKNOWN_IDENTIFIER and
// leaves the wizard untouched. Groups are then replayed in document order:
// listed options are selected, unlisted ones deselected. Requests against
// disabled options are skipped and traced.
func (w *Wizard) ApplySelection(sel schema.Selection) error {
	if err := w.begin(); err != nil {
		return err
	}
	defer w.end()

	groups, err := w.resolveSelection(sel)
	if err != nil {
		return err
	}

	toggles := 0
	for _, rg := range groups {
		gn := &w.steps[rg.step].groups[rg.group]
		for _, want := range []bool{true, false} {
			for _, oi := range gn.order {
				if rg.listed[oi] != want {
					continue
				}
				on := &gn.options[oi]
				if !want && on.placeholder() {
					continue
				}
				if on.selected == want {
					continue
				}
				if !on.enabled {
					w.trace.EmitSelectionSkipped(w.label(on.ref), want)
					continue
				}
				if _, err := w.toggle(on.ref, want); err != nil {
					return fmt.Errorf("apply selection: %w", err)
				}
				toggles++
			}
		}
	}

	w.trace.EmitSelectionApplied(len(sel.Steps), toggles)
	return nil
}

// resolveSelection maps names to indices and sorts the groups into document
// order.
func (w *Wizard) resolveSelection(sel schema.Selection) ([]resolvedGroup, error) {
	var out []resolvedGroup
	for i, ss := range sel.Steps {
		si, err := w.findStep(ss.Step)
		if err != nil {
			return nil, withPath(err, fmt.Sprintf("steps[%d].step", i))
		}
		for j, gs := range ss.Groups {
			gi, err := w.findGroup(si, gs.Group)
			if err != nil {
				return nil, withPath(err, fmt.Sprintf("steps[%d].groups[%d].group", i, j))
			}
			rg := resolvedGroup{step: si, group: gi, listed: make(map[int]bool, len(gs.Options))}
			for k, name := range gs.Options {
				oi, err := w.findOption(si, gi, name)
				if err != nil {
					return nil, withPath(err, fmt.Sprintf("steps[%d].groups[%d].options[%d]", i, j, k))
				}
				rg.listed[oi] = true
			}
			out = append(out, rg)
		}
	}

	groupPos := func(rg resolvedGroup) int {
		for pos, gi := range w.steps[rg.step].order {
			if gi == rg.group {
				return pos
			}
		}
		return -1
	}
	sort.SliceStable(out, func(a, b int) bool {
		pa, pb := w.stepPos[out[a].step], w.stepPos[out[b].step]
		if pa != pb {
			return pa < pb
		}
		return groupPos(out[a]) < groupPos(out[b])
	})
	return out, nil
}

func withPath(err error, path string) error {
	var e *schema.Error
	if errors.As(err, &e) {
		e.Path = path
	}
	return err
}
