package engine

import (
	"fmt"
	"maps"
	"slices"

	"github.com/ormasoftchile/fomod/pkg/kernel/eval"
	"github.com/ormasoftchile/fomod/pkg/kernel/flags"
	"github.com/ormasoftchile/fomod/pkg/kernel/group"
	"github.com/ormasoftchile/fomod/pkg/kernel/schema"
)

// Recompute runs the cascade pass from the step at iteration position from
// through the last step, then refreshes the visible-step ordering. Steps
// before from are never touched.
func (w *Wizard) Recompute(from int) error {
	if err := w.begin(); err != nil {
		return err
	}
	defer w.end()
	if from < 0 || from > len(w.stepOrder) {
		return schema.Structuralf("", "recompute position %d out of range", from)
	}
	return w.recompute(from)
}

func (w *Wizard) recompute(from int) error {
	if err := w.pass(from, false); err != nil {
		return err
	}
	w.updateVisible()
	return nil
}

// pass re-evaluates every step at or after position from, in order: step
// visibility, option categories, auto-corrections, group rules, and the flag
// contributions later steps read. The initial pass assigns default
// selections from categories instead of auto-correcting.
func (w *Wizard) pass(from int, initial bool) error {
	for pos := from; pos < len(w.stepOrder); pos++ {
		if err := w.passStep(&w.steps[w.stepOrder[pos]], initial); err != nil {
			return err
		}
	}
	return nil
}

// passStep repeats the step's group loop until neither the flag store nor a
// selection of the step changes, so options read flags set anywhere in their
// own step. Defaults are assigned on the first round only; later rounds
// auto-correct. A step that never settles stops after one round per option.
func (w *Wizard) passStep(sn *stepNode, initial bool) error {
	wasVisible := sn.visible
	limit := 1
	for gi := range sn.groups {
		limit += len(sn.groups[gi].options)
	}

	for round := 0; round < limit; round++ {
		flagsBefore := w.flags.Snapshot()
		selBefore := stepSelection(sn)

		vis, err := eval.Evaluate(sn.step.Visible, w.flags, w.files)
		if err != nil {
			return fmt.Errorf("step %q visibility: %w", sn.step.Name, err)
		}
		sn.visible = vis

		for _, gi := range sn.order {
			if err := w.passGroup(sn, &sn.groups[gi], initial && round == 0); err != nil {
				return err
			}
		}

		if maps.Equal(flagsBefore, w.flags.Snapshot()) && slices.Equal(selBefore, stepSelection(sn)) {
			break
		}
	}

	if sn.visible != wasVisible && !initial {
		w.trace.EmitStepVisibilityChanged(sn.step.Name, sn.visible)
	}
	return nil
}

// stepSelection lists the selection of every option of the step, in
// declared order.
func stepSelection(sn *stepNode) []bool {
	var out []bool
	for gi := range sn.groups {
		for oi := range sn.groups[gi].options {
			out = append(out, sn.groups[gi].options[oi].selected)
		}
	}
	return out
}

func (w *Wizard) passGroup(sn *stepNode, gn *groupNode, initial bool) error {
	radio := gn.grp.Type == schema.SelectExactlyOne || gn.grp.Type == schema.SelectAtMostOne
	forcedOn, forcedOff := -1, -1

	for _, oi := range gn.order {
		on := &gn.options[oi]
		if on.placeholder() {
			continue
		}
		cat, err := eval.ResolveCategory(on.opt.Category, w.flags, w.files)
		if err != nil {
			return fmt.Errorf("option %q category: %w", w.label(on.ref), err)
		}
		on.category = cat
		on.enabled = cat != schema.CategoryRequired && cat != schema.CategoryNotUsable

		if initial {
			on.selected = cat == schema.CategoryRequired || cat == schema.CategoryRecommended
			continue
		}
		switch {
		case cat == schema.CategoryRequired && !on.selected:
			if radio && (forcedOn >= 0 || w.requiredSelected(gn)) {
				continue
			}
			on.selected = true
			forcedOn = oi
			w.trace.EmitOptionAutoCorrected(w.label(on.ref), string(cat), true)
		case cat == schema.CategoryNotUsable && on.selected && gn.grp.Type != schema.SelectAll:
			on.selected = false
			if forcedOff < 0 {
				forcedOff = oi
			}
			w.trace.EmitOptionAutoCorrected(w.label(on.ref), string(cat), false)
		}
	}

	changed := forcedOn
	if changed < 0 {
		changed = forcedOff
	}
	w.enforce(gn, changed)
	w.syncFlags(sn, gn)
	return nil
}

// requiredSelected reports whether a Required option of the group is selected.
func (w *Wizard) requiredSelected(gn *groupNode) bool {
	for i := range gn.options {
		on := &gn.options[i]
		if !on.placeholder() && on.selected && on.category == schema.CategoryRequired {
			return true
		}
	}
	return false
}

// enforce applies the group's cardinality rule. changed is a declared option
// index or -1.
func (w *Wizard) enforce(gn *groupNode, changed int) group.Result {
	members := make([]group.Member, len(gn.order))
	at := -1
	for i, oi := range gn.order {
		on := &gn.options[oi]
		members[i] = group.Member{Selected: on.selected, Enabled: on.enabled, Placeholder: on.placeholder()}
		if oi == changed {
			at = i
		}
	}
	res := group.Enforce(gn.grp.Type, members, at)
	for i, m := range res.Members {
		on := &gn.options[gn.order[i]]
		on.selected = m.Selected
		on.enabled = m.Enabled
	}
	return res
}

// syncFlags makes the flag store reflect the group: selected options of a
// visible step contribute their flags, everything else contributes nothing.
func (w *Wizard) syncFlags(sn *stepNode, gn *groupNode) {
	for i := range gn.options {
		on := &gn.options[i]
		if on.placeholder() {
			continue
		}
		id := on.ref.String()
		if sn.visible && on.selected {
			if !w.flags.Contributes(id) {
				w.flags.Apply(flags.Owner{ID: id, Rank: on.rank}, on.flags)
			}
			continue
		}
		w.flags.Remove(id)
	}
}

// updateVisible rebuilds the visible-step ordering and keeps the active step
// when it is still visible, else snaps to the nearest earlier visible step.
func (w *Wizard) updateVisible() {
	prev := -1
	if w.position >= 0 && w.position < len(w.visible) {
		prev = w.visible[w.position]
	}

	w.visible = w.visible[:0]
	for _, si := range w.stepOrder {
		if w.steps[si].visible {
			w.visible = append(w.visible, si)
		}
	}

	if len(w.visible) == 0 {
		w.position = -1
		w.active = nil
		return
	}

	next := 0
	if prev >= 0 {
		for i, si := range w.visible {
			if w.stepPos[si] <= w.stepPos[prev] {
				next = i
			}
		}
	}
	w.position = next

	cur := w.visible[next]
	if cur != prev {
		w.active = nil
		w.steps[cur].visited = true
		w.trace.EmitStepEntered(w.steps[cur].step.Name, next, len(w.visible))
	}
}
