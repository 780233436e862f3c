package engine

import (
	"fmt"
	"slices"
	"sort"

	"github.com/ormasoftchile/fomod/pkg/kernel/eval"
	"github.com/ormasoftchile/fomod/pkg/kernel/schema"
)

// PlanEntry is one resolved copy instruction. Option is empty for the
// module's required files.
type PlanEntry struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Priority    int    `json:"priority"`
	Option      string `json:"option,omitempty"`
}

// InstallPlan is the outcome of a wizard run: what would be installed.
type InstallPlan struct {
	Module  string            `json:"module"`
	Info    schema.Info       `json:"info"`
	Files   []PlanEntry       `json:"files"`
	Flags   map[string]string `json:"flags"`
	Options []string          `json:"options"`
}

// ModuleSatisfied evaluates the module's gating dependency against the
// current flags and host files.
func (w *Wizard) ModuleSatisfied() (bool, error) {
	if !w.Initialized() {
		return false, schema.NewErrorf(schema.ErrCodeUninitialized, "", "wizard is not initialized")
	}
	ok, err := eval.Evaluate(w.mod.Dependencies, w.flags, w.files)
	if err != nil {
		return false, fmt.Errorf("module dependencies: %w", err)
	}
	return ok, nil
}

// Plan resolves the files the current selection installs: the module's
// required files and the files of selected options in visible steps.
// Entries are ordered by ascending priority, then by declaration order in
// the document; among entries with the same destination the last one in
// that order wins.
func (w *Wizard) Plan() (*InstallPlan, error) {
	if err := w.begin(); err != nil {
		return nil, err
	}
	defer w.end()

	ok, err := eval.Evaluate(w.mod.Dependencies, w.flags, w.files)
	if err != nil {
		return nil, fmt.Errorf("module dependencies: %w", err)
	}
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeModuleUnmet, "dependencies", "module %q dependencies are not met", w.mod.Name)
	}

	p := &InstallPlan{
		Module:  w.mod.Name,
		Info:    w.info,
		Flags:   w.flags.Snapshot(),
		Options: []string{},
	}
	var entries []planItem
	for fi, f := range w.mod.RequiredFiles {
		entries = append(entries, planItem{planEntry(f, ""), [4]int{-1, 0, 0, fi}})
	}
	for _, si := range w.visible {
		sn := &w.steps[si]
		for _, gi := range sn.order {
			gn := &sn.groups[gi]
			for _, oi := range gn.order {
				on := &gn.options[oi]
				if on.placeholder() || !on.selected {
					continue
				}
				label := w.label(on.ref)
				p.Options = append(p.Options, label)
				for fi, f := range on.opt.Files {
					key := [4]int{on.ref.Step, on.ref.Group, on.ref.Option, fi}
					entries = append(entries, planItem{planEntry(f, label), key})
				}
			}
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority < entries[j].Priority
		}
		return slices.Compare(entries[i].declared[:], entries[j].declared[:]) < 0
	})
	ordered := make([]PlanEntry, len(entries))
	for i, e := range entries {
		ordered[i] = e.PlanEntry
	}
	p.Files = dedupeDestinations(ordered)

	w.trace.EmitPlanBuilt(len(p.Files))
	return p, nil
}

// planItem carries the declared position of an entry: step, group, option
// and file index, with -1 as the step of required files.
type planItem struct {
	PlanEntry
	declared [4]int
}

func planEntry(f schema.File, option string) PlanEntry {
	dst := f.Destination
	if dst == "" {
		dst = f.Source
	}
	return PlanEntry{Source: f.Source, Destination: dst, Priority: f.Priority, Option: option}
}

// dedupeDestinations keeps the last entry per destination, preserving the
// relative order of the survivors.
func dedupeDestinations(entries []PlanEntry) []PlanEntry {
	seen := make(map[string]bool, len(entries))
	out := make([]PlanEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if seen[entries[i].Destination] {
			continue
		}
		seen[entries[i].Destination] = true
		out = append(out, entries[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
