package engine

import (
	"github.com/ormasoftchile/fomod/pkg/kernel/schema"
)

// OptionView is the read-only state of one option node.
type OptionView struct {
	Ref         OptionRef       `json:"ref"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Category    schema.Category `json:"category"`
	Selected    bool            `json:"selected"`
	Enabled     bool            `json:"enabled"`
	Placeholder bool            `json:"placeholder,omitempty"`
}

// GroupView is the read-only state of one group, options in iteration order.
type GroupView struct {
	Index   int              `json:"index"`
	Name    string           `json:"name"`
	Type    schema.GroupType `json:"type"`
	Options []OptionView     `json:"options"`
}

// StepView is the read-only state of one step, groups in iteration order.
type StepView struct {
	Index   int         `json:"index"`
	Name    string      `json:"name"`
	Visible bool        `json:"visible"`
	Visited bool        `json:"visited"`
	Groups  []GroupView `json:"groups"`
}

// Snapshot is the complete view state of a wizard. Two snapshots compare
// equal with reflect.DeepEqual exactly when the wizard state is the same.
type Snapshot struct {
	State    State             `json:"state"`
	Position int               `json:"position"`
	Visible  []int             `json:"visible"`
	Active   *OptionRef        `json:"active,omitempty"`
	Steps    []StepView        `json:"steps"`
	Flags    map[string]string `json:"flags"`
}

func (w *Wizard) optionView(on *optionNode) OptionView {
	v := OptionView{
		Ref:         on.ref,
		Name:        PlaceholderName,
		Category:    on.category,
		Selected:    on.selected,
		Enabled:     on.enabled,
		Placeholder: on.placeholder(),
	}
	if !on.placeholder() {
		v.Name = on.opt.Name
		v.Description = on.opt.Description
		v.Image = on.opt.Image
	}
	return v
}

// showPlaceholder reports whether a group's placeholder is offered to the
// user: while it holds the selection, or when no real option can be chosen.
func showPlaceholder(gn *groupNode) bool {
	usable := false
	for i := range gn.options {
		on := &gn.options[i]
		if on.placeholder() && on.selected {
			return true
		}
		if !on.placeholder() && on.enabled {
			usable = true
		}
	}
	return !usable
}

// stepView renders sn. With all set, placeholders are always included.
func (w *Wizard) stepView(si int, all bool) StepView {
	sn := &w.steps[si]
	sv := StepView{
		Index:   si,
		Name:    sn.step.Name,
		Visible: sn.visible,
		Visited: sn.visited,
		Groups:  make([]GroupView, 0, len(sn.order)),
	}
	for _, gi := range sn.order {
		gn := &sn.groups[gi]
		gv := GroupView{
			Index:   gi,
			Name:    gn.grp.Name,
			Type:    gn.grp.Type,
			Options: make([]OptionView, 0, len(gn.order)),
		}
		withPlaceholder := all || showPlaceholder(gn)
		for _, oi := range gn.order {
			on := &gn.options[oi]
			if on.placeholder() && !withPlaceholder {
				continue
			}
			gv.Options = append(gv.Options, w.optionView(on))
		}
		sv.Groups = append(sv.Groups, gv)
	}
	return sv
}

// VisibleSteps returns the visible steps in iteration order.
func (w *Wizard) VisibleSteps() ([]StepView, error) {
	if err := w.begin(); err != nil {
		return nil, err
	}
	defer w.end()
	out := make([]StepView, 0, len(w.visible))
	for _, si := range w.visible {
		out = append(out, w.stepView(si, false))
	}
	return out, nil
}

// ActiveStep returns the step the wizard is positioned on.
func (w *Wizard) ActiveStep() (StepView, error) {
	if err := w.begin(); err != nil {
		return StepView{}, err
	}
	defer w.end()
	if w.position < 0 {
		return StepView{}, schema.Structuralf("", "no visible step")
	}
	return w.stepView(w.visible[w.position], false), nil
}

// ActiveOption returns the focused option, nil when none is focused.
func (w *Wizard) ActiveOption() *OptionRef {
	if !w.Initialized() || w.active == nil {
		return nil
	}
	r := *w.active
	return &r
}

// Option returns the state of a single option.
func (w *Wizard) Option(ref OptionRef) (OptionView, error) {
	if !w.Initialized() {
		return OptionView{}, schema.NewErrorf(schema.ErrCodeUninitialized, "", "wizard is not initialized")
	}
	on, err := w.node(ref)
	if err != nil {
		return OptionView{}, err
	}
	return w.optionView(on), nil
}

// Snapshot captures the full view state, hidden steps and placeholders
// included.
func (w *Wizard) Snapshot() (Snapshot, error) {
	if err := w.begin(); err != nil {
		return Snapshot{}, err
	}
	defer w.end()
	s := Snapshot{
		State:    w.state,
		Position: w.position,
		Visible:  append([]int{}, w.visible...),
		Active:   w.ActiveOption(),
		Steps:    make([]StepView, 0, len(w.stepOrder)),
		Flags:    w.flags.Snapshot(),
	}
	for _, si := range w.stepOrder {
		s.Steps = append(s.Steps, w.stepView(si, true))
	}
	return s, nil
}
