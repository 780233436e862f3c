package engine

// Toggle requests a selection change for one option. Disabled options and
// no-change requests are ignored. A change undone by the group rule is
// traced, not returned as an error.
func (w *Wizard) Toggle(ref OptionRef, selected bool) error {
	if err := w.begin(); err != nil {
		return err
	}
	defer w.end()
	_, err := w.toggle(ref, selected)
	return err
}

// toggle reports whether the request was applied (false for disabled options).
func (w *Wizard) toggle(ref OptionRef, selected bool) (bool, error) {
	on, err := w.node(ref)
	if err != nil {
		return false, err
	}
	if !on.enabled {
		return false, nil
	}
	if on.selected == selected {
		return true, nil
	}

	on.selected = selected
	w.trace.EmitOptionToggled(w.label(ref), selected)

	sn := &w.steps[ref.Step]
	gn := &sn.groups[ref.Group]
	if res := w.enforce(gn, ref.Option); res.Reverted {
		w.trace.EmitConstraintReverted(w.label(ref), string(gn.grp.Type), selected)
	}
	w.syncFlags(sn, gn)
	return true, w.recompute(w.stepPos[ref.Step])
}

// StepForward moves to the next visible step and marks it visited. On the
// last visible step it switches to ReadyToInstall instead.
func (w *Wizard) StepForward() error {
	if err := w.begin(); err != nil {
		return err
	}
	defer w.end()

	if w.state == StateReadyToInstall {
		return nil
	}
	if w.position < 0 || w.position >= len(w.visible)-1 {
		w.state = StateReadyToInstall
		w.trace.EmitReadyToInstall(w.selectedCount())
		return nil
	}
	w.position++
	w.active = nil
	sn := &w.steps[w.visible[w.position]]
	sn.visited = true
	w.trace.EmitStepEntered(sn.step.Name, w.position, len(w.visible))
	return nil
}

// StepBack moves to the previous visible step. From ReadyToInstall it
// returns to browsing the last visible step. Flags are not touched.
func (w *Wizard) StepBack() error {
	if err := w.begin(); err != nil {
		return err
	}
	defer w.end()

	if w.state == StateReadyToInstall {
		w.state = StateBrowsing
		return nil
	}
	if w.position <= 0 {
		return nil
	}
	w.position--
	w.active = nil
	sn := &w.steps[w.visible[w.position]]
	w.trace.EmitStepEntered(sn.step.Name, w.position, len(w.visible))
	return nil
}

// IsLastVisibleStep reports whether the active step is the last visible one.
func (w *Wizard) IsLastVisibleStep() bool {
	if !w.Initialized() {
		return false
	}
	return w.position == len(w.visible)-1
}

// Position returns the index of the active step within the visible ordering,
// or -1 when no step is visible.
func (w *Wizard) Position() int {
	if !w.Initialized() {
		return -1
	}
	return w.position
}

// VisibleStepIndices returns the declared indices of the visible steps, in
// iteration order.
func (w *Wizard) VisibleStepIndices() []int {
	if !w.Initialized() {
		return nil
	}
	out := make([]int, len(w.visible))
	copy(out, w.visible)
	return out
}

// SetActiveOption focuses an option for detail display.
func (w *Wizard) SetActiveOption(ref OptionRef) error {
	if err := w.begin(); err != nil {
		return err
	}
	defer w.end()
	if _, err := w.node(ref); err != nil {
		return err
	}
	r := ref
	w.active = &r
	return nil
}

// ClearActiveOption drops the focused option.
func (w *Wizard) ClearActiveOption() {
	if w.Initialized() {
		w.active = nil
	}
}

// DisplayImage returns the image to show: the focused option's image, else
// the first option image of the active step, else the module header image.
func (w *Wizard) DisplayImage() string {
	if !w.Initialized() {
		return ""
	}
	if w.active != nil {
		if on, err := w.node(*w.active); err == nil && !on.placeholder() && on.opt.Image != "" {
			return on.opt.Image
		}
	}
	if w.position >= 0 {
		sn := &w.steps[w.visible[w.position]]
		for _, gi := range sn.order {
			gn := &sn.groups[gi]
			for _, oi := range gn.order {
				if on := &gn.options[oi]; !on.placeholder() && on.opt.Image != "" {
					return on.opt.Image
				}
			}
		}
	}
	return w.mod.Image.Path
}

func (w *Wizard) selectedCount() int {
	n := 0
	for _, si := range w.visible {
		sn := &w.steps[si]
		for gi := range sn.groups {
			for oi := range sn.groups[gi].options {
				if on := &sn.groups[gi].options[oi]; on.selected && !on.placeholder() {
					n++
				}
			}
		}
	}
	return n
}
