// Package engine implements the install wizard state machine: per-run view
// state over an immutable module, driven by toggles and step navigation.
package engine

import (
	"fmt"

	"github.com/ormasoftchile/fomod/pkg/kernel/eval"
	"github.com/ormasoftchile/fomod/pkg/kernel/flags"
	"github.com/ormasoftchile/fomod/pkg/kernel/schema"
	"github.com/ormasoftchile/fomod/pkg/kernel/trace"
)

// Config configures a wizard run.
type Config struct {
	RunID      string
	Trace      *trace.Writer       // nil disables tracing
	Files      eval.FileStateQuery // nil reports every file as Missing
	FlagPolicy flags.Policy        // empty means flags.DocumentOrder
}

// State is the navigation state of a wizard.
type State string

const (
	StateBrowsing       State = "browsing"
	StateReadyToInstall State = "ready_to_install"
)

// OptionRef addresses an option by declared indices. Option equal to the
// number of declared options addresses the group's placeholder.
type OptionRef struct {
	Step   int `json:"step"`
	Group  int `json:"group"`
	Option int `json:"option"`
}

func (r OptionRef) String() string {
	return fmt.Sprintf("%d/%d/%d", r.Step, r.Group, r.Option)
}

// PlaceholderName is the display name of the synthetic "nothing selected" option.
const PlaceholderName = "None"

type optionNode struct {
	ref      OptionRef
	opt      *schema.Option // nil for the placeholder
	rank     int
	flags    map[string]string
	selected bool
	enabled  bool
	category schema.Category
}

func (o *optionNode) placeholder() bool { return o.opt == nil }

type groupNode struct {
	grp     *schema.Group
	order   []int // iteration order of option indices, placeholder last
	options []optionNode
}

type stepNode struct {
	step    *schema.Step
	order   []int // iteration order of group indices
	groups  []groupNode
	visible bool
	visited bool
}

// Wizard owns the view state and flag store of one run over a module.
// It is single-threaded and not reentrant.
type Wizard struct {
	mod   *schema.Module
	info  schema.Info
	cfg   Config
	trace *trace.Writer
	files eval.FileStateQuery
	flags *flags.Store

	steps     []stepNode
	stepOrder []int // iteration order of step indices
	stepPos   []int // step index -> position in stepOrder
	visible   []int // visible step indices, iteration order
	position  int   // index into visible, -1 when none
	state     State
	active    *OptionRef

	initialized bool
	busy        bool
}

// New builds the view state for mod and runs the initial evaluation pass.
// A nil module, or one that cannot be evaluated, yields an unusable Wizard
// together with the error; every operation on it fails with UNINITIALIZED.
func New(mod *schema.Module, info *schema.Info, cfg Config) (*Wizard, error) {
	w := &Wizard{cfg: cfg, trace: cfg.Trace, position: -1, state: StateBrowsing}
	if mod == nil {
		return w, schema.NewErrorf(schema.ErrCodeUninitialized, "", "module is required")
	}
	if !cfg.FlagPolicy.Valid() {
		return w, schema.Structuralf("flag_policy", "unknown flag policy %q", cfg.FlagPolicy)
	}
	w.mod = mod
	if info != nil {
		w.info = *info
	}
	w.files = cfg.Files
	if w.files == nil {
		w.files = eval.NoFiles
	}
	w.flags = flags.New(cfg.FlagPolicy)

	if err := w.build(); err != nil {
		return &Wizard{cfg: cfg, position: -1, state: StateBrowsing}, err
	}
	if err := w.pass(0, true); err != nil {
		return &Wizard{cfg: cfg, position: -1, state: StateBrowsing}, fmt.Errorf("initial evaluation: %w", err)
	}
	w.updateVisible()
	w.initialized = true

	w.trace.EmitWizardStart(mod.Name, len(mod.Steps), len(w.visible))
	return w, nil
}

// build creates one view node per schema node, in declared order.
func (w *Wizard) build() error {
	var err error
	w.stepOrder, err = w.mod.StepPermutation()
	if err != nil {
		return err
	}
	w.steps = make([]stepNode, len(w.mod.Steps))
	w.stepPos = make([]int, len(w.mod.Steps))
	for pos, si := range w.stepOrder {
		w.stepPos[si] = pos
	}

	rank := 0
	for _, si := range w.stepOrder {
		st := &w.mod.Steps[si]
		sn := &w.steps[si]
		sn.step = st
		if sn.order, err = st.GroupPermutation(); err != nil {
			return err
		}
		sn.groups = make([]groupNode, len(st.Groups))
		for _, gi := range sn.order {
			grp := &st.Groups[gi]
			gn := &sn.groups[gi]
			gn.grp = grp
			if gn.order, err = grp.OptionPermutation(); err != nil {
				return err
			}
			n := len(grp.Options)
			size := n
			if grp.Type.RequiresSelection() {
				size++
				gn.order = append(gn.order, n)
			}
			gn.options = make([]optionNode, size)
			for _, oi := range gn.order {
				on := &gn.options[oi]
				on.ref = OptionRef{Step: si, Group: gi, Option: oi}
				on.rank = rank
				rank++
				if oi == n {
					on.enabled = true
					on.category = schema.CategoryOptional
					continue
				}
				on.opt = &grp.Options[oi]
				if len(on.opt.Flags) > 0 {
					on.flags = make(map[string]string, len(on.opt.Flags))
					for _, f := range on.opt.Flags {
						on.flags[f.Name] = f.Value
					}
				}
			}
		}
	}
	return nil
}

// begin guards a public operation against use before construction and
// against reentry from a hook fired during a cascade.
func (w *Wizard) begin() error {
	if w == nil || !w.initialized {
		return schema.NewErrorf(schema.ErrCodeUninitialized, "", "wizard is not initialized")
	}
	if w.busy {
		return schema.NewErrorf(schema.ErrCodeReentrant, "", "wizard operation invoked during a cascade")
	}
	w.busy = true
	return nil
}

func (w *Wizard) end() {
	w.busy = false
}

// Initialized reports whether construction succeeded.
func (w *Wizard) Initialized() bool {
	return w != nil && w.initialized
}

// Info returns the module metadata record.
func (w *Wizard) Info() schema.Info {
	if w == nil {
		return schema.Info{}
	}
	return w.info
}

// Module returns the module the wizard runs over, nil when uninitialized.
func (w *Wizard) Module() *schema.Module {
	if !w.Initialized() {
		return nil
	}
	return w.mod
}

// State returns the navigation state.
func (w *Wizard) State() State {
	if w == nil {
		return StateBrowsing
	}
	return w.state
}

// Flags returns a copy of the effective flag values.
func (w *Wizard) Flags() map[string]string {
	if !w.Initialized() {
		return map[string]string{}
	}
	return w.flags.Snapshot()
}

// Find resolves names to an option reference. The placeholder of a group
// that has one is addressable as PlaceholderName when no real option uses
// that name.
func (w *Wizard) Find(step, group, option string) (OptionRef, error) {
	if !w.Initialized() {
		return OptionRef{}, schema.NewErrorf(schema.ErrCodeUninitialized, "", "wizard is not initialized")
	}
	si, err := w.findStep(step)
	if err != nil {
		return OptionRef{}, err
	}
	gi, err := w.findGroup(si, group)
	if err != nil {
		return OptionRef{}, err
	}
	oi, err := w.findOption(si, gi, option)
	if err != nil {
		return OptionRef{}, err
	}
	return OptionRef{Step: si, Group: gi, Option: oi}, nil
}

func (w *Wizard) findStep(name string) (int, error) {
	for _, si := range w.stepOrder {
		if w.mod.Steps[si].Name == name {
			return si, nil
		}
	}
	return -1, schema.NewErrorf(schema.ErrCodeUnknownIdentifier, "", "unknown step %q", name)
}

func (w *Wizard) findGroup(si int, name string) (int, error) {
	sn := &w.steps[si]
	for _, gi := range sn.order {
		if sn.groups[gi].grp.Name == name {
			return gi, nil
		}
	}
	return -1, schema.NewErrorf(schema.ErrCodeUnknownIdentifier, "", "unknown group %q in step %q", name, sn.step.Name)
}

func (w *Wizard) findOption(si, gi int, name string) (int, error) {
	gn := &w.steps[si].groups[gi]
	placeholder := -1
	for _, oi := range gn.order {
		on := &gn.options[oi]
		if on.placeholder() {
			placeholder = oi
			continue
		}
		if on.opt.Name == name {
			return oi, nil
		}
	}
	if placeholder >= 0 && name == PlaceholderName {
		return placeholder, nil
	}
	return -1, schema.NewErrorf(schema.ErrCodeUnknownIdentifier, "", "unknown option %q in group %q", name, gn.grp.Name)
}

// node returns the view node addressed by ref.
func (w *Wizard) node(ref OptionRef) (*optionNode, error) {
	if ref.Step < 0 || ref.Step >= len(w.steps) {
		return nil, schema.Structuralf(ref.String(), "step index out of range")
	}
	sn := &w.steps[ref.Step]
	if ref.Group < 0 || ref.Group >= len(sn.groups) {
		return nil, schema.Structuralf(ref.String(), "group index out of range")
	}
	gn := &sn.groups[ref.Group]
	if ref.Option < 0 || ref.Option >= len(gn.options) {
		return nil, schema.Structuralf(ref.String(), "option index out of range")
	}
	return &gn.options[ref.Option], nil
}

// label names an option for traces: step/group/option.
func (w *Wizard) label(ref OptionRef) string {
	sn := &w.steps[ref.Step]
	gn := &sn.groups[ref.Group]
	name := PlaceholderName
	if on := &gn.options[ref.Option]; !on.placeholder() {
		name = on.opt.Name
	}
	return sn.step.Name + "/" + gn.grp.Name + "/" + name
}

// Path returns the Step/Group/Option name of ref. The placeholder is named
// PlaceholderName.
func (w *Wizard) Path(ref OptionRef) (string, error) {
	if !w.Initialized() {
		return "", schema.NewErrorf(schema.ErrCodeUninitialized, "", "wizard is not initialized")
	}
	if _, err := w.node(ref); err != nil {
		return "", err
	}
	return w.label(ref), nil
}
