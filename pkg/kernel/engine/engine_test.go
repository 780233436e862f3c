package engine

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/ormasoftchile/fomod/pkg/kernel/eval"
	"github.com/ormasoftchile/fomod/pkg/kernel/flags"
	"github.com/ormasoftchile/fomod/pkg/kernel/schema"
	"github.com/ormasoftchile/fomod/pkg/kernel/trace"
)

// --- fixtures ---

func option(name string, cat schema.Category, fl ...schema.Flag) schema.Option {
	return schema.Option{Name: name, Category: schema.CategoryDescriptor{Default: cat}, Flags: fl}
}

func flagIs(name, value string) *schema.Dependency {
	return &schema.Dependency{Flags: []schema.FlagDependency{{Name: name, Value: value}}}
}

func singleStep(groupType schema.GroupType, opts ...schema.Option) *schema.Module {
	return &schema.Module{
		Name: "single",
		Steps: []schema.Step{{
			Name:   "Main",
			Groups: []schema.Group{{Name: "Choice", Type: groupType, Options: opts}},
		}},
	}
}

func mustNew(t *testing.T, mod *schema.Module, cfg Config) *Wizard {
	t.Helper()
	w, err := New(mod, &schema.Info{Name: mod.Name, Version: "1.0"}, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func mustFind(t *testing.T, w *Wizard, step, group, opt string) OptionRef {
	t.Helper()
	ref, err := w.Find(step, group, opt)
	if err != nil {
		t.Fatalf("Find(%s/%s/%s): %v", step, group, opt, err)
	}
	return ref
}

func isSelected(t *testing.T, w *Wizard, ref OptionRef) bool {
	t.Helper()
	v, err := w.Option(ref)
	if err != nil {
		t.Fatal(err)
	}
	return v.Selected
}

func mustSnapshot(t *testing.T, w *Wizard) Snapshot {
	t.Helper()
	s, err := w.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// --- construction ---

func TestNew_NilModule(t *testing.T) {
	w, err := New(nil, nil, Config{})
	if !schema.HasCode(err, schema.ErrCodeUninitialized) {
		t.Fatalf("err = %v, want UNINITIALIZED", err)
	}
	if w == nil {
		t.Fatal("expected an unusable wizard, got nil")
	}
	if err := w.Toggle(OptionRef{}, true); !schema.HasCode(err, schema.ErrCodeUninitialized) {
		t.Errorf("Toggle err = %v", err)
	}
	if err := w.StepForward(); !schema.HasCode(err, schema.ErrCodeUninitialized) {
		t.Errorf("StepForward err = %v", err)
	}
	if _, err := w.Plan(); !errors.Is(err, schema.ErrStructural) {
		t.Errorf("Plan err = %v, want structural", err)
	}
}

func TestNew_UnknownFlagPolicy(t *testing.T) {
	w, err := New(singleStep(schema.SelectAny, option("A", schema.CategoryOptional)), nil, Config{FlagPolicy: "first-wins"})
	if !errors.Is(err, schema.ErrStructural) {
		t.Fatalf("err = %v, want structural", err)
	}
	if w.Initialized() {
		t.Error("wizard should be unusable")
	}
}

func TestZeroWizard_Uninitialized(t *testing.T) {
	var w Wizard
	if err := w.StepBack(); !schema.HasCode(err, schema.ErrCodeUninitialized) {
		t.Errorf("err = %v", err)
	}
	if _, err := w.Snapshot(); !schema.HasCode(err, schema.ErrCodeUninitialized) {
		t.Errorf("err = %v", err)
	}
	if w.Position() != -1 {
		t.Errorf("position = %d", w.Position())
	}
}

func TestNew_DefaultSelectionFromCategory(t *testing.T) {
	w := mustNew(t, singleStep(schema.SelectAny,
		option("Req", schema.CategoryRequired),
		option("Rec", schema.CategoryRecommended),
		option("Opt", schema.CategoryOptional),
		option("Bad", schema.CategoryNotUsable),
		option("Maybe", schema.CategoryCouldBeUsable),
	), Config{})

	want := map[string][2]bool{ // selected, enabled
		"Req":   {true, false},
		"Rec":   {true, true},
		"Opt":   {false, true},
		"Bad":   {false, false},
		"Maybe": {false, true},
	}
	for name, exp := range want {
		v, err := w.Option(mustFind(t, w, "Main", "Choice", name))
		if err != nil {
			t.Fatal(err)
		}
		if v.Selected != exp[0] || v.Enabled != exp[1] {
			t.Errorf("%s: selected=%v enabled=%v, want %v", name, v.Selected, v.Enabled, exp)
		}
	}
}

func TestNew_FirstVisibleStepActiveAndVisited(t *testing.T) {
	mod := &schema.Module{
		Name: "m",
		Steps: []schema.Step{
			{Name: "Hidden", Visible: flagIs("never", "set"), Groups: []schema.Group{{Name: "G", Type: schema.SelectAny}}},
			{Name: "Shown", Groups: []schema.Group{{Name: "G", Type: schema.SelectAny}}},
		},
	}
	w := mustNew(t, mod, Config{})
	step, err := w.ActiveStep()
	if err != nil {
		t.Fatal(err)
	}
	if step.Name != "Shown" || !step.Visited {
		t.Errorf("active step = %+v", step)
	}
	if got := w.VisibleStepIndices(); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("visible = %v", got)
	}
}

func TestNew_NoVisibleSteps(t *testing.T) {
	mod := &schema.Module{
		Name:  "m",
		Steps: []schema.Step{{Name: "Hidden", Visible: flagIs("x", "1")}},
	}
	w := mustNew(t, mod, Config{})
	if w.Position() != -1 {
		t.Errorf("position = %d, want -1", w.Position())
	}
	if _, err := w.ActiveStep(); err == nil {
		t.Error("expected error for ActiveStep with no visible steps")
	}
}

func TestNew_MalformedVisibility(t *testing.T) {
	mod := &schema.Module{
		Name:  "m",
		Steps: []schema.Step{{Name: "S", Visible: &schema.Dependency{Operator: "Xor", Flags: []schema.FlagDependency{{Name: "a"}}}}},
	}
	w, err := New(mod, nil, Config{})
	if !errors.Is(err, schema.ErrStructural) {
		t.Fatalf("err = %v, want structural", err)
	}
	if w.Initialized() {
		t.Error("wizard should be unusable")
	}
}

func TestNew_StepOrderAscending(t *testing.T) {
	mod := &schema.Module{
		Name:      "m",
		StepOrder: schema.OrderAscending,
		Steps: []schema.Step{
			{Name: "beta"},
			{Name: "alpha"},
		},
	}
	w := mustNew(t, mod, Config{})
	if got := w.VisibleStepIndices(); !reflect.DeepEqual(got, []int{1, 0}) {
		t.Errorf("visible = %v, want [1 0]", got)
	}
}

func TestFind_Unknown(t *testing.T) {
	w := mustNew(t, singleStep(schema.SelectAny, option("A", schema.CategoryOptional)), Config{})
	cases := [][3]string{
		{"Nope", "Choice", "A"},
		{"Main", "Nope", "A"},
		{"Main", "Choice", "Nope"},
		{"Main", "Choice", PlaceholderName}, // SelectAny has no placeholder
	}
	for _, c := range cases {
		if _, err := w.Find(c[0], c[1], c[2]); !schema.HasCode(err, schema.ErrCodeUnknownIdentifier) {
			t.Errorf("Find(%v) err = %v", c, err)
		}
	}
}

func TestPath(t *testing.T) {
	w := mustNew(t, singleStep(schema.SelectExactlyOne, option("A", schema.CategoryOptional)), Config{})
	if p, err := w.Path(mustFind(t, w, "Main", "Choice", "A")); err != nil || p != "Main/Choice/A" {
		t.Errorf("Path = %q, %v", p, err)
	}
	if p, _ := w.Path(mustFind(t, w, "Main", "Choice", PlaceholderName)); p != "Main/Choice/None" {
		t.Errorf("placeholder path = %q", p)
	}
	if _, err := w.Path(OptionRef{Step: 3}); !errors.Is(err, schema.ErrStructural) {
		t.Errorf("out of range err = %v", err)
	}
}

// --- group rules through the wizard ---

func TestToggle_ExactlyOne(t *testing.T) {
	var buf bytes.Buffer
	w := mustNew(t, singleStep(schema.SelectExactlyOne,
		option("A", schema.CategoryRecommended),
		option("B", schema.CategoryOptional),
		option("C", schema.CategoryOptional),
	), Config{Trace: trace.NewWriter(&buf, "t")})

	a := mustFind(t, w, "Main", "Choice", "A")
	b := mustFind(t, w, "Main", "Choice", "B")
	c := mustFind(t, w, "Main", "Choice", "C")

	if !isSelected(t, w, a) {
		t.Fatal("A should be selected by default")
	}

	if err := w.Toggle(b, true); err != nil {
		t.Fatal(err)
	}
	if isSelected(t, w, a) || !isSelected(t, w, b) || isSelected(t, w, c) {
		t.Errorf("after selecting B: A=%v B=%v C=%v", isSelected(t, w, a), isSelected(t, w, b), isSelected(t, w, c))
	}

	if err := w.Toggle(b, false); err != nil {
		t.Fatalf("revert must not be an error: %v", err)
	}
	if !isSelected(t, w, b) {
		t.Error("deselecting the only selection should be reverted")
	}
	if !strings.Contains(buf.String(), "constraint_reverted") {
		t.Error("trace missing constraint_reverted")
	}
}

func TestToggle_ExactlyOnePlaceholder(t *testing.T) {
	w := mustNew(t, singleStep(schema.SelectExactlyOne,
		option("A", schema.CategoryOptional),
		option("B", schema.CategoryOptional),
	), Config{})

	none := mustFind(t, w, "Main", "Choice", PlaceholderName)
	if !isSelected(t, w, none) {
		t.Fatal("placeholder should hold the selection when no default exists")
	}
	steps, err := w.VisibleSteps()
	if err != nil {
		t.Fatal(err)
	}
	if n := len(steps[0].Groups[0].Options); n != 3 {
		t.Errorf("options shown = %d, want 3 with placeholder", n)
	}

	a := mustFind(t, w, "Main", "Choice", "A")
	if err := w.Toggle(a, true); err != nil {
		t.Fatal(err)
	}
	if isSelected(t, w, none) {
		t.Error("placeholder should be deselected once a real option is chosen")
	}
	steps, _ = w.VisibleSteps()
	if n := len(steps[0].Groups[0].Options); n != 2 {
		t.Errorf("options shown = %d, want 2 once placeholder is unused", n)
	}
}

func TestToggle_AtLeastOneLastDeselectReverted(t *testing.T) {
	var buf bytes.Buffer
	w := mustNew(t, singleStep(schema.SelectAtLeastOne,
		option("A", schema.CategoryRecommended, schema.Flag{Name: "a", Value: "1"}),
		option("B", schema.CategoryOptional),
	), Config{Trace: trace.NewWriter(&buf, "t")})
	a := mustFind(t, w, "Main", "Choice", "A")
	before := mustSnapshot(t, w)

	if err := w.Toggle(a, false); err != nil {
		t.Fatalf("revert must not be an error: %v", err)
	}
	if after := mustSnapshot(t, w); !reflect.DeepEqual(before, after) {
		t.Errorf("state changed:\nbefore %+v\nafter  %+v", before, after)
	}
	if w.Flags()["a"] != "1" {
		t.Errorf("flags = %v, want a=1", w.Flags())
	}
	if !strings.Contains(buf.String(), "constraint_reverted") {
		t.Error("trace missing constraint_reverted")
	}

	// With a second selection the first one may go.
	b := mustFind(t, w, "Main", "Choice", "B")
	if err := w.Toggle(b, true); err != nil {
		t.Fatal(err)
	}
	if err := w.Toggle(a, false); err != nil {
		t.Fatal(err)
	}
	if isSelected(t, w, a) || !isSelected(t, w, b) {
		t.Errorf("A=%v B=%v, want only B", isSelected(t, w, a), isSelected(t, w, b))
	}
	if _, ok := w.Flags()["a"]; ok {
		t.Error("flag a should be withdrawn with A")
	}
}

func TestToggle_AtMostOne(t *testing.T) {
	w := mustNew(t, singleStep(schema.SelectAtMostOne,
		option("A", schema.CategoryOptional, schema.Flag{Name: "pick", Value: "a"}),
		option("B", schema.CategoryOptional, schema.Flag{Name: "pick", Value: "b"}),
	), Config{})
	a := mustFind(t, w, "Main", "Choice", "A")
	b := mustFind(t, w, "Main", "Choice", "B")
	if isSelected(t, w, a) || isSelected(t, w, b) {
		t.Fatal("nothing should be selected by default")
	}

	if err := w.Toggle(a, true); err != nil {
		t.Fatal(err)
	}
	if err := w.Toggle(b, true); err != nil {
		t.Fatal(err)
	}
	if isSelected(t, w, a) || !isSelected(t, w, b) {
		t.Errorf("A=%v B=%v, want only B", isSelected(t, w, a), isSelected(t, w, b))
	}
	if w.Flags()["pick"] != "b" {
		t.Errorf("pick = %q, want b", w.Flags()["pick"])
	}

	if err := w.Toggle(b, false); err != nil {
		t.Fatal(err)
	}
	if isSelected(t, w, a) || isSelected(t, w, b) {
		t.Error("deselecting the only selection is allowed")
	}
	if _, ok := w.Flags()["pick"]; ok {
		t.Error("pick should be withdrawn")
	}
}

func TestToggle_DisabledIsNoop(t *testing.T) {
	w := mustNew(t, singleStep(schema.SelectAny,
		option("Req", schema.CategoryRequired),
		option("Bad", schema.CategoryNotUsable),
	), Config{})
	before := mustSnapshot(t, w)

	if err := w.Toggle(mustFind(t, w, "Main", "Choice", "Req"), false); err != nil {
		t.Fatal(err)
	}
	if err := w.Toggle(mustFind(t, w, "Main", "Choice", "Bad"), true); err != nil {
		t.Fatal(err)
	}
	if after := mustSnapshot(t, w); !reflect.DeepEqual(before, after) {
		t.Error("toggling disabled options changed state")
	}
}

func TestToggle_SelectAll(t *testing.T) {
	w := mustNew(t, singleStep(schema.SelectAll,
		option("A", schema.CategoryOptional),
		option("B", schema.CategoryOptional),
	), Config{})
	for _, name := range []string{"A", "B"} {
		v, _ := w.Option(mustFind(t, w, "Main", "Choice", name))
		if !v.Selected || v.Enabled {
			t.Errorf("%s = %+v, want selected and disabled", name, v)
		}
	}
}

func TestToggle_OutOfRange(t *testing.T) {
	w := mustNew(t, singleStep(schema.SelectAny, option("A", schema.CategoryOptional)), Config{})
	err := w.Toggle(OptionRef{Step: 0, Group: 0, Option: 5}, true)
	if !errors.Is(err, schema.ErrStructural) {
		t.Errorf("err = %v, want structural", err)
	}
}

// --- cascades ---

// cascadeModule: selecting "Enable X" in Base sets X=on, which makes Extras/Patch
// NotUsable and shows the Advanced step (gated on Y, set by "Show Advanced").
func cascadeModule() *schema.Module {
	patch := option("Patch", schema.CategoryOptional, schema.Flag{Name: "P", Value: "1"})
	patch.Category.Rules = []schema.CategoryRule{
		{When: *flagIs("X", "on"), Category: schema.CategoryNotUsable},
	}
	return &schema.Module{
		Name: "cascade",
		Steps: []schema.Step{
			{Name: "Base", Groups: []schema.Group{{
				Name: "Switches", Type: schema.SelectAny,
				Options: []schema.Option{
					option("Enable X", schema.CategoryOptional, schema.Flag{Name: "X", Value: "on"}),
					option("Show Advanced", schema.CategoryOptional, schema.Flag{Name: "Y", Value: "yes"}),
				},
			}}},
			{Name: "Advanced", Visible: flagIs("Y", "yes"), Groups: []schema.Group{{
				Name: "Tweaks", Type: schema.SelectAny,
				Options: []schema.Option{
					option("Tweak", schema.CategoryRecommended, schema.Flag{Name: "T", Value: "1"}),
				},
			}}},
			{Name: "Extras", Groups: []schema.Group{{
				Name: "Patches", Type: schema.SelectAny,
				Options: []schema.Option{patch},
			}}},
		},
	}
}

func TestCascade_NotUsableAutoDeselect(t *testing.T) {
	var buf bytes.Buffer
	w := mustNew(t, cascadeModule(), Config{Trace: trace.NewWriter(&buf, "t")})
	patch := mustFind(t, w, "Extras", "Patches", "Patch")

	if err := w.Toggle(patch, true); err != nil {
		t.Fatal(err)
	}
	if w.Flags()["P"] != "1" {
		t.Fatalf("P = %q", w.Flags()["P"])
	}

	if err := w.Toggle(mustFind(t, w, "Base", "Switches", "Enable X"), true); err != nil {
		t.Fatal(err)
	}
	v, _ := w.Option(patch)
	if v.Selected || v.Enabled || v.Category != schema.CategoryNotUsable {
		t.Errorf("patch = %+v, want deselected, disabled, NotUsable", v)
	}
	if _, ok := w.Flags()["P"]; ok {
		t.Error("flag P should be withdrawn with its option")
	}
	if !strings.Contains(buf.String(), "option_auto_corrected") {
		t.Error("trace missing option_auto_corrected")
	}

	// Clearing X makes Patch usable again but does not reselect it.
	if err := w.Toggle(mustFind(t, w, "Base", "Switches", "Enable X"), false); err != nil {
		t.Fatal(err)
	}
	v, _ = w.Option(patch)
	if v.Selected || !v.Enabled {
		t.Errorf("patch = %+v, want enabled and not selected", v)
	}
}

func TestCascade_StepVisibility(t *testing.T) {
	w := mustNew(t, cascadeModule(), Config{})
	show := mustFind(t, w, "Base", "Switches", "Show Advanced")

	if got := w.VisibleStepIndices(); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Fatalf("visible = %v", got)
	}
	if _, ok := w.Flags()["T"]; ok {
		t.Error("hidden step must not contribute flags")
	}

	if err := w.Toggle(show, true); err != nil {
		t.Fatal(err)
	}
	if got := w.VisibleStepIndices(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("visible = %v", got)
	}
	if w.Flags()["T"] != "1" {
		t.Errorf("T = %q, want 1 once Advanced is visible", w.Flags()["T"])
	}

	if err := w.Toggle(show, false); err != nil {
		t.Fatal(err)
	}
	if got := w.VisibleStepIndices(); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("visible = %v", got)
	}
	if _, ok := w.Flags()["T"]; ok {
		t.Error("T should be withdrawn when Advanced is hidden again")
	}
}

func TestCascade_PositionSnapsBack(t *testing.T) {
	w := mustNew(t, cascadeModule(), Config{})
	show := mustFind(t, w, "Base", "Switches", "Show Advanced")
	if err := w.Toggle(show, true); err != nil {
		t.Fatal(err)
	}
	if err := w.StepForward(); err != nil {
		t.Fatal(err)
	}
	if s, _ := w.ActiveStep(); s.Name != "Advanced" {
		t.Fatalf("active = %q", s.Name)
	}

	if err := w.Toggle(show, false); err != nil {
		t.Fatal(err)
	}
	s, _ := w.ActiveStep()
	if s.Name != "Base" || w.Position() != 0 {
		t.Errorf("active = %q at %d, want Base at 0", s.Name, w.Position())
	}
}

func TestCascade_EarlierStepsUntouched(t *testing.T) {
	// Step One's option turns NotUsable when Z is set, but Z is only set by
	// a later step, so it must never be re-evaluated by that toggle.
	a := option("A", schema.CategoryRecommended)
	a.Category.Rules = []schema.CategoryRule{{When: *flagIs("Z", "1"), Category: schema.CategoryNotUsable}}
	mod := &schema.Module{
		Name: "causal",
		Steps: []schema.Step{
			{Name: "One", Groups: []schema.Group{{Name: "G", Type: schema.SelectAny, Options: []schema.Option{a}}}},
			{Name: "Two", Groups: []schema.Group{{Name: "G", Type: schema.SelectAny, Options: []schema.Option{
				option("SetZ", schema.CategoryOptional, schema.Flag{Name: "Z", Value: "1"}),
			}}}},
		},
	}
	w := mustNew(t, mod, Config{})
	before := mustSnapshot(t, w).Steps[0]

	if err := w.Toggle(mustFind(t, w, "Two", "G", "SetZ"), true); err != nil {
		t.Fatal(err)
	}
	if after := mustSnapshot(t, w).Steps[0]; !reflect.DeepEqual(before, after) {
		t.Errorf("step One changed:\nbefore %+v\nafter  %+v", before, after)
	}
}

// sameStepModule: P turns NotUsable once X is set, and Q sets X. With
// shared, both live in one group; otherwise P's group comes first.
func sameStepModule(shared bool, pDefault schema.Category) *schema.Module {
	p := option("P", pDefault)
	p.Category.Rules = []schema.CategoryRule{{When: *flagIs("X", "1"), Category: schema.CategoryNotUsable}}
	q := option("Q", pDefault, schema.Flag{Name: "X", Value: "1"})
	groups := []schema.Group{
		{Name: "G0", Type: schema.SelectAny, Options: []schema.Option{p}},
		{Name: "G1", Type: schema.SelectAny, Options: []schema.Option{q}},
	}
	if shared {
		groups = []schema.Group{{Name: "G0", Type: schema.SelectAny, Options: []schema.Option{p, q}}}
	}
	return &schema.Module{Name: "same-step", Steps: []schema.Step{{Name: "S", Groups: groups}}}
}

func TestCascade_FlagSetterInSameStep(t *testing.T) {
	for _, tc := range []struct {
		name   string
		shared bool
	}{
		{"later group", false},
		{"same group", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := mustNew(t, sameStepModule(tc.shared, schema.CategoryOptional), Config{})
			qGroup := "G1"
			if tc.shared {
				qGroup = "G0"
			}
			p := mustFind(t, w, "S", "G0", "P")
			q := mustFind(t, w, "S", qGroup, "Q")

			if err := w.Toggle(p, true); err != nil {
				t.Fatal(err)
			}
			if err := w.Toggle(q, true); err != nil {
				t.Fatal(err)
			}
			if w.Flags()["X"] != "1" {
				t.Fatalf("flags = %v", w.Flags())
			}
			v, _ := w.Option(p)
			if v.Selected || v.Enabled || v.Category != schema.CategoryNotUsable {
				t.Errorf("P = %+v, want deselected, disabled, NotUsable", v)
			}

			first := mustSnapshot(t, w)
			if err := w.Recompute(0); err != nil {
				t.Fatal(err)
			}
			if second := mustSnapshot(t, w); !reflect.DeepEqual(first, second) {
				t.Errorf("recompute changed state:\nfirst  %+v\nsecond %+v", first, second)
			}

			if err := w.Toggle(q, false); err != nil {
				t.Fatal(err)
			}
			v, _ = w.Option(p)
			if v.Selected || !v.Enabled || v.Category != schema.CategoryOptional {
				t.Errorf("P = %+v, want enabled Optional and not selected", v)
			}
		})
	}
}

func TestNew_DefaultFlagReachesEarlierGroup(t *testing.T) {
	w := mustNew(t, sameStepModule(false, schema.CategoryRecommended), Config{})
	v, _ := w.Option(mustFind(t, w, "S", "G0", "P"))
	if v.Selected || v.Category != schema.CategoryNotUsable {
		t.Errorf("P = %+v, want NotUsable and deselected", v)
	}
	if !isSelected(t, w, mustFind(t, w, "S", "G1", "Q")) {
		t.Error("Q should keep its default selection")
	}

	first := mustSnapshot(t, w)
	if err := w.Recompute(0); err != nil {
		t.Fatal(err)
	}
	if second := mustSnapshot(t, w); !reflect.DeepEqual(first, second) {
		t.Errorf("recompute changed state:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestCascade_SelectAllNotUsableNotCorrected(t *testing.T) {
	var buf bytes.Buffer
	w := mustNew(t, singleStep(schema.SelectAll,
		option("A", schema.CategoryNotUsable, schema.Flag{Name: "a", Value: "1"}),
	), Config{Trace: trace.NewWriter(&buf, "t")})
	if err := w.Recompute(0); err != nil {
		t.Fatal(err)
	}
	if !isSelected(t, w, mustFind(t, w, "Main", "Choice", "A")) {
		t.Error("SelectAll keeps every option selected")
	}
	if w.Flags()["a"] != "1" {
		t.Errorf("flags = %v", w.Flags())
	}
	if strings.Contains(buf.String(), "option_auto_corrected") {
		t.Errorf("trace has a correction that never takes effect:\n%s", buf.String())
	}
}

func TestRecompute_Idempotent(t *testing.T) {
	w := mustNew(t, cascadeModule(), Config{})
	for _, ref := range []OptionRef{
		mustFind(t, w, "Extras", "Patches", "Patch"),
		mustFind(t, w, "Base", "Switches", "Show Advanced"),
		mustFind(t, w, "Base", "Switches", "Enable X"),
	} {
		if err := w.Toggle(ref, true); err != nil {
			t.Fatal(err)
		}
	}
	first := mustSnapshot(t, w)
	if err := w.Recompute(0); err != nil {
		t.Fatal(err)
	}
	second := mustSnapshot(t, w)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("recompute changed state:\nfirst  %+v\nsecond %+v", first, second)
	}

	if err := w.Recompute(99); !errors.Is(err, schema.ErrStructural) {
		t.Errorf("out of range recompute err = %v", err)
	}
}

func TestReentrantCall(t *testing.T) {
	tw := trace.NewWriter(io.Discard, "t")
	var w *Wizard
	var hookErr error
	tw.SetHook(func(e trace.Event) {
		if e.Type == trace.EventOptionToggled {
			hookErr = w.StepForward()
		}
	})
	w = mustNew(t, cascadeModule(), Config{Trace: tw})

	if err := w.Toggle(mustFind(t, w, "Base", "Switches", "Enable X"), true); err != nil {
		t.Fatal(err)
	}
	if !schema.HasCode(hookErr, schema.ErrCodeReentrant) {
		t.Errorf("hook err = %v, want REENTRANT_CALL", hookErr)
	}
	// The wizard is usable again after the cascade.
	if err := w.StepForward(); err != nil {
		t.Errorf("StepForward after cascade: %v", err)
	}
}

// --- flags ---

func policyModule() *schema.Module {
	return &schema.Module{
		Name: "policy",
		Steps: []schema.Step{
			{Name: "First", Groups: []schema.Group{{Name: "G", Type: schema.SelectAny, Options: []schema.Option{
				option("Early", schema.CategoryOptional, schema.Flag{Name: "F", Value: "early"}),
			}}}},
			{Name: "Second", Groups: []schema.Group{{Name: "G", Type: schema.SelectAny, Options: []schema.Option{
				option("Late", schema.CategoryOptional, schema.Flag{Name: "F", Value: "late"}),
			}}}},
		},
	}
}

func TestFlagPolicy(t *testing.T) {
	tests := []struct {
		policy flags.Policy
		want   string
	}{
		{"", "late"},
		{flags.DocumentOrder, "late"},
		{flags.LastWrite, "early"},
	}
	for _, tt := range tests {
		w := mustNew(t, policyModule(), Config{FlagPolicy: tt.policy})
		if err := w.Toggle(mustFind(t, w, "Second", "G", "Late"), true); err != nil {
			t.Fatal(err)
		}
		if err := w.Toggle(mustFind(t, w, "First", "G", "Early"), true); err != nil {
			t.Fatal(err)
		}
		if got := w.Flags()["F"]; got != tt.want {
			t.Errorf("policy %q: F = %q, want %q", tt.policy, got, tt.want)
		}
	}
}

func TestFlags_FollowSelection(t *testing.T) {
	w := mustNew(t, policyModule(), Config{})
	early := mustFind(t, w, "First", "G", "Early")
	if len(w.Flags()) != 0 {
		t.Fatalf("flags = %v, want empty", w.Flags())
	}
	w.Toggle(early, true)
	if w.Flags()["F"] != "early" {
		t.Errorf("F = %q", w.Flags()["F"])
	}
	w.Toggle(early, false)
	if len(w.Flags()) != 0 {
		t.Errorf("flags = %v, want empty after deselect", w.Flags())
	}
}

// --- host files ---

func TestFileCondition_QueriedLive(t *testing.T) {
	state := schema.FileMissing
	files := eval.QueryFunc(func(string) schema.FileState { return state })

	opt := option("Patch", schema.CategoryOptional)
	opt.Category.Rules = []schema.CategoryRule{{
		When:     schema.Dependency{Files: []schema.FileDependency{{Path: "base.esm", State: schema.FileActive}}},
		Category: schema.CategoryRecommended,
	}}
	mod := singleStep(schema.SelectAny, opt)
	w := mustNew(t, mod, Config{Files: files})
	ref := mustFind(t, w, "Main", "Choice", "Patch")

	if v, _ := w.Option(ref); v.Category != schema.CategoryOptional {
		t.Fatalf("category = %s", v.Category)
	}
	state = schema.FileActive
	if err := w.Recompute(0); err != nil {
		t.Fatal(err)
	}
	if v, _ := w.Option(ref); v.Category != schema.CategoryRecommended {
		t.Errorf("category = %s, want Recommended after host change", v.Category)
	}
}
