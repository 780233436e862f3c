package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ormasoftchile/fomod/pkg/kernel/eval"
	"github.com/ormasoftchile/fomod/pkg/kernel/schema"
)

func planModule() *schema.Module {
	tex := option("Textures", schema.CategoryRecommended)
	tex.Files = []schema.File{{Source: "a/tex.dds", Destination: "textures/a.dds"}}

	over := option("Override", schema.CategoryOptional)
	over.Files = []schema.File{
		{Source: "b/tex.dds", Destination: "textures/a.dds", Priority: 1},
		{Source: "b/readme.txt"},
	}

	hidden := option("Hidden", schema.CategoryRecommended)
	hidden.Files = []schema.File{{Source: "h/file", Destination: "hidden/file"}}

	return &schema.Module{
		Name:          "plan",
		RequiredFiles: []schema.File{{Source: "core.esp", Destination: "Data/core.esp"}},
		Steps: []schema.Step{
			{Name: "Main", Groups: []schema.Group{
				{Name: "Base", Type: schema.SelectAny, Options: []schema.Option{tex}},
				{Name: "Extra", Type: schema.SelectAny, Options: []schema.Option{over}},
			}},
			{Name: "Never", Visible: flagIs("never", "1"), Groups: []schema.Group{
				{Name: "G", Type: schema.SelectAny, Options: []schema.Option{hidden}},
			}},
		},
	}
}

func destinations(p *InstallPlan) []string {
	out := make([]string, len(p.Files))
	for i, f := range p.Files {
		out[i] = f.Destination + "<-" + f.Source
	}
	return out
}

func TestPlan_RequiredAndSelected(t *testing.T) {
	w := mustNew(t, planModule(), Config{})
	p, err := w.Plan()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Data/core.esp<-core.esp", "textures/a.dds<-a/tex.dds"}
	if got := destinations(p); !reflect.DeepEqual(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(p.Options, []string{"Main/Base/Textures"}) {
		t.Errorf("options = %v", p.Options)
	}
	if p.Info.Version != "1.0" {
		t.Errorf("info = %+v", p.Info)
	}
}

func TestPlan_PriorityOverride(t *testing.T) {
	w := mustNew(t, planModule(), Config{})
	if err := w.Toggle(mustFind(t, w, "Main", "Extra", "Override"), true); err != nil {
		t.Fatal(err)
	}
	p, err := w.Plan()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"Data/core.esp<-core.esp",
		"b/readme.txt<-b/readme.txt",
		"textures/a.dds<-b/tex.dds",
	}
	if got := destinations(p); !reflect.DeepEqual(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
}

func TestPlan_HigherPriorityWinsRegardlessOfOrder(t *testing.T) {
	mod := planModule()
	// Give the earlier option the higher priority.
	mod.Steps[0].Groups[0].Options[0].Files[0].Priority = 5
	w := mustNew(t, mod, Config{})
	w.Toggle(mustFind(t, w, "Main", "Extra", "Override"), true)

	p, err := w.Plan()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range p.Files {
		if f.Destination == "textures/a.dds" && f.Source != "a/tex.dds" {
			t.Errorf("textures/a.dds from %q, want a/tex.dds", f.Source)
		}
	}
}

func TestPlan_SamePriorityLaterWins(t *testing.T) {
	mod := planModule()
	mod.Steps[0].Groups[1].Options[0].Files[0].Priority = 0
	w := mustNew(t, mod, Config{})
	w.Toggle(mustFind(t, w, "Main", "Extra", "Override"), true)

	p, err := w.Plan()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range p.Files {
		if f.Destination == "textures/a.dds" && f.Source != "b/tex.dds" {
			t.Errorf("textures/a.dds from %q, want b/tex.dds", f.Source)
		}
	}
}

func TestPlan_SamePriorityFollowsDeclarationOrder(t *testing.T) {
	a := option("Alpha", schema.CategoryRecommended)
	a.Files = []schema.File{{Source: "alpha/x", Destination: "x"}}
	b := option("Beta", schema.CategoryRecommended)
	b.Files = []schema.File{{Source: "beta/x", Destination: "x"}}
	mod := singleStep(schema.SelectAny, a, b)
	// Descending iteration visits Beta first; Beta is still declared last.
	mod.Steps[0].Groups[0].OptionOrder = schema.OrderDescending

	w := mustNew(t, mod, Config{})
	p, err := w.Plan()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := destinations(p), []string{"x<-beta/x"}; !reflect.DeepEqual(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(p.Options, []string{"Main/Choice/Beta", "Main/Choice/Alpha"}) {
		t.Errorf("options = %v, want iteration order", p.Options)
	}
}

func TestPlan_ModuleDependencies(t *testing.T) {
	mod := planModule()
	mod.Dependencies = &schema.Dependency{Files: []schema.FileDependency{{Path: "Base.esm", State: schema.FileActive}}}

	w := mustNew(t, mod, Config{})
	ok, err := w.ModuleSatisfied()
	if err != nil || ok {
		t.Fatalf("ModuleSatisfied = %v, %v", ok, err)
	}
	_, err = w.Plan()
	if !schema.HasCode(err, schema.ErrCodeModuleUnmet) {
		t.Fatalf("err = %v, want MODULE_DEPENDENCIES_UNMET", err)
	}
	if errors.Is(err, schema.ErrStructural) {
		t.Error("unmet dependencies are not a structural error")
	}

	files := eval.QueryFunc(func(path string) schema.FileState {
		if path == "Base.esm" {
			return schema.FileActive
		}
		return schema.FileMissing
	})
	w = mustNew(t, mod, Config{Files: files})
	if _, err := w.Plan(); err != nil {
		t.Errorf("Plan with dependency met: %v", err)
	}
}
