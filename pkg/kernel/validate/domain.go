package validate

import (
	"fmt"
	"sort"

	"github.com/ormasoftchile/fomod/pkg/kernel/schema"
)

// placeholderName matches the name the engine gives the synthetic empty
// choice of single- and multi-required groups.
const placeholderName = "None"

// setter locates an option that sets a flag, by step iteration position.
type setter struct {
	step int
	path string
}

// validateDomain runs module-level lint rules. Every rule reports warnings:
// the engine accepts these modules, but likely not with the intended result.
func validateDomain(m *schema.Module) []*ValidationError {
	var errs []*ValidationError

	// D1: something to install
	if len(m.Steps) == 0 && len(m.RequiredFiles) == 0 {
		errs = append(errs, warningf("domain", "", "module has no steps and no required files"))
	}

	// D2: name uniqueness; lookups by name resolve to the first match
	errs = append(errs, validateUniqueNames(m)...)

	// D3: group shape rules
	for si := range m.Steps {
		st := &m.Steps[si]
		if len(st.Groups) == 0 {
			errs = append(errs, warningf("domain", stepPath(si), "step %q has no groups", st.Name))
		}
		for gi := range st.Groups {
			errs = append(errs, validateGroup(&st.Groups[gi], groupPath(si, gi))...)
		}
	}

	// D4: flag references against the options that set them
	errs = append(errs, validateFlagReferences(m)...)

	return errs
}

func validateUniqueNames(m *schema.Module) []*ValidationError {
	var errs []*ValidationError
	steps := map[string]string{}
	for si, st := range m.Steps {
		sp := stepPath(si)
		if prev, ok := steps[st.Name]; ok {
			errs = append(errs, warningf("domain", sp+".name", "duplicate step name %q (first at %s)", st.Name, prev))
		} else {
			steps[st.Name] = sp
		}
		groups := map[string]string{}
		for gi, g := range st.Groups {
			gp := groupPath(si, gi)
			if prev, ok := groups[g.Name]; ok {
				errs = append(errs, warningf("domain", gp+".name", "duplicate group name %q (first at %s)", g.Name, prev))
			} else {
				groups[g.Name] = gp
			}
			options := map[string]string{}
			for oi, o := range g.Options {
				op := optionPath(si, gi, oi)
				if prev, ok := options[o.Name]; ok {
					errs = append(errs, warningf("domain", op+".name", "duplicate option name %q (first at %s)", o.Name, prev))
				} else {
					options[o.Name] = op
				}
			}
		}
	}
	return errs
}

// fixedCategory returns the category of an option without rules.
func fixedCategory(o *schema.Option) (schema.Category, bool) {
	if len(o.Category.Rules) > 0 {
		return "", false
	}
	if o.Category.Default == "" {
		return schema.CategoryOptional, true
	}
	return o.Category.Default, true
}

func validateGroup(g *schema.Group, gp string) []*ValidationError {
	var errs []*ValidationError
	if len(g.Options) == 0 {
		return []*ValidationError{warningf("domain", gp, "group %q has no options", g.Name)}
	}

	required, unusable := 0, 0
	for oi := range g.Options {
		o := &g.Options[oi]
		op := fmt.Sprintf("%s.options[%d]", gp, oi)
		if g.Type.RequiresSelection() && o.Name == placeholderName {
			errs = append(errs, warningf("domain", op+".name", "option %q hides the placeholder of %s group %q", o.Name, g.Type, g.Name))
		}
		cat, fixed := fixedCategory(o)
		if !fixed {
			continue
		}
		switch cat {
		case schema.CategoryRequired:
			required++
		case schema.CategoryNotUsable:
			unusable++
			if g.Type == schema.SelectAll {
				errs = append(errs, warningf("domain", op, "NotUsable option %q is selected anyway by SelectAll group %q", o.Name, g.Name))
			}
		}
	}

	if g.Type.RequiresSelection() && unusable == len(g.Options) {
		errs = append(errs, warningf("domain", gp, "every option of %s group %q is NotUsable; only the placeholder can be selected", g.Type, g.Name))
	}
	if (g.Type == schema.SelectExactlyOne || g.Type == schema.SelectAtMostOne) && required > 1 {
		errs = append(errs, warningf("domain", gp, "%s group %q has %d Required options; only the first is kept", g.Type, g.Name, required))
	}
	return errs
}

// validateFlagReferences warns about conditions that test a flag no option
// sets, and about conditions in a step before the step of an option that
// sets their flag. The engine settles each step on its own flags but never
// revisits earlier steps, so such a condition can hold a stale result.
func validateFlagReferences(m *schema.Module) []*ValidationError {
	stepPerm, err := m.StepPermutation()
	if err != nil {
		return nil
	}

	setters := map[string][]setter{}
	type reader struct {
		step int
		path string
		dep  *schema.Dependency
	}
	var readers []reader

	for pos, si := range stepPerm {
		st := &m.Steps[si]
		readers = append(readers, reader{step: pos, path: stepPath(si) + ".visible", dep: st.Visible})
		groupPerm, err := st.GroupPermutation()
		if err != nil {
			return nil
		}
		for _, gi := range groupPerm {
			g := &st.Groups[gi]
			for oi := range g.Options {
				o := &g.Options[oi]
				op := optionPath(si, gi, oi)
				for _, fl := range o.Flags {
					setters[fl.Name] = append(setters[fl.Name], setter{step: pos, path: op})
				}
				for ri := range o.Category.Rules {
					readers = append(readers, reader{
						step: pos,
						path: fmt.Sprintf("%s.category.rules[%d].when", op, ri),
						dep:  &o.Category.Rules[ri].When,
					})
				}
			}
		}
	}

	var errs []*ValidationError
	errs = append(errs, unsetFlags(m.Dependencies, "dependencies", setters)...)
	for _, r := range readers {
		if r.dep == nil {
			continue
		}
		errs = append(errs, unsetFlags(r.dep, r.path, setters)...)
		for _, name := range flagNames(r.dep) {
			for _, s := range setters[name] {
				if s.step > r.step {
					errs = append(errs, warningf("domain", r.path, "flag %q is set by %s, in a later step than this condition", name, s.path))
					break
				}
			}
		}
	}
	return errs
}

func unsetFlags(dep *schema.Dependency, path string, setters map[string][]setter) []*ValidationError {
	if dep == nil {
		return nil
	}
	var errs []*ValidationError
	for _, name := range flagNames(dep) {
		if len(setters[name]) == 0 {
			errs = append(errs, warningf("domain", path, "flag %q is never set by any option", name))
		}
	}
	return errs
}

// flagNames returns the distinct flag names tested by dep, sorted.
func flagNames(dep *schema.Dependency) []string {
	seen := map[string]bool{}
	var names []string
	for _, f := range dep.Flags {
		if !seen[f.Name] {
			seen[f.Name] = true
			names = append(names, f.Name)
		}
	}
	sort.Strings(names)
	return names
}
