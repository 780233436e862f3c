package validate

import (
	"fmt"

	"github.com/ormasoftchile/fomod/pkg/kernel/schema"
)

// validateSemantic checks required fields and enumerated values field by
// field.
func validateSemantic(m *schema.Module) []*ValidationError {
	var errs []*ValidationError

	if m.Name == "" {
		errs = append(errs, errorf("semantic", "name", "module name is required"))
	}
	errs = append(errs, checkOrder(m.StepOrder, "step_order")...)
	errs = append(errs, checkDependency(m.Dependencies, "dependencies")...)
	for i, f := range m.RequiredFiles {
		errs = append(errs, checkFile(f, fmt.Sprintf("required_files[%d]", i))...)
	}

	for si, st := range m.Steps {
		sp := stepPath(si)
		if st.Name == "" {
			errs = append(errs, errorf("semantic", sp+".name", "step name is required"))
		}
		errs = append(errs, checkOrder(st.GroupOrder, sp+".group_order")...)
		errs = append(errs, checkDependency(st.Visible, sp+".visible")...)

		for gi, g := range st.Groups {
			gp := groupPath(si, gi)
			if g.Name == "" {
				errs = append(errs, errorf("semantic", gp+".name", "group name is required"))
			}
			switch g.Type {
			case schema.SelectAny, schema.SelectAll, schema.SelectExactlyOne, schema.SelectAtMostOne, schema.SelectAtLeastOne:
			case "":
				errs = append(errs, errorf("semantic", gp+".type", "group type is required"))
			default:
				errs = append(errs, errorf("semantic", gp+".type", "invalid group type %q", g.Type))
			}
			errs = append(errs, checkOrder(g.OptionOrder, gp+".option_order")...)

			for oi, o := range g.Options {
				op := optionPath(si, gi, oi)
				if o.Name == "" {
					errs = append(errs, errorf("semantic", op+".name", "option name is required"))
				}
				if o.Category.Default != "" && !o.Category.Default.Valid() {
					errs = append(errs, errorf("semantic", op+".category.default", "invalid category %q", o.Category.Default))
				}
				for ri, r := range o.Category.Rules {
					rp := fmt.Sprintf("%s.category.rules[%d]", op, ri)
					if !r.Category.Valid() {
						errs = append(errs, errorf("semantic", rp+".category", "invalid category %q", r.Category))
					}
					when := r.When
					errs = append(errs, checkDependency(&when, rp+".when")...)
				}
				for fi, fl := range o.Flags {
					if fl.Name == "" {
						errs = append(errs, errorf("semantic", fmt.Sprintf("%s.flags[%d].name", op, fi), "flag name is required"))
					}
				}
				for fi, f := range o.Files {
					errs = append(errs, checkFile(f, fmt.Sprintf("%s.files[%d]", op, fi))...)
				}
			}
		}
	}
	return errs
}

func checkOrder(o schema.Order, path string) []*ValidationError {
	switch o {
	case "", schema.OrderExplicit, schema.OrderAscending, schema.OrderDescending:
		return nil
	}
	return []*ValidationError{errorf("semantic", path, "invalid order %q: must be Explicit, Ascending, or Descending", o)}
}

func checkDependency(d *schema.Dependency, path string) []*ValidationError {
	if d == nil {
		return nil
	}
	var errs []*ValidationError
	switch d.Operator {
	case "", schema.OperatorAnd, schema.OperatorOr:
	default:
		errs = append(errs, errorf("semantic", path+".operator", "invalid operator %q: must be And or Or", d.Operator))
	}
	for i, f := range d.Files {
		fp := fmt.Sprintf("%s.files[%d]", path, i)
		if f.Path == "" {
			errs = append(errs, errorf("semantic", fp+".path", "file path is required"))
		}
		switch f.State {
		case schema.FileMissing, schema.FileInactive, schema.FileActive:
		default:
			errs = append(errs, errorf("semantic", fp+".state", "invalid file state %q: must be Missing, Inactive, or Active", f.State))
		}
	}
	for i, f := range d.Flags {
		if f.Name == "" {
			errs = append(errs, errorf("semantic", fmt.Sprintf("%s.flags[%d].name", path, i), "flag name is required"))
		}
	}
	return errs
}

func checkFile(f schema.File, path string) []*ValidationError {
	if f.Source == "" {
		return []*ValidationError{errorf("semantic", path+".source", "file source is required")}
	}
	return nil
}
