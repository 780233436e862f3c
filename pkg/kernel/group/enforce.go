// Package group enforces per-group cardinality rules on option selections.
// Enforcement only looks at the members of one group.
package group

import "github.com/ormasoftchile/fomod/pkg/kernel/schema"

// Member is the selection state of one option of a group, in iteration order.
// A Placeholder member stands in for "nothing selected" in groups that must
// always hold a selection.
type Member struct {
	Selected    bool
	Enabled     bool
	Placeholder bool
}

// Change is a selection flip the caller must apply.
type Change struct {
	Index    int
	Selected bool
}

// Result is the corrected state of a group.
type Result struct {
	Members  []Member
	Changes  []Change
	Reverted bool // the triggering change was undone
}

// Enforce applies the cardinality rule of t to members. changed is the index
// of the member whose selection just flipped, or -1. A user deselect is
// revertible only while the member is enabled; a forced deselect of a
// disabled member falls back to another member instead.
func Enforce(t schema.GroupType, members []Member, changed int) Result {
	out := make([]Member, len(members))
	copy(out, members)
	res := Result{Members: out}

	set := func(i int, selected bool) {
		if out[i].Selected == selected {
			return
		}
		out[i].Selected = selected
		res.Changes = append(res.Changes, Change{Index: i, Selected: selected})
	}

	switch t {
	case schema.SelectAll:
		for i := range out {
			if out[i].Placeholder {
				set(i, false)
				continue
			}
			set(i, true)
			out[i].Enabled = false
		}

	case schema.SelectExactlyOne, schema.SelectAtMostOne:
		keep := -1
		if changed >= 0 && changed < len(out) && out[changed].Selected {
			keep = changed
		} else {
			keep = firstSelectedReal(out)
			if keep < 0 {
				keep = placeholderIndex(out, true)
			}
		}
		if keep >= 0 {
			for i := range out {
				if i != keep {
					set(i, false)
				}
			}
		}
		if t == schema.SelectExactlyOne && keep < 0 {
			fillEmpty(out, changed, set, &res)
		}

	case schema.SelectAtLeastOne:
		if firstSelectedReal(out) >= 0 {
			if p := placeholderIndex(out, true); p >= 0 {
				set(p, false)
			}
		} else if placeholderIndex(out, true) < 0 {
			fillEmpty(out, changed, set, &res)
		}
	}

	return res
}

// fillEmpty restores a selection in a group that must have one: the
// triggering deselect is undone when the member is enabled, otherwise the
// placeholder takes the selection.
func fillEmpty(out []Member, changed int, set func(int, bool), res *Result) {
	if changed >= 0 && changed < len(out) && out[changed].Enabled {
		set(changed, true)
		res.Reverted = true
		return
	}
	if p := placeholderIndex(out, false); p >= 0 {
		set(p, true)
	}
}

func firstSelectedReal(ms []Member) int {
	for i, m := range ms {
		if m.Selected && !m.Placeholder {
			return i
		}
	}
	return -1
}

func placeholderIndex(ms []Member, selectedOnly bool) int {
	for i, m := range ms {
		if m.Placeholder && (!selectedOnly || m.Selected) {
			return i
		}
	}
	return -1
}

// Count returns the number of selected members, placeholder included.
func Count(ms []Member) int {
	n := 0
	for _, m := range ms {
		if m.Selected {
			n++
		}
	}
	return n
}
