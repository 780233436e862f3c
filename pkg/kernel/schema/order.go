package schema

import (
	"fmt"
	"sort"
)

// Order is the iteration policy of a step, group, or option list.
type Order string

const (
	OrderExplicit   Order = "Explicit"
	OrderAscending  Order = "Ascending"
	OrderDescending Order = "Descending"
)

// Permutation returns the iteration order of a list of n names under o.
// The result holds declared indices. Equal names keep declared order.
// An empty Order means Explicit.
func (o Order) Permutation(names []string) ([]int, error) {
	idx := make([]int, len(names))
	for i := range idx {
		idx[i] = i
	}
	switch o {
	case "", OrderExplicit:
	case OrderAscending:
		sort.SliceStable(idx, func(a, b int) bool { return names[idx[a]] < names[idx[b]] })
	case OrderDescending:
		sort.SliceStable(idx, func(a, b int) bool { return names[idx[a]] > names[idx[b]] })
	default:
		return nil, Structuralf("", "unknown order %q", o)
	}
	return idx, nil
}

// StepPermutation returns the iteration order of m.Steps.
func (m *Module) StepPermutation() ([]int, error) {
	names := make([]string, len(m.Steps))
	for i, s := range m.Steps {
		names[i] = s.Name
	}
	p, err := m.StepOrder.Permutation(names)
	if err != nil {
		return nil, fmt.Errorf("steps: %w", err)
	}
	return p, nil
}

// GroupPermutation returns the iteration order of s.Groups.
func (s *Step) GroupPermutation() ([]int, error) {
	names := make([]string, len(s.Groups))
	for i, g := range s.Groups {
		names[i] = g.Name
	}
	p, err := s.GroupOrder.Permutation(names)
	if err != nil {
		return nil, fmt.Errorf("step %q groups: %w", s.Name, err)
	}
	return p, nil
}

// OptionPermutation returns the iteration order of g.Options.
func (g *Group) OptionPermutation() ([]int, error) {
	names := make([]string, len(g.Options))
	for i, o := range g.Options {
		names[i] = o.Name
	}
	p, err := g.OptionOrder.Permutation(names)
	if err != nil {
		return nil, fmt.Errorf("group %q options: %w", g.Name, err)
	}
	return p, nil
}
