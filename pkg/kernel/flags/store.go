// Package flags implements the per-run flag store. Values are tracked per
// contributing owner so that withdrawing an option removes exactly what it set.
package flags

import "sort"

// Policy decides which contribution wins when several owners set the same flag.
type Policy string

const (
	// DocumentOrder lets the owner with the highest rank (latest in document
	// traversal order) win, regardless of when it was applied.
	DocumentOrder Policy = "document-order"
	// LastWrite lets the most recently applied contribution win.
	LastWrite Policy = "last-write"
)

// Owner identifies a contributor. Rank is its position in document traversal order.
type Owner struct {
	ID   string
	Rank int
}

type contribution struct {
	owner Owner
	value string
	seq   uint64
}

// Store maps flag names to values. The zero value is not usable; call New.
type Store struct {
	policy  Policy
	seq     uint64
	byFlag  map[string][]contribution
	byOwner map[string][]string // owner ID -> flag names it contributes
}

// Valid reports whether p is a known policy. The empty policy is valid.
func (p Policy) Valid() bool {
	switch p {
	case "", DocumentOrder, LastWrite:
		return true
	}
	return false
}

// New creates an empty store with the given policy. An empty policy means DocumentOrder.
func New(policy Policy) *Store {
	if policy == "" {
		policy = DocumentOrder
	}
	return &Store{
		policy:  policy,
		byFlag:  make(map[string][]contribution),
		byOwner: make(map[string][]string),
	}
}

// Policy returns the tie-break policy of the store.
func (s *Store) Policy() Policy {
	return s.policy
}

// Apply records owner's flags, replacing anything owner contributed before.
func (s *Store) Apply(owner Owner, values map[string]string) {
	s.Remove(owner.ID)
	if len(values) == 0 {
		return
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.seq++
		s.byFlag[name] = append(s.byFlag[name], contribution{owner: owner, value: values[name], seq: s.seq})
	}
	s.byOwner[owner.ID] = names
}

// Remove withdraws every flag contributed by the owner.
func (s *Store) Remove(ownerID string) {
	names, ok := s.byOwner[ownerID]
	if !ok {
		return
	}
	delete(s.byOwner, ownerID)
	for _, name := range names {
		cs := s.byFlag[name]
		kept := cs[:0]
		for _, c := range cs {
			if c.owner.ID != ownerID {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			delete(s.byFlag, name)
		} else {
			s.byFlag[name] = kept
		}
	}
}

// Contributes reports whether the owner currently has flags in the store.
func (s *Store) Contributes(ownerID string) bool {
	_, ok := s.byOwner[ownerID]
	return ok
}

// Get returns the effective value of a flag. An absent flag reads as "".
func (s *Store) Get(name string) string {
	cs := s.byFlag[name]
	if len(cs) == 0 {
		return ""
	}
	win := cs[0]
	for _, c := range cs[1:] {
		if s.wins(c, win) {
			win = c
		}
	}
	return win.value
}

func (s *Store) wins(c, cur contribution) bool {
	if s.policy == LastWrite {
		return c.seq > cur.seq
	}
	if c.owner.Rank != cur.owner.Rank {
		return c.owner.Rank > cur.owner.Rank
	}
	return c.seq > cur.seq
}

// Snapshot returns the effective value of every set flag.
func (s *Store) Snapshot() map[string]string {
	out := make(map[string]string, len(s.byFlag))
	for name := range s.byFlag {
		out[name] = s.Get(name)
	}
	return out
}

// Len returns the number of distinct flags set.
func (s *Store) Len() int {
	return len(s.byFlag)
}
