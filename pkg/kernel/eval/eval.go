// Package eval evaluates module dependency expressions and category
// descriptors against a flag store and the host's file states.
package eval

import (
	"fmt"

	"github.com/ormasoftchile/fomod/pkg/kernel/schema"
)

// FlagReader reads effective flag values. Absent flags read as "".
type FlagReader interface {
	Get(name string) string
}

// FileStateQuery reports the current host state of a file. It is consulted
// on every evaluation; results are never cached.
type FileStateQuery interface {
	FileState(path string) schema.FileState
}

// QueryFunc adapts a function to FileStateQuery.
type QueryFunc func(path string) schema.FileState

// FileState implements FileStateQuery.
func (f QueryFunc) FileState(path string) schema.FileState {
	return f(path)
}

// NoFiles reports every file as Missing.
var NoFiles FileStateQuery = QueryFunc(func(string) schema.FileState { return schema.FileMissing })

type emptyFlags struct{}

func (emptyFlags) Get(string) string { return "" }

// Evaluate reports whether dep holds. A nil dependency, or one without any
// test, holds. Malformed expressions return a STRUCTURAL error.
func Evaluate(dep *schema.Dependency, flags FlagReader, files FileStateQuery) (bool, error) {
	if dep == nil {
		return true, nil
	}
	var and bool
	switch dep.Operator {
	case "", schema.OperatorAnd:
		and = true
	case schema.OperatorOr:
		and = false
	default:
		return false, schema.Structuralf("operator", "unknown operator %q", dep.Operator)
	}
	if len(dep.Files) == 0 && len(dep.Flags) == 0 {
		return true, nil
	}
	if files == nil {
		files = NoFiles
	}
	if flags == nil {
		flags = emptyFlags{}
	}

	// Every test is checked for well-formedness before short-circuiting so a
	// malformed tail is never hidden by an earlier result.
	for i, fd := range dep.Files {
		if fd.Path == "" {
			return false, schema.Structuralf(fmt.Sprintf("files[%d]", i), "file test without path")
		}
		switch fd.State {
		case schema.FileMissing, schema.FileInactive, schema.FileActive:
		default:
			return false, schema.Structuralf(fmt.Sprintf("files[%d]", i), "unknown required state %q", fd.State)
		}
	}
	for i, fl := range dep.Flags {
		if fl.Name == "" {
			return false, schema.Structuralf(fmt.Sprintf("flags[%d]", i), "flag test without name")
		}
	}

	for _, fd := range dep.Files {
		held := files.FileState(fd.Path) == fd.State
		if held != and {
			return held, nil
		}
	}
	for _, fl := range dep.Flags {
		held := flags.Get(fl.Name) == fl.Value
		if held != and {
			return held, nil
		}
	}
	return and, nil
}

// ResolveCategory returns the category of the first rule whose condition
// holds, in declared order, or the descriptor's default.
func ResolveCategory(desc schema.CategoryDescriptor, flags FlagReader, files FileStateQuery) (schema.Category, error) {
	for i := range desc.Rules {
		rule := &desc.Rules[i]
		if !rule.Category.Valid() {
			return "", schema.Structuralf(fmt.Sprintf("rules[%d]", i), "unknown category %q", rule.Category)
		}
		ok, err := Evaluate(&rule.When, flags, files)
		if err != nil {
			return "", fmt.Errorf("rules[%d]: %w", i, err)
		}
		if ok {
			return rule.Category, nil
		}
	}
	if desc.Default == "" {
		return schema.CategoryOptional, nil
	}
	if !desc.Default.Valid() {
		return "", schema.Structuralf("default", "unknown category %q", desc.Default)
	}
	return desc.Default, nil
}
