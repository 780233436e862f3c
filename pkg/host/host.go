// Package host answers file-state queries for the wizard from the host
// environment: a static table loaded from YAML, a directory on disk, or a
// chain of both.
package host

import (
	"fmt"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"

	"github.com/ormasoftchile/fomod/pkg/kernel/eval"
	"github.com/ormasoftchile/fomod/pkg/kernel/schema"
	"gopkg.in/yaml.v3"
)

// normalize makes lookups insensitive to case and path separator style.
func normalize(path string) string {
	return strings.ToLower(slashed(path))
}

// slashed cleans path and uses forward slashes whatever the host OS.
func slashed(path string) string {
	return pathpkg.Clean(strings.ReplaceAll(path, `\`, "/"))
}

// Static is a fixed table of file states. Unknown paths report Missing.
type Static map[string]schema.FileState

type staticFile struct {
	Files map[string]schema.FileState `yaml:"files"`
}

// LoadStaticFile reads a YAML file of the form
//
//	files:
//	  Skyrim.esm: Active
//	  Old.esp: Inactive
func LoadStaticFile(path string) (Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file states: %w", err)
	}
	return ParseStatic(data)
}

// ParseStatic decodes a file-state table and rejects unknown states.
func ParseStatic(data []byte) (Static, error) {
	var sf staticFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse file states: %w", err)
	}
	s := make(Static, len(sf.Files))
	for p, st := range sf.Files {
		switch st {
		case schema.FileMissing, schema.FileInactive, schema.FileActive, schema.FileUnknown:
		default:
			return nil, schema.Structuralf("files."+p, "unknown file state %q", st)
		}
		s[normalize(p)] = st
	}
	return s, nil
}

// FileState implements eval.FileStateQuery. Keys of a hand-built table need
// not be normalized.
func (s Static) FileState(path string) schema.FileState {
	key := normalize(path)
	if st, ok := s[key]; ok {
		return st
	}
	for p, st := range s {
		if normalize(p) == key {
			return st
		}
	}
	return schema.FileMissing
}

// Dir reports a file Active when it exists under Root, else Missing. The
// filesystem is consulted on every query.
type Dir struct {
	Root string
}

// FileState implements eval.FileStateQuery.
func (d Dir) FileState(path string) schema.FileState {
	if path == "" {
		return schema.FileMissing
	}
	full := filepath.Join(d.Root, filepath.FromSlash(slashed(path)))
	fi, err := os.Stat(full)
	if err != nil {
		return schema.FileMissing
	}
	if fi.IsDir() {
		return schema.FileMissing
	}
	return schema.FileActive
}

// Chain asks each query in turn and returns the first answer other than
// Missing.
type Chain []eval.FileStateQuery

// FileState implements eval.FileStateQuery.
func (c Chain) FileState(path string) schema.FileState {
	for _, q := range c {
		if q == nil {
			continue
		}
		if st := q.FileState(path); st != schema.FileMissing {
			return st
		}
	}
	return schema.FileMissing
}
