package recorder

import (
	"sync"

	"github.com/ormasoftchile/fomod/pkg/kernel/eval"
	"github.com/ormasoftchile/fomod/pkg/kernel/schema"
)

// FileLog wraps a file state query and remembers every answer other than
// Missing, so a walk over a live data directory can be replayed from a
// static file list.
type FileLog struct {
	inner eval.FileStateQuery

	mu   sync.Mutex
	seen map[string]schema.FileState
}

// WatchFiles returns a FileLog over q. A nil q reports every file as Missing.
func WatchFiles(q eval.FileStateQuery) *FileLog {
	return &FileLog{inner: q, seen: make(map[string]schema.FileState)}
}

// FileState implements eval.FileStateQuery.
func (l *FileLog) FileState(path string) schema.FileState {
	st := schema.FileMissing
	if l.inner != nil {
		st = l.inner.FileState(path)
	}
	if st != schema.FileMissing {
		l.mu.Lock()
		l.seen[path] = st
		l.mu.Unlock()
	}
	return st
}

// Seen returns a copy of the non-Missing answers given so far.
func (l *FileLog) Seen() map[string]schema.FileState {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.seen) == 0 {
		return nil
	}
	out := make(map[string]schema.FileState, len(l.seen))
	for k, v := range l.seen {
		out[k] = v
	}
	return out
}
