package registry

import (
	"bytes"
	"strings"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/airsql/airsql/internal/query"
	"github.com/airsql/airsql/internal/store"
	"github.com/airsql/airsql/pkg"
)

// Registry caches loaded tables by their source identifier (local path or
// http:// URL) and remembers the most recently used identifier for
// queries that omit an explicit source.
type Registry struct {
	locker sync.RWMutex
	// source identifier -> loaded table
	tables pkg.Map[string, *store.Table]
	recent string
}

func New() *Registry {
	return &Registry{tables: pkg.Map[string, *store.Table]{}}
}

func (r *Registry) GetLocker() *sync.RWMutex { return &r.locker }

// Resolve returns the table for identifier, loading it on first use. An
// empty identifier substitutes the most recently used one.
//
// The cache lookup holds the registry lock only briefly; the load itself
// runs outside any lock. Two concurrent first loads of the same
// identifier may both do the work and the last writer wins on insertion;
// loads are idempotent reads of the source, so the loser's copy is simply
// discarded. Load failures leave the registry untouched.
func (r *Registry) Resolve(identifier string) (*store.Table, error) {
	r.locker.Lock()
	if identifier == "" {
		if r.recent == "" {
			r.locker.Unlock()
			return nil, query.NoTableLoaded()
		}
		identifier = r.recent
	}
	if r.tables.Has(identifier) {
		t := r.tables.Get(identifier)
		r.recent = identifier
		r.locker.Unlock()
		return t, nil
	}
	r.locker.Unlock()

	t, err := load(identifier)
	if err != nil {
		return nil, err
	}

	pkg.LockWrap(r, func() {
		r.tables.Set(identifier, t)
		r.recent = identifier
	})
	pkg.InfoLog("loaded table", identifier)
	return t, nil
}

// Recent returns the most recently used identifier, if any.
func (r *Registry) Recent() (recent string) {
	pkg.RLockWrap(r, func() { recent = r.recent })
	return recent
}

// Persist writes the table for identifier (empty means most recently
// used) back to its originating local path. The CSV is rendered to a
// buffer first and swapped into place atomically so a concurrent load
// never sees a half-written file. Remote identifiers are not supported.
func (r *Registry) Persist(identifier string) (string, error) {
	var t *store.Table
	pkg.RLockWrap(r, func() {
		if identifier == "" {
			identifier = r.recent
		}
		t = r.tables.Get(identifier)
	})
	if identifier == "" || isRemote(identifier) {
		return "", query.NotImplemented("saving a table to an URL using POST is not implemented")
	}
	if t == nil {
		return "", query.NoTableLoaded()
	}

	var buf bytes.Buffer
	if err := t.Save(&buf); err != nil {
		return "", err
	}
	if err := atomic.WriteFile(identifier, &buf); err != nil {
		return "", err
	}
	pkg.InfoLog("saved table", identifier)
	return identifier, nil
}

func isRemote(identifier string) bool {
	return strings.HasPrefix(identifier, "http://") || strings.HasPrefix(identifier, "https://")
}

func load(identifier string) (*store.Table, error) {
	if isRemote(identifier) {
		return loadRemote(identifier)
	}
	t, err := store.LoadFile(identifier)
	if err != nil {
		return nil, query.LoadFailed(err, identifier)
	}
	return t, nil
}
