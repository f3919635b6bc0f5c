package server

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/matzehuels/heapscope/pkg/heap"
)

// Entry is one uploaded snapshot held by the registry.
type Entry struct {
	ID         string
	Label      string
	GraphHash  string
	Snapshot   *heap.Snapshot
	UploadedAt time.Time
}

// Registry is a bounded, in-memory store of uploaded snapshots keyed
// by ID. When the bound is hit the least recently used snapshot is
// evicted, so long-running servers don't accumulate dead heaps.
type Registry struct {
	entries *lru.Cache[string, *Entry]
}

// NewRegistry creates a registry bounded to max snapshots.
func NewRegistry(max int) (*Registry, error) {
	entries, err := lru.New[string, *Entry](max)
	if err != nil {
		return nil, err
	}
	return &Registry{entries: entries}, nil
}

// Add stores an entry, evicting the least recently used one if full.
func (r *Registry) Add(e *Entry) {
	r.entries.Add(e.ID, e)
}

// Get returns the entry for id, marking it recently used.
func (r *Registry) Get(id string) (*Entry, bool) {
	return r.entries.Get(id)
}

// Remove deletes the entry for id, reporting whether it was present.
func (r *Registry) Remove(id string) bool {
	return r.entries.Remove(id)
}

// List returns all entries from least to most recently used.
func (r *Registry) List() []*Entry {
	keys := r.entries.Keys()
	out := make([]*Entry, 0, len(keys))
	for _, k := range keys {
		if e, ok := r.entries.Peek(k); ok {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of stored snapshots.
func (r *Registry) Len() int {
	return r.entries.Len()
}
