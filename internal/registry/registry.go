// Package registry holds the ordered set of uploaded files for one screen.
package registry

import (
	"slices"
	"sync"

	"github.com/code-explorer/backend/internal/models"
)

// RemovalPolicy decides where selection goes when the selected record is removed.
type RemovalPolicy int

const (
	// SelectFirst moves selection to the first remaining record.
	SelectFirst RemovalPolicy = iota
	// ClearSelection leaves nothing selected.
	ClearSelection
)

// ParseRemovalPolicy maps the config values "first" and "none".
// Anything else yields SelectFirst.
func ParseRemovalPolicy(s string) RemovalPolicy {
	if s == "none" {
		return ClearSelection
	}
	return SelectFirst
}

// Registry is an insertion-ordered collection of file records plus an
// optional selected id. It is safe for concurrent use; each operation is
// applied atomically.
type Registry struct {
	mu       sync.RWMutex
	records  []models.FileRecord
	selected string // empty means no selection
	policy   RemovalPolicy
}

// Option configures a Registry.
type Option func(*Registry)

// WithRemovalPolicy sets the selection-after-delete policy.
func WithRemovalPolicy(p RemovalPolicy) Option {
	return func(r *Registry) {
		r.policy = p
	}
}

// New creates an empty registry with no selection.
func New(opts ...Option) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add appends record and selects it.
func (r *Registry) Add(record models.FileRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, record)
	r.selected = record.ID
}

// Select sets the selection to id if such a record exists.
// Unknown ids are ignored; the return value reports whether selection was set.
func (r *Registry) Select(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(id) < 0 {
		return false
	}
	r.selected = id
	return true
}

// Remove deletes the record with id. Removing the selected record moves the
// selection according to the removal policy. Unknown ids are a no-op.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return false
	}

	r.records = slices.Delete(r.records, idx, idx+1)

	if r.selected == id {
		r.selected = ""
		if r.policy == SelectFirst && len(r.records) > 0 {
			r.selected = r.records[0].ID
		}
	}
	return true
}

// Get returns the record with id.
func (r *Registry) Get(id string) (models.FileRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return models.FileRecord{}, false
	}
	return r.records[idx], true
}

// Selected returns the selected record, if any.
func (r *Registry) Selected() (models.FileRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.selected == "" {
		return models.FileRecord{}, false
	}
	idx := r.indexOf(r.selected)
	if idx < 0 {
		return models.FileRecord{}, false
	}
	return r.records[idx], true
}

// SelectedID returns the selected id or "" when nothing is selected.
func (r *Registry) SelectedID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selected
}

// List returns the records in insertion order.
func (r *Registry) List() []models.FileRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.FileRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Snapshot returns the list view of the registry.
func (r *Registry) Snapshot() models.RegistrySnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files := make([]models.FileSummary, len(r.records))
	for i, rec := range r.records {
		files[i] = rec.Summary(rec.ID == r.selected)
	}
	return models.RegistrySnapshot{
		Files:      files,
		SelectedID: r.selected,
	}
}

// indexOf must be called with the lock held.
func (r *Registry) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range r.records {
		if r.records[i].ID == id {
			return i
		}
	}
	return -1
}
