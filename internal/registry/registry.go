// Package registry holds the in-memory map of session records. It is the
// single source of truth for session existence and status.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/pompomputin/wwebjs-webui-docker/internal/buffer"
	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
	"github.com/pompomputin/wwebjs-webui-docker/internal/waclient"
)

// Record is one active or pending session.
type Record struct {
	ID           string
	Status       model.SessionStatus
	Challenge    string
	Settings     model.Settings
	InitInFlight bool

	// Handle is exclusively owned by this record.
	Handle waclient.Handle
	// Generation identifies the handle incarnation. Events tagged with an
	// older generation belong to a destroyed handle.
	Generation uint64
	// History holds recent inbound messages for late subscribers. It lives
	// and dies with the handle.
	History *buffer.Ring[*model.InboundMessage]
	// Revision changes on every write.
	Revision uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasChallenge reports whether a credential challenge is pending.
func (r Record) HasChallenge() bool {
	return r.Challenge != ""
}

// Summary returns the redacted public view of the record.
func (r Record) Summary() model.SessionSummary {
	return model.SessionSummary{
		ID:           r.ID,
		Status:       r.Status,
		HasChallenge: r.HasChallenge(),
		Settings:     r.Settings,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// Registry is a concurrency-safe session map. Records are replaced, never
// mutated in place, so a Record returned to a caller is a stable snapshot.
type Registry struct {
	mu       sync.RWMutex
	records  map[string]*Record
	revision uint64
	now      func() time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

// Get returns a copy of the record for id.
func (r *Registry) Get(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Upsert applies patch to the record for id, creating it when absent, and
// stores the result as a new record.
func (r *Registry) Upsert(id string, patch func(*Record)) Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := Record{ID: id, CreatedAt: r.now()}
	if cur, ok := r.records[id]; ok {
		next = *cur
	}
	patch(&next)
	return r.storeLocked(id, next)
}

// Update applies patch only when the record exists and, for a non-zero gen,
// still belongs to generation gen.
func (r *Registry) Update(id string, gen uint64, patch func(*Record)) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.records[id]
	if !ok || (gen != 0 && cur.Generation != gen) {
		return Record{}, false
	}
	next := *cur
	patch(&next)
	return r.storeLocked(id, next), true
}

// Reserve atomically creates an Initializing record with the init guard set.
// When a record already exists it is returned with false and nothing changes.
func (r *Registry) Reserve(id string, gen uint64, settings model.Settings) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.records[id]; ok {
		return *cur, false
	}
	return r.storeLocked(id, Record{
		ID:           id,
		Status:       model.SessionStatusInitializing,
		Settings:     settings,
		InitInFlight: true,
		Generation:   gen,
		CreatedAt:    r.now(),
	}), true
}

// Delete removes the record for id. Deleting an absent id is a no-op.
func (r *Registry) Delete(id string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.records[id]
	if !ok {
		return Record{}, false
	}
	delete(r.records, id)
	return *cur, true
}

// DeleteIf removes the record for id only if it belongs to generation gen.
func (r *Registry) DeleteIf(id string, gen uint64) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.records[id]
	if !ok || cur.Generation != gen {
		return Record{}, false
	}
	delete(r.records, id)
	return *cur, true
}

// List returns a snapshot of all records ordered by id.
func (r *Registry) List() []Record {
	r.mu.RLock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *Registry) storeLocked(id string, next Record) Record {
	next.ID = id
	// A challenge only exists while one is awaited.
	if next.Status != model.SessionStatusAwaitingCredential {
		next.Challenge = ""
	}
	r.revision++
	next.Revision = r.revision
	next.UpdatedAt = r.now()
	r.records[id] = &next
	return next
}
