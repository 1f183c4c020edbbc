package flags

import (
	"sync"
	"time"
)

// Store is a concurrency-safe cache of the current flag definition snapshot.
// The snapshot is replaced wholesale on every successful fetch and never
// patched in place, so concurrent readers either see the previous snapshot or
// the new one, never a mix.
type Store struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewStore creates a store holding an empty snapshot with no fetch recorded.
func NewStore() *Store {
	return &Store{snap: buildSnapshot(&DefinitionsPayload{}, time.Time{})}
}

// Snapshot returns the latest committed snapshot. The returned value is
// shared between readers and must be treated as read-only. Readers never
// block on an in-flight fetch.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Replace commits a freshly fetched payload as the new snapshot and stamps
// its fetch time. It is only called after a fully successful fetch; failed
// fetches leave the previous snapshot untouched.
func (s *Store) Replace(payload *DefinitionsPayload, fetchedAt time.Time) {
	snap := buildSnapshot(payload, fetchedAt)

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// Flag returns the definition with the given key from the current snapshot.
func (s *Store) Flag(key string) (FlagDefinition, bool) {
	return s.Snapshot().Flag(key)
}

// LastUpdated returns the commit time of the current snapshot, or the zero
// time if no fetch has ever succeeded.
func (s *Store) LastUpdated() time.Time {
	return s.Snapshot().LastUpdated
}

func buildSnapshot(payload *DefinitionsPayload, fetchedAt time.Time) *Snapshot {
	snap := &Snapshot{
		Flags:            payload.Flags,
		GroupTypeMapping: payload.GroupTypeMapping,
		Cohorts:          payload.Cohorts,
		LastUpdated:      fetchedAt,
		byKey:            make(map[string]int, len(payload.Flags)),
	}
	for i, flag := range payload.Flags {
		snap.byKey[flag.Key] = i
	}
	return snap
}
