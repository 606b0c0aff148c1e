package relay

import (
	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/models"
	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/wire"
)

// LocationStore holds the last-known location per entity. Last write wins
// unconditionally; no plausibility check on coordinates. An update for an
// existing entity replaces the entry in place, so snapshot order stays the
// insertion order of first sight. Mutated only under the relay lock.
type LocationStore struct {
	entries map[string]models.LocationEntry
	order   []string
}

func NewLocationStore() *LocationStore {
	return &LocationStore{
		entries: make(map[string]models.LocationEntry),
	}
}

// Update upserts the entry keyed by its EntityId. Always succeeds.
func (s *LocationStore) Update(entry models.LocationEntry) {
	if _, ok := s.entries[entry.EntityId]; !ok {
		s.order = append(s.order, entry.EntityId)
	}
	s.entries[entry.EntityId] = entry
}

// Get returns the last-known entry for an entity.
func (s *LocationStore) Get(entityId string) (models.LocationEntry, bool) {
	entry, ok := s.entries[entityId]
	return entry, ok
}

// Delete drops an entity's location, reporting whether one existed.
func (s *LocationStore) Delete(entityId string) bool {
	if _, ok := s.entries[entityId]; !ok {
		return false
	}
	delete(s.entries, entityId)
	kept := s.order[:0]
	for _, id := range s.order {
		if id != entityId {
			kept = append(kept, id)
		}
	}
	s.order = kept
	return true
}

// OwnedBy lists entities whose last update came over the given
// connection. Used for disconnect cleanup of anonymously tracked ids.
func (s *LocationStore) OwnedBy(connectionId string) []string {
	owned := make([]string, 0)
	for _, id := range s.order {
		if entry, ok := s.entries[id]; ok && entry.ConnectionId == connectionId {
			owned = append(owned, id)
		}
	}
	return owned
}

// Snapshot copies all entries in insertion order, paired with their ids
// the way bulk replies deliver them.
func (s *LocationStore) Snapshot() []wire.SnapshotPair {
	out := make([]wire.SnapshotPair, 0, len(s.order))
	for _, id := range s.order {
		if entry, ok := s.entries[id]; ok {
			out = append(out, wire.SnapshotPair{EntityId: id, Entry: entry})
		}
	}
	return out
}

func (s *LocationStore) Len() int {
	return len(s.entries)
}
