package relay

import (
	"fmt"
	"time"

	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/models"
)

// ErrInvalidEntityId rejects registrations with an empty entity id.
var ErrInvalidEntityId = fmt.Errorf("invalid entity id")

// SessionRegistry maps entity ids to their active sessions. Mutated only
// from the relay reactor; callers outside it hold the relay lock.
// Iteration follows insertion order.
type SessionRegistry struct {
	sessions map[string]*models.TrackedEntity
	order    []string
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*models.TrackedEntity),
	}
}

// Register binds a connection to an entity id. A stale binding for the
// same entity is overwritten outright, the newer registration wins.
func (r *SessionRegistry) Register(connectionId, entityId, displayName string, kind models.Role, now time.Time) error {
	if entityId == "" {
		return ErrInvalidEntityId
	}

	existing, ok := r.sessions[entityId]
	if ok {
		// Reconnect supersedes the prior session, no token check.
		existing.ConnectionId = connectionId
		existing.DisplayName = displayName
		existing.Kind = kind
		existing.LastActive = now
		return nil
	}

	r.sessions[entityId] = &models.TrackedEntity{
		Id:           entityId,
		DisplayName:  displayName,
		Kind:         kind,
		ConnectionId: connectionId,
		RegisteredAt: now,
		LastActive:   now,
	}
	r.order = append(r.order, entityId)
	return nil
}

// Unbind removes every entity owned by the connection and returns their
// ids for disconnect cleanup.
func (r *SessionRegistry) Unbind(connectionId string) []string {
	removed := make([]string, 0)
	kept := r.order[:0]
	for _, id := range r.order {
		entity, ok := r.sessions[id]
		if ok && entity.ConnectionId == connectionId {
			delete(r.sessions, id)
			removed = append(removed, id)
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return removed
}

// Lookup returns a copy of the tracked entity, if registered.
func (r *SessionRegistry) Lookup(entityId string) (models.TrackedEntity, bool) {
	entity, ok := r.sessions[entityId]
	if !ok {
		return models.TrackedEntity{}, false
	}
	return *entity, true
}

// Touch refreshes lastActive. Unknown ids are a no-op.
func (r *SessionRegistry) Touch(entityId string, now time.Time) bool {
	entity, ok := r.sessions[entityId]
	if !ok {
		return false
	}
	entity.LastActive = now
	return true
}

// Snapshot copies all registered entities in insertion order.
func (r *SessionRegistry) Snapshot() []models.TrackedEntity {
	out := make([]models.TrackedEntity, 0, len(r.order))
	for _, id := range r.order {
		if entity, ok := r.sessions[id]; ok {
			out = append(out, *entity)
		}
	}
	return out
}

func (r *SessionRegistry) Len() int {
	return len(r.sessions)
}
