package relay

import (
	"testing"
	"time"

	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/models"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewSessionRegistry()
	now := time.Now()

	if err := reg.Register("c1", "s1", "Khensani", models.RoleStudent, now); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	entity, ok := reg.Lookup("s1")
	if !ok {
		t.Fatalf("expected s1 registered")
	}
	if entity.DisplayName != "Khensani" || entity.ConnectionId != "c1" {
		t.Fatalf("unexpected entity %+v", entity)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", reg.Len())
	}
}

func TestRegistryRejectsEmptyEntityId(t *testing.T) {
	reg := NewSessionRegistry()

	if err := reg.Register("c1", "", "Nobody", models.RoleStudent, time.Now()); err != ErrInvalidEntityId {
		t.Fatalf("expected ErrInvalidEntityId, got %v", err)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d sessions", reg.Len())
	}
}

func TestRegistryRebindLastWriterWins(t *testing.T) {
	reg := NewSessionRegistry()
	now := time.Now()

	reg.Register("c1", "s1", "Khensani", models.RoleStudent, now)
	// Reconnect on a different connection silently reassigns ownership.
	reg.Register("c2", "s1", "Khensani M", models.RoleStudent, now.Add(time.Second))

	entity, _ := reg.Lookup("s1")
	if entity.ConnectionId != "c2" {
		t.Fatalf("expected rebind to c2, got %s", entity.ConnectionId)
	}
	if entity.DisplayName != "Khensani M" {
		t.Fatalf("expected refreshed display name, got %s", entity.DisplayName)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected rebind not to duplicate, got %d sessions", reg.Len())
	}

	// The stale connection no longer owns anything.
	if removed := reg.Unbind("c1"); len(removed) != 0 {
		t.Fatalf("expected nothing unbound for stale c1, got %v", removed)
	}
	if removed := reg.Unbind("c2"); len(removed) != 1 || removed[0] != "s1" {
		t.Fatalf("expected [s1] unbound for c2, got %v", removed)
	}
}

func TestRegistryUnbindRemovesAllOwned(t *testing.T) {
	reg := NewSessionRegistry()
	now := time.Now()

	reg.Register("c1", "s1", "A", models.RoleStudent, now)
	reg.Register("c2", "s2", "B", models.RoleStudent, now)
	reg.Register("c1", "s3", "C", models.RoleStudent, now)

	removed := reg.Unbind("c1")
	if len(removed) != 2 || removed[0] != "s1" || removed[1] != "s3" {
		t.Fatalf("expected [s1 s3], got %v", removed)
	}
	if _, ok := reg.Lookup("s2"); !ok {
		t.Fatalf("expected s2 untouched by c1 unbind")
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 session left, got %d", reg.Len())
	}
}

func TestRegistryTouch(t *testing.T) {
	reg := NewSessionRegistry()
	registered := time.Now()
	reg.Register("c1", "s1", "A", models.RoleStudent, registered)

	later := registered.Add(time.Minute)
	if !reg.Touch("s1", later) {
		t.Fatalf("expected touch of known entity to succeed")
	}
	entity, _ := reg.Lookup("s1")
	if !entity.LastActive.Equal(later) {
		t.Fatalf("expected lastActive %v, got %v", later, entity.LastActive)
	}

	// Heartbeats for never-registered ids are a no-op.
	if reg.Touch("ghost", later) {
		t.Fatalf("expected touch of unknown entity to report false")
	}
	if reg.Len() != 1 {
		t.Fatalf("expected no implicit registration, got %d sessions", reg.Len())
	}
}

func TestRegistrySnapshotInsertionOrder(t *testing.T) {
	reg := NewSessionRegistry()
	now := time.Now()

	reg.Register("c1", "s2", "B", models.RoleStudent, now)
	reg.Register("c1", "s1", "A", models.RoleTeacher, now)
	reg.Register("c2", "s2", "B2", models.RoleStudent, now)

	entities := reg.Snapshot()
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}
	if entities[0].Id != "s2" || entities[1].Id != "s1" {
		t.Fatalf("expected insertion order [s2 s1], got [%s %s]", entities[0].Id, entities[1].Id)
	}
}
