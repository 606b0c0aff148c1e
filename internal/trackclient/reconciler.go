package trackclient

import (
	"log"
	"sync"

	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/models"
	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/wire"
)

// ZoneExitFunc is invoked once per inside-to-outside transition.
type ZoneExitFunc func(entityId string, loc models.Location)

// Reconciler keeps a local mirror of tracked-entity state from the
// relay's broadcast stream and runs zone-exit detection on it. Events
// must be applied in transport arrival order; the mutex only protects
// render-side reads against the transport goroutine.
type Reconciler struct {
	mu      sync.Mutex
	entries map[string]models.LocationEntry

	zone       *Zone
	inside     map[string]bool
	onZoneExit ZoneExitFunc
}

func NewReconciler() *Reconciler {
	return &Reconciler{
		entries: make(map[string]models.LocationEntry),
		inside:  make(map[string]bool),
	}
}

// WatchZone arms zone-exit detection. A nil callback just logs.
func (rc *Reconciler) WatchZone(zone Zone, fn ZoneExitFunc) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.zone = &zone
	rc.inside = make(map[string]bool)
	rc.onZoneExit = fn
}

// ApplySnapshot replaces the mirror wholesale from a bulk all-locations
// reply. Used once per (re)connect before trusting increments.
func (rc *Reconciler) ApplySnapshot(pairs []wire.SnapshotPair) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.entries = make(map[string]models.LocationEntry, len(pairs))
	for _, p := range pairs {
		entry := p.Entry
		entry.EntityId = p.EntityId
		rc.entries[p.EntityId] = entry
		rc.checkZoneLocked(p.EntityId, entry.Location)
	}
}

// ApplyUpdate upserts one entity and evaluates zone containment.
func (rc *Reconciler) ApplyUpdate(entityId, name string, loc models.Location) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	entry := rc.entries[entityId]
	entry.EntityId = entityId
	if name != "" {
		entry.Name = name
	}
	entry.Location = loc
	rc.entries[entityId] = entry

	rc.checkZoneLocked(entityId, loc)
}

// ApplyEntitiesLeft drops departed entities from the mirror.
func (rc *Reconciler) ApplyEntitiesLeft(entityIds []string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	for _, id := range entityIds {
		delete(rc.entries, id)
		delete(rc.inside, id)
	}
}

// Get returns the mirrored entry for one entity.
func (rc *Reconciler) Get(entityId string) (models.LocationEntry, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	entry, ok := rc.entries[entityId]
	return entry, ok
}

// Entities copies the current mirror for rendering.
func (rc *Reconciler) Entities() []models.LocationEntry {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	out := make([]models.LocationEntry, 0, len(rc.entries))
	for _, entry := range rc.entries {
		out = append(out, entry)
	}
	return out
}

// checkZoneLocked fires the exit callback on the inside-to-outside edge
// only; repeated outside updates stay silent until the entity re-enters.
// First sight outside the zone counts as an exit.
func (rc *Reconciler) checkZoneLocked(entityId string, loc models.Location) {
	if rc.zone == nil {
		return
	}

	nowInside := rc.zone.Contains(loc.Lat, loc.Lng)
	wasInside, known := rc.inside[entityId]
	rc.inside[entityId] = nowInside

	if nowInside {
		return
	}
	if known && !wasInside {
		return
	}

	if rc.onZoneExit != nil {
		rc.onZoneExit(entityId, loc)
		return
	}
	log.Printf("checkZoneLocked: SAFETY ALERT %s left zone %s", entityId, rc.zone.Name)
}
