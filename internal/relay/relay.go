package relay

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/models"
	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/wire"
)

type eventKind int

const (
	eventAttach eventKind = iota
	eventFrame
	eventDetach
)

type event struct {
	kind  eventKind
	c     *client
	frame []byte
}

// Relay brokers tracker events between connected clients. All protocol
// state lives on the relay instance, never in package globals, so tests
// can run isolated instances side by side.
//
// Mutations run on the single reactor goroutine; the mutex exists only so
// the read-only HTTP projections and the parent push workers can take
// consistent snapshots from their own goroutines.
type Relay struct {
	cfg Config

	mu        sync.Mutex
	registry  *SessionRegistry
	locations *LocationStore

	alerts *AlertDispatcher
	roles  map[models.Role]RoleHandler

	clients map[string]*client
	events  chan event
	quit    chan struct{}
	stopped chan struct{}

	started       time.Time
	connCount     atomic.Int64
	droppedFrames atomic.Uint64
	now           func() time.Time
}

func New(cfg Config) *Relay {
	cfg.applyDefaults()

	r := &Relay{
		cfg:       cfg,
		registry:  NewSessionRegistry(),
		locations: NewLocationStore(),
		alerts:    NewAlertDispatcher(),
		clients:   make(map[string]*client),
		events:    make(chan event, 256),
		quit:      make(chan struct{}),
		stopped:   make(chan struct{}),
		started:   time.Now(),
		now:       time.Now,
	}
	r.roles = defaultRoles(cfg)
	return r
}

// Start launches the reactor goroutine.
func (r *Relay) Start() {
	go r.loop()
}

// Stop shuts the reactor down and closes every live connection.
func (r *Relay) Stop() {
	close(r.quit)
	<-r.stopped
}

// post hands an event to the reactor. Once the relay has stopped, events
// are discarded so late pump goroutines cannot block.
func (r *Relay) post(ev event) {
	select {
	case <-r.stopped:
	case r.events <- ev:
	}
}

// loop is the reactor: inbound events are processed one at a time in
// arrival order, which is what makes snapshot reads torn-write free.
func (r *Relay) loop() {
	defer close(r.stopped)

	health := time.NewTicker(time.Duration(r.cfg.Relay.HealthInterval) * time.Second)
	defer health.Stop()

	for {
		select {
		case <-r.quit:
			for _, c := range r.clients {
				close(c.done)
			}
			r.clients = make(map[string]*client)
			r.connCount.Store(0)
			return
		case now := <-health.C:
			for _, c := range r.clients {
				c.lastSeen = now
			}
			if r.cfg.Relay.Debug {
				log.Printf("loop: health stamp, %d connections", len(r.clients))
			}
		case ev := <-r.events:
			switch ev.kind {
			case eventAttach:
				r.handleAttach(ev.c)
			case eventFrame:
				r.handleFrame(ev.c, ev.frame)
			case eventDetach:
				r.handleDetach(ev.c)
			}
		}
	}
}

/* Reactor handlers */

// handleAttach admits a new connection and primes it with the current
// snapshot plus a status greeting, so clients can render before any
// incremental update arrives.
func (r *Relay) handleAttach(c *client) {
	r.clients[c.id] = c
	r.connCount.Store(int64(len(r.clients)))
	c.lastSeen = r.now()
	c.role = models.RoleStudent

	log.Printf("handleAttach: tracker connection %s", c.id)

	c.enqueue(r.snapshotFrame())
	r.sendTrackerStatus(c)
}

// handleFrame runs the protocol state machine for one inbound frame.
// Malformed frames are dropped and logged; the connection stays open.
func (r *Relay) handleFrame(c *client, data []byte) {
	c.lastSeen = r.now()

	frameType, err := wire.PeekType(data)
	if err != nil {
		log.Printf("handleFrame: client %s sent undecodable frame (%v)", c.id, err)
		return
	}

	switch frameType {
	case wire.TypeRegister:
		r.handleRegister(c, data)
	case wire.TypeLocation:
		r.handleLocation(c, data)
	case wire.TypeGetLocations:
		c.enqueue(r.snapshotFrame())
	case wire.TypeHeartbeat:
		r.handleHeartbeat(c, data)
	case wire.TypeEmergency:
		r.handleEmergency(c, data)
	case wire.TypeClassAlert:
		r.handleClassAlert(c, data)
	default:
		log.Printf("handleFrame: client %s sent unknown frame type %q", c.id, frameType)
		return
	}

	r.roleFor(c.role).OnEvent(r, c, frameType)
}

func (r *Relay) handleRegister(c *client, data []byte) {
	var f wire.RegisterFrame
	if err := json.Unmarshal(data, &f); err != nil {
		log.Printf("handleRegister: client %s bad payload (%v)", c.id, err)
		return
	}
	if f.StudentId == "" {
		log.Printf("handleRegister: client %s missing studentId, dropped", c.id)
		return
	}

	now := r.now()
	role := models.ParseRole(f.UserType)

	r.mu.Lock()
	err := r.registry.Register(c.id, f.StudentId, f.Name, role, now)
	r.mu.Unlock()
	if err != nil {
		log.Printf("handleRegister: client %s register %s failed (%v)", c.id, f.StudentId, err)
		return
	}

	log.Printf("handleRegister: student %s (%s) registered on %s", f.StudentId, f.Name, c.id)

	firstRegistration := !c.registered
	c.registered = true
	c.role = role
	c.entityId = f.StudentId
	if firstRegistration {
		r.roleFor(role).OnConnect(r, c)
	}

	r.broadcast(wire.StudentJoinedMessage{
		Type:      wire.TypeStudentJoined,
		StudentId: f.StudentId,
		Name:      f.Name,
		Timestamp: now,
	})
}

func (r *Relay) handleLocation(c *client, data []byte) {
	var f wire.LocationFrame
	if err := json.Unmarshal(data, &f); err != nil {
		log.Printf("handleLocation: client %s bad payload (%v)", c.id, err)
		return
	}
	if f.StudentId == "" || f.Location == nil {
		log.Printf("handleLocation: client %s invalid location data, dropped", c.id)
		return
	}

	now := r.now()

	loc := *f.Location
	if loc.CapturedAt == 0 {
		loc.CapturedAt = now.UnixMilli()
	}

	accuracy := f.Accuracy
	if accuracy == "" {
		accuracy = "high"
	}
	battery := f.Battery
	if battery == "" {
		battery = "unknown"
	}

	r.mu.Lock()
	name := f.Name
	if name == "" {
		if entity, ok := r.registry.Lookup(f.StudentId); ok {
			name = entity.DisplayName
		} else {
			name = "Unknown Student"
		}
	}

	// Unregistered ids are tracked anonymously; the store entry itself
	// is the implicit registration.
	r.locations.Update(models.LocationEntry{
		EntityId:     f.StudentId,
		Name:         name,
		Location:     loc,
		ConnectionId: c.id,
		LastUpdate:   now,
		Accuracy:     accuracy,
		Battery:      battery,
	})
	r.registry.Touch(f.StudentId, now)
	r.mu.Unlock()

	if r.cfg.Relay.Debug {
		log.Printf("handleLocation: %s at %f,%f", f.StudentId, loc.Lat, loc.Lng)
	}

	r.broadcast(wire.LocationUpdateMessage{
		Type:      wire.TypeLocationUpdate,
		StudentId: f.StudentId,
		Name:      name,
		Location:  loc,
		Timestamp: now,
	})
}

func (r *Relay) handleHeartbeat(c *client, data []byte) {
	var f wire.HeartbeatFrame
	if err := json.Unmarshal(data, &f); err != nil {
		log.Printf("handleHeartbeat: client %s bad payload (%v)", c.id, err)
		return
	}

	// Unknown entity heartbeats are a no-op, not an implicit registration.
	r.mu.Lock()
	r.registry.Touch(f.StudentId, r.now())
	r.mu.Unlock()
}

func (r *Relay) handleEmergency(c *client, data []byte) {
	payload := make(map[string]interface{})
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("handleEmergency: client %s bad payload (%v)", c.id, err)
		return
	}
	delete(payload, "type")

	sourceId, _ := payload["studentId"].(string)
	ev := r.alerts.Dispatch(models.AlertEmergency, sourceId, payload, "")

	log.Printf("handleEmergency: SAFETY LOG alert %s from %q: %v", ev.AlertId, sourceId, payload)

	r.broadcast(wire.NewAlertBroadcast(wire.TypeEmergency, payload, ev))
}

func (r *Relay) handleClassAlert(c *client, data []byte) {
	var f wire.ClassAlertFrame
	if err := json.Unmarshal(data, &f); err != nil {
		log.Printf("handleClassAlert: client %s bad payload (%v)", c.id, err)
		return
	}

	payload := make(map[string]interface{})
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("handleClassAlert: client %s bad payload (%v)", c.id, err)
		return
	}
	delete(payload, "type")

	from := f.Teacher
	if from == "" {
		from = "System"
	}
	payload["from"] = from

	ev := r.alerts.Dispatch(models.AlertClassBroadcast, c.entityId, payload, classSeverityOverride(f.AlertType))

	log.Printf("handleClassAlert: alert %s from %s: %s", ev.AlertId, from, f.Message)

	r.broadcast(wire.NewAlertBroadcast(wire.TypeClassAlert, payload, ev))
}

// classSeverityOverride maps an optional inbound alertType onto a
// severity; anything unrecognized keeps the info default.
func classSeverityOverride(alertType string) models.AlertSeverity {
	switch alertType {
	case "warning":
		return models.SeverityWarning
	case "high", "emergency":
		return models.SeverityHigh
	default:
		return ""
	}
}

// handleDetach unwinds one connection: role workers are cancelled, its
// entities leave the registry, and their locations vanish from the store.
// Exactly one students-disconnected broadcast covers all removed ids.
func (r *Relay) handleDetach(c *client) {
	if _, ok := r.clients[c.id]; !ok {
		return
	}
	delete(r.clients, c.id)
	r.connCount.Store(int64(len(r.clients)))
	close(c.done)

	log.Printf("handleDetach: tracker connection %s closed", c.id)

	r.mu.Lock()
	removed := r.registry.Unbind(c.id)
	seen := make(map[string]bool, len(removed))
	for _, id := range removed {
		seen[id] = true
	}
	for _, id := range r.locations.OwnedBy(c.id) {
		if !seen[id] {
			removed = append(removed, id)
			seen[id] = true
		}
	}
	for _, id := range removed {
		r.locations.Delete(id)
	}
	r.mu.Unlock()

	if len(removed) == 0 {
		return
	}

	r.broadcast(wire.StudentsLeftMessage{
		Type:      wire.TypeStudentsLeft,
		Students:  removed,
		Timestamp: r.now(),
	})
}

/* Fan-out */

// broadcast marshals once and enqueues to every connection. A slow client
// only ever loses its own frames.
func (r *Relay) broadcast(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broadcast: failed to marshal %T (%v)", msg, err)
		return
	}
	for _, c := range r.clients {
		c.enqueue(data)
	}
}

// snapshotFrame builds an all-locations reply from the current store.
// Safe to call off-reactor; it takes the relay lock.
func (r *Relay) snapshotFrame() []byte {
	r.mu.Lock()
	pairs := r.locations.Snapshot()
	r.mu.Unlock()

	data, err := json.Marshal(wire.AllLocationsMessage{
		Type:      wire.TypeAllLocations,
		Locations: pairs,
	})
	if err != nil {
		log.Printf("snapshotFrame: marshal failed (%v)", err)
		return []byte(`{"type":"all-locations","locations":[]}`)
	}
	return data
}

func (r *Relay) sendTrackerStatus(c *client) {
	r.mu.Lock()
	tracked := r.locations.Len()
	r.mu.Unlock()

	data, err := json.Marshal(wire.TrackerStatusMessage{
		Type:            wire.TypeTrackerStatus,
		Status:          "active",
		StudentsTracked: tracked,
		Message:         "MindFlow Tracker Active",
	})
	if err != nil {
		log.Printf("sendTrackerStatus: marshal failed (%v)", err)
		return
	}
	c.enqueue(data)
}
