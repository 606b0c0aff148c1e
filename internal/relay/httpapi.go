package relay

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
)

const trackerVersion = "2.0.0"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Trackers connect from arbitrary origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StatusExtView is the external view of relay state for the status API
type StatusExtView struct {
	Status            string    `json:"status"`
	Server            string    `json:"server"`
	Version           string    `json:"version"`
	StudentsTracked   int       `json:"studentsTracked"`
	ActiveConnections int64     `json:"activeConnections"`
	UserSessions      int       `json:"userSessions"`
	UptimeSeconds     int64     `json:"uptime"`
	DroppedFrames     uint64    `json:"droppedFrames"`
	Timestamp         time.Time `json:"timestamp"`
}

func (e *StatusExtView) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// LocationExtView is the external view of one tracked location
type LocationExtView struct {
	StudentId  string    `json:"studentId"`
	Name       string    `json:"name"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	LastUpdate time.Time `json:"lastUpdate"`
	Accuracy   string    `json:"accuracy"`
}

func (e *LocationExtView) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// StudentExtView is the external view of one registered session
type StudentExtView struct {
	StudentId    string    `json:"studentId"`
	Name         string    `json:"name"`
	UserType     string    `json:"userType"`
	RegisteredAt time.Time `json:"registeredAt"`
	LastActive   time.Time `json:"lastActive"`
}

func (e *StudentExtView) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// HealthExtView is the liveness view
type HealthExtView struct {
	Status      string    `json:"status"`
	Tracker     string    `json:"tracker"`
	Websocket   string    `json:"websocket"`
	Connections int64     `json:"connections"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e *HealthExtView) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// Handler builds the HTTP router: read-only projections of relay state
// plus the websocket upgrade endpoint. Nothing here mutates the stores.
func (s *Relay) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ws", s.serveWs)

	api := chi.NewRouter()
	if s.cfg.Http.BasicAuth {
		userdb := make(map[string]string)
		for _, v := range s.cfg.Http.Users {
			userdb[v.User] = v.Password
		}
		api.Use(middleware.BasicAuth(s.cfg.Http.ServerName, userdb))
	}
	api.Use(middleware.Timeout(60 * time.Second))

	api.Get("/status", s.apiTrackerStatus)
	api.Get("/locations", s.apiTrackerLocations)
	api.Get("/students", s.apiTrackerStudents)
	api.Get("/health", s.apiTrackerHealth)

	r.Mount("/api/tracker", api)

	// Short aliases for the same projections.
	r.Get("/status", s.apiTrackerStatus)
	r.Get("/locations", s.apiTrackerLocations)
	r.Get("/health", s.apiTrackerHealth)

	return r
}

// Run starts the reactor and serves HTTP until the listener fails.
func (s *Relay) Run() error {
	s.Start()
	defer s.Stop()

	log.Printf("Run: %s listening on %s", s.cfg.Http.ServerName, s.cfg.Http.Listen)
	return http.ListenAndServe(s.cfg.Http.Listen, s.Handler())
}

// serveWs upgrades the connection and hands it to the reactor.
func (s *Relay) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("serveWs: upgrade failed (%v)", err)
		return
	}

	c := newClient(s, conn)
	s.post(event{kind: eventAttach, c: c})
	go c.writePump()
	go c.readPump()
}

func (s *Relay) apiTrackerStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	tracked := s.locations.Len()
	sessions := s.registry.Len()
	s.mu.Unlock()

	render.Render(w, r, &StatusExtView{
		Status:            "active",
		Server:            s.cfg.Http.ServerName,
		Version:           trackerVersion,
		StudentsTracked:   tracked,
		ActiveConnections: s.connCount.Load(),
		UserSessions:      sessions,
		UptimeSeconds:     int64(time.Since(s.started).Seconds()),
		DroppedFrames:     s.droppedFrames.Load(),
		Timestamp:         time.Now(),
	})
}

func (s *Relay) apiTrackerLocations(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	pairs := s.locations.Snapshot()
	s.mu.Unlock()

	outs := []render.Renderer{}
	for _, p := range pairs {
		outs = append(outs, &LocationExtView{
			StudentId:  p.EntityId,
			Name:       p.Entry.Name,
			Lat:        p.Entry.Location.Lat,
			Lng:        p.Entry.Location.Lng,
			LastUpdate: p.Entry.LastUpdate,
			Accuracy:   p.Entry.Accuracy,
		})
	}

	render.RenderList(w, r, outs)
}

func (s *Relay) apiTrackerStudents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	entities := s.registry.Snapshot()
	s.mu.Unlock()

	outs := []render.Renderer{}
	for _, e := range entities {
		outs = append(outs, &StudentExtView{
			StudentId:    e.Id,
			Name:         e.DisplayName,
			UserType:     string(e.Kind),
			RegisteredAt: e.RegisteredAt,
			LastActive:   e.LastActive,
		})
	}

	render.RenderList(w, r, outs)
}

func (s *Relay) apiTrackerHealth(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, &HealthExtView{
		Status:      "healthy",
		Tracker:     "operational",
		Websocket:   "active",
		Connections: s.connCount.Load(),
		Timestamp:   time.Now(),
	})
}
