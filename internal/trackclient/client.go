package trackclient

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/models"
	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/wire"
)

const (
	writeWait     = 10 * time.Second
	reconnectWait = 3 * time.Second
)

// AlertFunc receives emergency/class alert broadcasts.
type AlertFunc func(frameType string, payload map[string]interface{})

// Client is one tracker connection to the relay. It feeds every
// broadcast into its Reconciler in arrival order and requests a fresh
// bulk snapshot after every (re)connect, since incremental updates are
// only trustworthy on top of one.
type Client struct {
	url string

	rec     *Reconciler
	onAlert AlertFunc

	mu   sync.Mutex
	conn *websocket.Conn
}

// wsURL normalizes a server address into the websocket endpoint.
func wsURL(server string) string {
	u := server
	u = strings.Replace(u, "http://", "ws://", 1)
	u = strings.Replace(u, "https://", "wss://", 1)
	if !strings.HasPrefix(u, "ws://") && !strings.HasPrefix(u, "wss://") {
		u = "ws://" + u
	}
	return strings.TrimSuffix(u, "/") + "/ws"
}

func NewClient(server string, rec *Reconciler) *Client {
	return &Client{
		url: wsURL(server),
		rec: rec,
	}
}

// OnAlert installs the alert callback. Set before Run.
func (c *Client) OnAlert(fn AlertFunc) {
	c.onAlert = fn
}

// Reconciler exposes the local mirror for rendering.
func (c *Client) Reconciler() *Reconciler {
	return c.rec
}

// Connect dials the relay and requests the initial snapshot.
func (c *Client) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	// The relay pushes a snapshot on attach; requesting one anyway keeps
	// reconnects honest even if that greeting was dropped.
	return c.send(wire.GetLocationsFrame{Type: wire.TypeGetLocations})
}

// Close tears the connection down.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Listen consumes broadcasts on the current connection until it drops
// or stop closes. Unlike Run it never redials.
func (c *Client) Listen(stop <-chan struct{}) {
	c.readLoop(stop)
}

// Run keeps the client connected until stop closes: dial, snapshot,
// consume broadcasts, and on any failure back off and reconnect.
func (c *Client) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := c.Connect(); err != nil {
			log.Printf("Run: %v, retrying in %s", err, reconnectWait)
			if !sleepOrStop(stop, reconnectWait) {
				return
			}
			continue
		}

		c.readLoop(stop)
		c.Close()

		if !sleepOrStop(stop, reconnectWait) {
			return
		}
	}
}

func sleepOrStop(stop <-chan struct{}, d time.Duration) bool {
	select {
	case <-stop:
		return false
	case <-time.After(d):
		return true
	}
}

// readLoop dispatches inbound frames to the reconciler one at a time, in
// the order the transport delivers them.
func (c *Client) readLoop(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("readLoop: read failed (%v)", err)
			return
		}

		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	frameType, err := wire.PeekType(data)
	if err != nil {
		log.Printf("dispatch: undecodable frame (%v)", err)
		return
	}

	switch frameType {
	case wire.TypeAllLocations:
		var msg wire.AllLocationsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("dispatch: bad all-locations frame (%v)", err)
			return
		}
		c.rec.ApplySnapshot(msg.Locations)

	case wire.TypeLocationUpdate:
		var msg wire.LocationUpdateMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("dispatch: bad location-update frame (%v)", err)
			return
		}
		c.rec.ApplyUpdate(msg.StudentId, msg.Name, msg.Location)

	case wire.TypeStudentsLeft:
		var msg wire.StudentsLeftMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("dispatch: bad students-disconnected frame (%v)", err)
			return
		}
		c.rec.ApplyEntitiesLeft(msg.Students)

	case wire.TypeStudentJoined:
		var msg wire.StudentJoinedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		log.Printf("dispatch: %s (%s) joined", msg.StudentId, msg.Name)

	case wire.TypeTrackerStatus:
		var msg wire.TrackerStatusMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		log.Printf("dispatch: server status %s, %d tracked", msg.Status, msg.StudentsTracked)

	case wire.TypeEmergency, wire.TypeClassAlert:
		payload := make(map[string]interface{})
		if err := json.Unmarshal(data, &payload); err != nil {
			log.Printf("dispatch: bad alert frame (%v)", err)
			return
		}
		if c.onAlert != nil {
			c.onAlert(frameType, payload)
			return
		}
		log.Printf("dispatch: %s alert %v", frameType, payload["alertId"])

	default:
		log.Printf("dispatch: unknown frame type %q", frameType)
	}
}

/* Publishing */

func (c *Client) send(msg interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// Register announces this client's tracked entity to the relay.
func (c *Client) Register(studentId, name string, role models.Role) error {
	return c.send(wire.RegisterFrame{
		Type:      wire.TypeRegister,
		StudentId: studentId,
		Name:      name,
		UserType:  string(role),
	})
}

// PublishLocation reports a position fix for an entity.
func (c *Client) PublishLocation(studentId, name string, loc models.Location) error {
	return c.send(wire.LocationFrame{
		Type:      wire.TypeLocation,
		StudentId: studentId,
		Name:      name,
		Location:  &loc,
	})
}

// Heartbeat refreshes the entity's lastActive on the relay.
func (c *Client) Heartbeat(studentId string) error {
	return c.send(wire.HeartbeatFrame{
		Type:      wire.TypeHeartbeat,
		StudentId: studentId,
	})
}

// EmergencyAlert raises a high-severity alert for fan-out to everyone.
func (c *Client) EmergencyAlert(studentId, message string, loc *models.Location) error {
	payload := map[string]interface{}{
		"type":      wire.TypeEmergency,
		"studentId": studentId,
		"message":   message,
	}
	if loc != nil {
		payload["location"] = loc
	}
	return c.send(payload)
}

// ClassAlert broadcasts a teacher announcement.
func (c *Client) ClassAlert(teacher, message, alertType string) error {
	return c.send(wire.ClassAlertFrame{
		Type:      wire.TypeClassAlert,
		Teacher:   teacher,
		Message:   message,
		AlertType: alertType,
	})
}
