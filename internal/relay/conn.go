package relay

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/models"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 8192
)

// client is one live transport session. The reactor owns registered,
// role, entityId and lastSeen; send and done are shared with the pumps.
type client struct {
	id    string
	conn  *websocket.Conn
	relay *Relay

	send chan []byte
	done chan struct{}

	registered bool
	role       models.Role
	entityId   string
	lastSeen   time.Time
}

func newClient(r *Relay, conn *websocket.Conn) *client {
	return &client{
		id:    uuid.NewString(),
		conn:  conn,
		relay: r,
		send:  make(chan []byte, r.cfg.Relay.SendQueue),
		done:  make(chan struct{}),
	}
}

// enqueue hands a frame to the write pump without blocking. A full queue
// drops the frame; the sender is never told.
func (c *client) enqueue(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.relay.droppedFrames.Add(1)
		log.Printf("enqueue: client %s queue full, dropped frame", c.id)
	}
}

// readPump feeds inbound frames to the reactor in arrival order. Runs as
// its own goroutine; posting the detach event is its last act.
func (c *client) readPump() {
	defer func() {
		c.relay.post(event{kind: eventDetach, c: c})
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("readPump: client %s read failed (%v)", c.id, err)
			}
			return
		}
		c.relay.post(event{kind: eventFrame, c: c, frame: data})
	}
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with pings. Exits when the reactor closes done or a write fails.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("writePump: client %s write failed (%v)", c.id, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
