package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/models"
)

// Inbound frame types (client -> relay).
const (
	TypeRegister     = "student-register"
	TypeLocation     = "student-location"
	TypeGetLocations = "get-locations"
	TypeHeartbeat    = "student-heartbeat"
	TypeEmergency    = "emergency-alert"
	TypeClassAlert   = "class-alert"
)

// Outbound frame types (relay -> clients).
const (
	TypeAllLocations   = "all-locations"
	TypeLocationUpdate = "location-update"
	TypeStudentJoined  = "student-joined"
	TypeStudentsLeft   = "students-disconnected"
	TypeTrackerStatus  = "tracker-status"
)

// Envelope carries only the discriminator; the full frame is decoded a
// second time once the type is known.
type Envelope struct {
	Type string `json:"type"`
}

// PeekType extracts the frame type without decoding the payload.
func PeekType(data []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", err
	}
	if env.Type == "" {
		return "", fmt.Errorf("frame has no type")
	}
	return env.Type, nil
}

/* Inbound payloads */

type RegisterFrame struct {
	Type      string `json:"type"`
	StudentId string `json:"studentId"`
	Name      string `json:"name"`
	UserType  string `json:"userType"`
}

type LocationFrame struct {
	Type      string           `json:"type"`
	StudentId string           `json:"studentId"`
	Name      string           `json:"name,omitempty"`
	Location  *models.Location `json:"location"`
	Accuracy  string           `json:"accuracy,omitempty"`
	Battery   string           `json:"battery,omitempty"`
}

type GetLocationsFrame struct {
	Type string `json:"type"`
}

type HeartbeatFrame struct {
	Type      string `json:"type"`
	StudentId string `json:"studentId"`
}

type ClassAlertFrame struct {
	Type      string `json:"type"`
	Teacher   string `json:"teacher,omitempty"`
	Message   string `json:"message"`
	AlertType string `json:"alertType,omitempty"`
}

/* Outbound messages */

// SnapshotPair serializes as a two-element [entityId, entry] array, the
// shape bulk snapshots are delivered in.
type SnapshotPair struct {
	EntityId string
	Entry    models.LocationEntry
}

func (p SnapshotPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{p.EntityId, p.Entry})
}

func (p *SnapshotPair) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &p.EntityId); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Entry)
}

type AllLocationsMessage struct {
	Type      string         `json:"type"`
	Locations []SnapshotPair `json:"locations"`
}

type LocationUpdateMessage struct {
	Type      string          `json:"type"`
	StudentId string          `json:"studentId"`
	Name      string          `json:"name"`
	Location  models.Location `json:"location"`
	Timestamp time.Time       `json:"timestamp"`
}

type StudentJoinedMessage struct {
	Type      string    `json:"type"`
	StudentId string    `json:"studentId"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

type StudentsLeftMessage struct {
	Type      string    `json:"type"`
	Students  []string  `json:"students"`
	Timestamp time.Time `json:"timestamp"`
}

type TrackerStatusMessage struct {
	Type            string `json:"type"`
	Status          string `json:"status"`
	StudentsTracked int    `json:"studentsTracked"`
	Message         string `json:"message"`
}

// AlertBroadcast carries a dispatched alert. The original inbound payload
// fields ride along next to the stamped ones, so it marshals as a flat
// object rather than a nested struct.
type AlertBroadcast map[string]interface{}

// NewAlertBroadcast flattens payload and stamp into one outbound frame.
// Stamped fields win over payload fields of the same name.
func NewAlertBroadcast(frameType string, payload map[string]interface{}, ev models.AlertEvent) AlertBroadcast {
	out := make(AlertBroadcast, len(payload)+5)
	for k, v := range payload {
		out[k] = v
	}
	out["type"] = frameType
	out["alertId"] = ev.AlertId
	out["severity"] = string(ev.Severity)
	out["timestamp"] = ev.IssuedAt
	return out
}
