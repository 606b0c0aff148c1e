package models

import (
	"time"
)

// Role identifies what kind of client registered a tracked entity.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"
)

// ParseRole maps an inbound userType string onto a known role.
// Unknown values fall back to the student role.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleTeacher:
		return RoleTeacher
	case RoleParent:
		return RoleParent
	default:
		return RoleStudent
	}
}

// Location is the last reported position of a tracked entity.
// Immutable value, each update replaces the prior one outright.
type Location struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	CapturedAt int64   `json:"timestamp,omitempty"` // unix milliseconds
}

// Point is a polygon vertex used for zone boundaries.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TrackedEntity represents one registered participant in the tracker
type TrackedEntity struct {
	Id           string    `json:"studentId"`
	DisplayName  string    `json:"name"`
	Kind         Role      `json:"userType"`
	ConnectionId string    `json:"-"`
	RegisteredAt time.Time `json:"registeredAt"`
	LastActive   time.Time `json:"lastActive"`
}

// LocationEntry is the stored last-known state for one entity in the
// location store. EntityId doubles as the map key.
type LocationEntry struct {
	EntityId     string    `json:"studentId"`
	Name         string    `json:"name"`
	Location     Location  `json:"location"`
	ConnectionId string    `json:"-"`
	LastUpdate   time.Time `json:"lastUpdate"`
	Accuracy     string    `json:"accuracy"`
	Battery      string    `json:"battery"`
}

// AlertSeverity grades a dispatched alert.
type AlertSeverity string

const (
	SeverityInfo    AlertSeverity = "info"
	SeverityWarning AlertSeverity = "warning"
	SeverityHigh    AlertSeverity = "high"
)

// AlertKind classifies the safety event that produced an alert.
type AlertKind string

const (
	AlertEmergency      AlertKind = "emergency"
	AlertSafety         AlertKind = "safety"
	AlertClassBroadcast AlertKind = "class"
)

// AlertEvent is one stamped safety/broadcast alert. Never mutated after
// creation; it only lives long enough to be fanned out.
type AlertEvent struct {
	AlertId        string                 `json:"alertId"`
	Kind           AlertKind              `json:"kind"`
	SourceEntityId string                 `json:"studentId,omitempty"`
	Payload        map[string]interface{} `json:"-"`
	Severity       AlertSeverity          `json:"severity"`
	IssuedAt       time.Time              `json:"timestamp"`
}
