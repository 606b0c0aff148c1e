package relay

import (
	"fmt"
	"time"

	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/models"
)

// AlertDispatcher stamps safety events with ids and severity before
// fan-out. Ids embed a millisecond stamp that is forced strictly
// monotonic, so same-millisecond dispatches still get distinct ids.
// Called only from the reactor, no lock needed.
type AlertDispatcher struct {
	lastStamp int64
	now       func() time.Time
}

func NewAlertDispatcher() *AlertDispatcher {
	return &AlertDispatcher{now: time.Now}
}

func severityFor(kind models.AlertKind) models.AlertSeverity {
	switch kind {
	case models.AlertEmergency:
		return models.SeverityHigh
	case models.AlertSafety:
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}

// Dispatch builds a stamped AlertEvent. override replaces the derived
// severity when non-empty (class broadcasts may carry an alertType).
// Every call yields an event; duplicates are never suppressed.
func (d *AlertDispatcher) Dispatch(kind models.AlertKind, sourceEntityId string, payload map[string]interface{}, override models.AlertSeverity) models.AlertEvent {
	issued := d.now()
	stamp := issued.UnixMilli()
	if stamp <= d.lastStamp {
		stamp = d.lastStamp + 1
	}
	d.lastStamp = stamp

	severity := severityFor(kind)
	if override != "" {
		severity = override
	}

	return models.AlertEvent{
		AlertId:        fmt.Sprintf("%s-%d", kind, stamp),
		Kind:           kind,
		SourceEntityId: sourceEntityId,
		Payload:        payload,
		Severity:       severity,
		IssuedAt:       issued,
	}
}
