package relay

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/models"
)

func TestRoleForFallsBackToStudent(t *testing.T) {
	r := newTestRelay()

	if _, ok := r.roleFor(models.RoleParent).(parentRole); !ok {
		t.Fatalf("expected parent handler for parent role")
	}
	if _, ok := r.roleFor(models.Role("admin")).(studentRole); !ok {
		t.Fatalf("expected unknown role to fall back to student handler")
	}
}

func TestParentRolePushesPeriodicSnapshots(t *testing.T) {
	cfg := Config{}
	cfg.Relay.ParentPush = 1
	r := New(cfg)

	student := attachTestClient(t, r)
	sendFrame(t, r, student, `{"type":"student-location","studentId":"s1","location":{"lat":1,"lng":2}}`)

	parent := attachTestClient(t, r)
	sendFrame(t, r, parent, `{"type":"student-register","studentId":"p1","name":"Parent","userType":"parent"}`)
	drainFrames(t, parent)

	deadline := time.After(3 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("expected a periodic all-locations push for the parent client")
		case data := <-parent.send:
			frames := framesOfType([]map[string]interface{}{decodeFrame(t, data)}, "all-locations")
			if len(frames) == 1 {
				close(parent.done)
				return
			}
		}
	}
}

func decodeFrame(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("undecodable frame: %v", err)
	}
	return m
}
