package relay

import (
	"log"
	"time"

	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/models"
	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/wire"
)

// RoleHandler gives each client role its connection-time setup and a hook
// on processed events. The relay core stays role-agnostic and dispatches
// through a registry keyed by role tag.
type RoleHandler interface {
	OnConnect(r *Relay, c *client)
	OnEvent(r *Relay, c *client, frameType string)
}

type studentRole struct{}

func (studentRole) OnConnect(r *Relay, c *client)                 {}
func (studentRole) OnEvent(r *Relay, c *client, frameType string) {}

type teacherRole struct{}

func (teacherRole) OnConnect(r *Relay, c *client) {
	log.Printf("teacherRole: client %s connected as teacher", c.id)
}

func (teacherRole) OnEvent(r *Relay, c *client, frameType string) {
	if frameType == wire.TypeClassAlert {
		log.Printf("teacherRole: class alert issued by %s", c.entityId)
	}
}

// parentRole pushes a fresh bulk snapshot on an interval so parent
// dashboards converge even if they miss incremental updates.
type parentRole struct {
	interval time.Duration
}

func (p parentRole) OnConnect(r *Relay, c *client) {
	go p.pushLoop(r, c)
}

func (p parentRole) OnEvent(r *Relay, c *client, frameType string) {}

func (p parentRole) pushLoop(r *Relay, c *client) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.enqueue(r.snapshotFrame())
		}
	}
}

func defaultRoles(cfg Config) map[models.Role]RoleHandler {
	return map[models.Role]RoleHandler{
		models.RoleStudent: studentRole{},
		models.RoleTeacher: teacherRole{},
		models.RoleParent:  parentRole{interval: time.Duration(cfg.Relay.ParentPush) * time.Second},
	}
}

func (r *Relay) roleFor(role models.Role) RoleHandler {
	if h, ok := r.roles[role]; ok {
		return h
	}
	return r.roles[models.RoleStudent]
}
