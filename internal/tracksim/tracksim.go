package tracksim

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/models"
	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/trackclient"
)

// Sim drives a fleet of simulated student trackers against one relay.
type Sim struct {
	cfg Config

	agents []*Agent
	wg     *sync.WaitGroup
}

func New(cfg Config) (*Sim, error) {
	if cfg.Server == "" {
		return nil, fmt.Errorf("missing server address")
	}
	if len(cfg.Students) == 0 {
		return nil, fmt.Errorf("no students configured")
	}
	if cfg.Sim.Interval <= 0 {
		cfg.Sim.Interval = 3
	}
	if cfg.Sim.Heartbeat <= 0 {
		cfg.Sim.Heartbeat = 30
	}

	zone := trackclient.SchoolZone()
	if len(cfg.Zone.Points) >= 3 {
		zone = trackclient.Zone{Name: cfg.Zone.Name}
		for _, p := range cfg.Zone.Points {
			zone.Points = append(zone.Points, models.Point{Lat: p.Lat, Lng: p.Lng})
		}
	}

	s := &Sim{
		cfg: cfg,
		wg:  &sync.WaitGroup{},
	}

	for id, v := range cfg.Students {
		agent := &Agent{
			Id:        id,
			Server:    cfg.Server,
			StudentId: v.Id,
			Name:      v.Name,
			BaseLat:   v.BaseLat,
			BaseLng:   v.BaseLng,
			Interval:  cfg.Sim.Interval,
			Heartbeat: cfg.Sim.Heartbeat,
			Zone:      zone,
			Debug:     cfg.Sim.Debug,
		}

		s.agents = append(s.agents, agent)
	}

	return s, nil
}

// Run launches every agent and blocks until a kill signal arrives.
func (s *Sim) Run() error {
	var shutdownSigs []chan struct{}
	for _, agent := range s.agents {
		agentShutdownSig := make(chan struct{}, 1)
		shutdownSigs = append(shutdownSigs, agentShutdownSig)
		go agent.Run(s.wg, agentShutdownSig)
	}

	killSig := make(chan os.Signal, 1)
	signal.Notify(killSig, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	<-killSig

	log.Printf("Caught kill signal, shutting down")
	for _, sig := range shutdownSigs {
		close(sig)
	}
	s.wg.Wait()

	log.Printf("All agents exited")

	return nil
}
