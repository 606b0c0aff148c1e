package tracksim

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/models"
	"github.com/backtoubuntu-glitch/MindFlow-AI/internal/trackclient"
)

// Agent simulates one student tracker: it registers, random-walks its
// position around a base point, heartbeats, and mirrors the broadcast
// stream through its own reconciler so zone exits get logged client-side.
type Agent struct {
	Id        int
	Server    string
	StudentId string
	Name      string
	BaseLat   float64
	BaseLng   float64
	Interval  int
	Heartbeat int
	Zone      trackclient.Zone
	Debug     bool

	client      *trackclient.Client
	intvlTicker *time.Ticker
	hbTicker    *time.Ticker
	killSig     chan struct{}
	wg          *sync.WaitGroup
}

func (s *Agent) finish() {
	if s.intvlTicker != nil {
		s.intvlTicker.Stop()
	}
	if s.hbTicker != nil {
		s.hbTicker.Stop()
	}
	if s.client != nil {
		s.client.Close()
	}
	if s.wg != nil {
		s.wg.Done()
	}

	log.Printf("agent#%d: finished process thread", s.Id)
}

// step publishes the next simulated position fix, drifting up to
// 0.00025 degrees per tick around the base point.
func (s *Agent) step() {
	loc := models.Location{
		Lat:        s.BaseLat + (rand.Float64()-0.5)*0.0005,
		Lng:        s.BaseLng + (rand.Float64()-0.5)*0.0005,
		CapturedAt: time.Now().UnixMilli(),
	}

	if err := s.client.PublishLocation(s.StudentId, s.Name, loc); err != nil {
		log.Printf("agent#%d: publish failed (%v)", s.Id, err)
		s.reconnect()
		return
	}

	if s.Debug {
		log.Printf("agent#%d: %s at %f,%f", s.Id, s.StudentId, loc.Lat, loc.Lng)
	}
}

// reconnect tears the session down and builds a fresh one. The old
// listen goroutine exits with the closed connection; a new one takes
// over for the replacement.
func (s *Agent) reconnect() {
	s.client.Close()

	if err := s.client.Connect(); err != nil {
		log.Printf("agent#%d: reconnect failed (%v)", s.Id, err)
		return
	}
	if err := s.client.Register(s.StudentId, s.Name, models.RoleStudent); err != nil {
		log.Printf("agent#%d: re-register failed (%v)", s.Id, err)
		return
	}
	go s.client.Listen(s.killSig)

	log.Printf("agent#%d: reconnected", s.Id)
}

func (s *Agent) Run(wg *sync.WaitGroup, killSig chan struct{}) error {
	log.Printf("agent#%d: start tracker agent (student %s, interval %d)", s.Id, s.StudentId, s.Interval)

	rec := trackclient.NewReconciler()
	rec.WatchZone(s.Zone, func(entityId string, loc models.Location) {
		log.Printf("agent#%d: SAFETY ALERT student %s left zone at %f,%f", s.Id, entityId, loc.Lat, loc.Lng)
	})
	s.client = trackclient.NewClient(s.Server, rec)

	s.intvlTicker = time.NewTicker(time.Duration(s.Interval) * time.Second)
	s.hbTicker = time.NewTicker(time.Duration(s.Heartbeat) * time.Second)
	s.killSig = killSig
	s.wg = wg

	wg.Add(1)
	defer s.finish()

	if err := s.client.Connect(); err != nil {
		log.Printf("agent#%d: connect failed (%v)", s.Id, err)
		return err
	}

	if err := s.client.Register(s.StudentId, s.Name, models.RoleStudent); err != nil {
		log.Printf("agent#%d: register failed (%v)", s.Id, err)
		return err
	}

	// Broadcast consumption runs until the connection drops; step()
	// notices the broken session and reconnects.
	go s.client.Listen(killSig)

	s.step()
	for {
		select {
		case <-killSig:
			return nil
		case <-s.hbTicker.C:
			if err := s.client.Heartbeat(s.StudentId); err != nil {
				log.Printf("agent#%d: heartbeat failed (%v)", s.Id, err)
			}
		case <-s.intvlTicker.C:
			s.step()
		}
	}
}
