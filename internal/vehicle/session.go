package vehicle

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/mission"
	log "github.com/sirupsen/logrus"
)

// Session owns a single vehicle link. Callers share a *Session instead
// of reaching for a package level connection.
type Session struct {
	mu        sync.Mutex
	link      Link
	address   string
	connected bool
	home      mission.Location
}

func NewSession(link Link) *Session {
	return &Session{link: link}
}

// Connect connects the link and records the vehicle position as home.
func (s *Session) Connect(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		if s.address == address {
			return nil
		}
		if err := s.link.Disconnect(); err != nil {
			log.Printf("Session: disconnect from %s failed: %v", s.address, err)
		}
		s.connected = false
	}

	if err := s.link.Connect(ctx, address); err != nil {
		return errors.Wrapf(err, "could not connect to %s", address)
	}
	t, err := s.link.Telemetry(ctx)
	if err != nil {
		if derr := s.link.Disconnect(); derr != nil {
			log.Printf("Session: disconnect from %s failed: %v", address, derr)
		}
		return errors.Wrap(err, "could not read home position")
	}

	s.address = address
	s.connected = true
	s.home = mission.Location{Lat: t.Location.Lat, Lon: t.Location.Lon}
	log.WithFields(log.Fields{"address": address, "lat": s.home.Lat, "lon": s.home.Lon}).Println("Session: connected")

	return nil
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// Home implements the assistant's home provider.
func (s *Session) Home() (mission.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.home, s.connected
}

// active returns the link when connected. Link calls run outside the
// session lock so telemetry stays readable during long operations.
func (s *Session) active() (Link, mission.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, mission.Location{}, ErrNotConnected
	}
	return s.link, s.home, nil
}

// FlyPlan takes off to the plan's altitude, uploads the plan resolved
// against home and starts it. The first uploaded item is home.
func (s *Session) FlyPlan(ctx context.Context, plan mission.MissionPlan) error {
	link, home, err := s.active()
	if err != nil {
		return err
	}
	if len(plan.Waypoints) == 0 {
		return ErrNoWaypoints
	}

	waypoints := make([]mission.AbsoluteWaypoint, 0, len(plan.Waypoints)+1)
	waypoints = append(waypoints, mission.AbsoluteWaypoint{Lat: home.Lat, Lon: home.Lon, Alt: plan.RecommendedAltitude})
	waypoints = append(waypoints, plan.Absolute(home)...)

	if err := link.ArmAndTakeoff(ctx, plan.RecommendedAltitude); err != nil {
		return errors.Wrap(err, "takeoff failed")
	}
	if err := link.UploadMission(ctx, waypoints); err != nil {
		return errors.Wrap(err, "mission upload failed")
	}
	if err := link.ExecuteMission(ctx); err != nil {
		return errors.Wrap(err, "mission start failed")
	}

	return nil
}

func (s *Session) Goto(ctx context.Context, lat, lon, alt float64) error {
	link, _, err := s.active()
	if err != nil {
		return err
	}
	return link.Goto(ctx, lat, lon, alt)
}

func (s *Session) Land(ctx context.Context) error {
	link, _, err := s.active()
	if err != nil {
		return err
	}
	return link.Land(ctx)
}

func (s *Session) ReturnToLaunch(ctx context.Context) error {
	link, _, err := s.active()
	if err != nil {
		return err
	}
	return link.ReturnToLaunch(ctx)
}

func (s *Session) Telemetry(ctx context.Context) (Telemetry, error) {
	link, _, err := s.active()
	if err != nil {
		return Telemetry{}, err
	}
	return link.Telemetry(ctx)
}

func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil
	}
	s.connected = false
	s.address = ""
	return s.link.Disconnect()
}
