package vehicle

import (
	"context"
	"math"
	"sync"

	geo "github.com/kellydunn/golang-geo"
	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/mission"
	log "github.com/sirupsen/logrus"
)

// SITL default home at CMAC, Canberra.
var DefaultSimHome = mission.Location{Lat: -35.363261, Lon: 149.165230}

const (
	simFullVoltage  = 12.6
	simEmptyVoltage = 10.5
	simDrainPerKm   = 0.02
	simCruiseSpeed  = 5.0
)

// SimLink is an in-memory vehicle. Commands complete immediately.
type SimLink struct {
	mu        sync.Mutex
	home      mission.Location
	connected bool
	armed     bool
	mode      string
	position  Position
	remaining float64
	speed     float64
	mission   []mission.AbsoluteWaypoint
	// Visited records every position the vehicle flew to.
	visited []Position
}

func NewSimLink(home mission.Location) *SimLink {
	return &SimLink{home: home, remaining: 1, mode: "STABILIZE"}
}

func (s *SimLink) Connect(ctx context.Context, address string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	log.WithField("address", address).Debugln("SIM: connected")
	s.connected = true
	s.position = Position{Lat: s.home.Lat, Lon: s.home.Lon}
	return nil
}

func (s *SimLink) ArmAndTakeoff(ctx context.Context, altitude float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	if altitude <= 0 {
		return errors.Errorf("invalid takeoff altitude %g", altitude)
	}
	if s.remaining <= 0 {
		return errors.New("battery depleted")
	}
	s.armed = true
	s.mode = "GUIDED"
	s.position.Alt = altitude
	s.visited = append(s.visited, s.position)
	return nil
}

func (s *SimLink) Goto(ctx context.Context, lat, lon, alt float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	if !s.armed {
		return errors.New("vehicle not armed")
	}
	s.moveTo(Position{Lat: lat, Lon: lon, Alt: alt})
	return nil
}

func (s *SimLink) UploadMission(ctx context.Context, waypoints []mission.AbsoluteWaypoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	if len(waypoints) == 0 {
		return ErrNoWaypoints
	}
	s.mission = append([]mission.AbsoluteWaypoint(nil), waypoints...)
	return nil
}

// ExecuteMission flies the uploaded mission to its end.
func (s *SimLink) ExecuteMission(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	if len(s.mission) == 0 {
		return ErrNoWaypoints
	}
	if !s.armed {
		return errors.New("vehicle not armed")
	}

	s.mode = "AUTO"
	for _, wp := range s.mission {
		s.moveTo(Position{Lat: wp.Lat, Lon: wp.Lon, Alt: wp.Alt})
	}
	s.mode = "LOITER"
	s.speed = 0
	return nil
}

func (s *SimLink) Telemetry(ctx context.Context) (Telemetry, error) {
	if err := ctx.Err(); err != nil {
		return Telemetry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return Telemetry{}, ErrNotConnected
	}
	return Telemetry{
		Location: s.position,
		Battery: Battery{
			VoltageV:  simEmptyVoltage + (simFullVoltage-simEmptyVoltage)*s.remaining,
			Remaining: s.remaining,
		},
		GroundSpeed: s.speed,
		Armed:       s.armed,
		Mode:        s.mode,
	}, nil
}

func (s *SimLink) Land(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	s.mode = "LAND"
	s.position.Alt = 0
	s.armed = false
	s.speed = 0
	return nil
}

func (s *SimLink) ReturnToLaunch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	s.mode = "RTL"
	s.moveTo(Position{Lat: s.home.Lat, Lon: s.home.Lon, Alt: s.position.Alt})
	s.position.Alt = 0
	s.armed = false
	s.speed = 0
	return nil
}

func (s *SimLink) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

// Visited returns a copy of the positions flown so far.
func (s *SimLink) Visited() []Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Position(nil), s.visited...)
}

// must hold mu
func (s *SimLink) moveTo(p Position) {
	from := geo.NewPoint(s.position.Lat, s.position.Lon)
	km := from.GreatCircleDistance(geo.NewPoint(p.Lat, p.Lon))
	s.remaining = math.Max(0, s.remaining-km*simDrainPerKm)
	s.position = p
	s.speed = simCruiseSpeed
	s.visited = append(s.visited, p)
}
