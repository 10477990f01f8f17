package vehicle

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/mission"
)

var (
	ErrNotConnected = errors.New("vehicle not connected")
	ErrNoWaypoints  = errors.New("mission has no waypoints")
)

// Link is one way of talking to a vehicle. Every call blocks until the
// vehicle acknowledged it or the context is done.
type Link interface {
	Connect(ctx context.Context, address string) error
	ArmAndTakeoff(ctx context.Context, altitude float64) error
	Goto(ctx context.Context, lat, lon, alt float64) error
	UploadMission(ctx context.Context, waypoints []mission.AbsoluteWaypoint) error
	ExecuteMission(ctx context.Context) error
	Telemetry(ctx context.Context) (Telemetry, error)
	Land(ctx context.Context) error
	ReturnToLaunch(ctx context.Context) error
	Disconnect() error
}

type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

type Battery struct {
	VoltageV  float64 `json:"voltage_v"`
	Remaining float64 `json:"remaining"`
}

type Telemetry struct {
	Location    Position `json:"location"`
	Battery     Battery  `json:"battery"`
	GroundSpeed float64  `json:"ground_speed"`
	Armed       bool     `json:"armed"`
	Mode        string   `json:"mode"`
}
