package flight

import (
	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/mission"
	"github.com/rincatpp/deepdrone/internal/types"
)

var ErrMissionActive = errors.New("a mission is already in progress")

type taskState int

const (
	taskCreated taskState = iota
	taskStarted
	taskFailed
	taskCompleted
)

type task struct {
	ID          string
	MissionType mission.MissionType
	State       taskState
}

type armState int

const (
	armInitializing armState = iota
	armStandby
	armArmed
)

type flightState int

const (
	flightGround flightState = iota
	flightAirborne
	flightLanding
)

type state struct {
	armState    armState
	flightState flightState
	tasks       []*task
}

func newState() *state {
	return &state{armInitializing, flightGround, make([]*task, 0)}
}

func (s *state) handleTelemetry(msg types.TelemetryUpdate) {
	if msg.Armed {
		s.armState = armArmed
		if s.flightState == flightGround {
			s.flightState = flightAirborne
		}
		return
	}
	s.armState = armStandby
	s.flightState = flightGround
}

// begin registers a new task unless the vehicle is already flying one.
func (s *state) begin(id string, missionType mission.MissionType) (*task, error) {
	if s.getActiveTask() != nil || s.flightState != flightGround {
		return nil, ErrMissionActive
	}
	t := &task{id, missionType, taskCreated}
	s.tasks = append(s.tasks[:0], t)
	return t, nil
}

func (s *state) started(t *task) {
	t.State = taskStarted
	s.flightState = flightAirborne
	s.armState = armArmed
}

// finished closes the task. A flown mission leaves the vehicle in the air
// until it is landed or returned.
func (s *state) finished(t *task, err error) {
	if err != nil {
		t.State = taskFailed
		s.flightState = flightGround
		return
	}
	t.State = taskCompleted
}

func (s *state) landing() {
	if s.flightState == flightAirborne {
		s.flightState = flightLanding
	}
}

func (s *state) reset() {
	s.armState = armInitializing
	s.flightState = flightGround
	for _, t := range s.tasks {
		if t.State == taskCreated || t.State == taskStarted {
			t.State = taskFailed
		}
	}
}

func (s *state) getActiveTask() *task {
	for _, t := range s.tasks {
		if t.State == taskCompleted || t.State == taskFailed {
			continue
		}
		return t
	}

	return nil
}
