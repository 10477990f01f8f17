package missionplanner

import (
	"testing"

	"github.com/rincatpp/deepdrone/internal/types"
)

func TestHandlerRepliesWithPlan(t *testing.T) {
	mp := &missionPlanner{me: "drone-1"}
	req := types.CreateMessage(types.MessageTypePlanRequest, "operator", "drone-1",
		types.PlanRequest{MissionType: "survey", DurationMinutes: 20})

	out := mp.handleMessage(req)
	if len(out) != 1 {
		t.Fatalf("got %d messages, want 1", len(out))
	}
	if out[0].MessageType != types.MessageTypePlanGenerated || out[0].To != "operator" {
		t.Fatalf("unexpected reply: %+v", out[0])
	}
	if got := out[0].Message.(types.PlanGenerated).Plan.FlightPattern; got != "grid" {
		t.Fatalf("pattern = %q, want grid", got)
	}
}

func TestHandlerRejectsInvalidDuration(t *testing.T) {
	mp := &missionPlanner{me: "drone-1"}
	req := types.CreateMessage(types.MessageTypePlanRequest, "operator", "drone-1",
		types.PlanRequest{MissionType: "survey", DurationMinutes: -3})

	out := mp.handleMessage(req)
	if len(out) != 1 || out[0].MessageType != types.MessageTypePlanRejected {
		t.Fatalf("unexpected reply: %+v", out)
	}
}

func TestHandlerIgnoresOtherMessages(t *testing.T) {
	mp := &missionPlanner{me: "drone-1", inbox: make(chan types.Message, 1)}
	mp.Receive(types.CreateMessage(types.MessageTypeLand, "operator", "drone-1", types.Land{}))
	if len(mp.inbox) != 0 {
		t.Fatal("land message queued to planner")
	}
}
