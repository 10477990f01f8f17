package intent

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/mission"
	"github.com/rincatpp/deepdrone/internal/missionplanner"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		text     string
		mt       mission.MissionType
		duration float64
		execute  bool
		dest     bool
	}{
		{"Create a mission plan for a survey mission that takes 20 minutes and execute it on the simulator.", mission.MissionTypeSurvey, 20, true, false},
		{"I need to inspect a building. Can you make a plan for a 15-minute inspection mission and fly it?", mission.MissionTypeInspection, 15, true, false},
		{"Plan a delivery mission to these coordinates and execute it: 37.7749, -122.4194. It should take about 10 minutes.", mission.MissionTypeDelivery, 10, true, true},
		{"Plan and execute a simple square pattern flight around my current position.", mission.MissionTypeCustom, 15, true, false},
		{"Map the orchard for 1.5 hours", mission.MissionTypeSurvey, 90, false, false},
		{"what is the battery level", mission.MissionTypeCustom, 15, false, false},
		{"scanning run, 0 minutes", mission.MissionTypeSurvey, 15, true, false},
	}

	for _, c := range cases {
		got := Classify(c.text)
		if got.MissionType != c.mt {
			t.Errorf("%q: type = %q, want %q", c.text, got.MissionType, c.mt)
		}
		if got.DurationMinutes != c.duration {
			t.Errorf("%q: duration = %g, want %g", c.text, got.DurationMinutes, c.duration)
		}
		if got.Execute != c.execute {
			t.Errorf("%q: execute = %v, want %v", c.text, got.Execute, c.execute)
		}
		if (got.Destination != nil) != c.dest {
			t.Errorf("%q: destination = %v", c.text, got.Destination)
		}
	}
}

func TestClassifyDestination(t *testing.T) {
	got := Classify("deliver to 37.7749, -122.4194")
	if got.Destination == nil || got.Destination.Lat != 37.7749 || got.Destination.Lon != -122.4194 {
		t.Fatalf("destination = %+v", got.Destination)
	}
}

func TestClassifyIgnoresTruncatedCoordinates(t *testing.T) {
	for _, text := range []string{
		"deliver the package to lon/lat 139.75, 35.5",
		"deliver to 12.5, 1234.5",
		"deliver to 1.2.5, 30.1",
	} {
		if got := Classify(text); got.Destination != nil {
			t.Errorf("%q: destination = %+v, want none", text, got.Destination)
		}
	}

	got := Classify("deliver to (-33.8688, 151.2093) today")
	if got.Destination == nil || got.Destination.Lat != -33.8688 || got.Destination.Lon != 151.2093 {
		t.Fatalf("destination = %+v", got.Destination)
	}
}

func TestParseIntent(t *testing.T) {
	text := "Thought: the operator wants a survey.\n```json\n{\"mission_type\": \"Survey\", \"duration_minutes\": 25, \"execute\": true}\n```"
	got, err := ParseIntent(text)
	if err != nil {
		t.Fatal(err)
	}
	if got.MissionType != mission.MissionTypeSurvey || got.DurationMinutes != 25 || !got.Execute {
		t.Fatalf("intent = %+v", got)
	}
}

func TestParseIntentDefaults(t *testing.T) {
	got, err := ParseIntent(`sure: {"mission_type": "orbit-ish"} done`)
	if err != nil {
		t.Fatal(err)
	}
	if got.MissionType != mission.MissionTypeCustom {
		t.Fatalf("type = %q, want custom", got.MissionType)
	}
	if got.DurationMinutes != missionplanner.DefaultDurationMinutes {
		t.Fatalf("duration = %g, want default", got.DurationMinutes)
	}
}

func TestParseIntentRejects(t *testing.T) {
	cases := map[string]string{
		"no json":          "I will now run generate_mission_plan(mission_type='survey')",
		"code field":       `{"mission_type": "survey", "code": "import os"}`,
		"zero duration":    `{"mission_type": "survey", "duration_minutes": 0}`,
		"negative":         `{"mission_type": "survey", "duration_minutes": -5}`,
		"missing type":     `{"duration_minutes": 5}`,
		"bad destination":  `{"mission_type": "delivery", "destination": {"lat": 100, "lon": 0}}`,
		"nested unknown":   `{"mission_type": "delivery", "destination": {"lat": 1, "lon": 2, "alt": 3}}`,
		"string duration":  `{"mission_type": "survey", "duration_minutes": "ten"}`,
	}
	for name, text := range cases {
		if _, err := ParseIntent(text); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	_, err := ParseIntent(`{"mission_type": "survey", "duration_minutes": -1}`)
	if errors.Cause(err) != missionplanner.ErrInvalidDuration {
		t.Fatalf("error = %v, want ErrInvalidDuration", err)
	}
}

func TestRenderParses(t *testing.T) {
	in := Intent{
		MissionType:     mission.MissionTypeDelivery,
		DurationMinutes: 12,
		Execute:         true,
		Destination:     &mission.Location{Lat: 1.5, Lon: -2.5},
	}
	got, err := ParseIntent(Render(in))
	if err != nil {
		t.Fatal(err)
	}
	if got.MissionType != in.MissionType || got.DurationMinutes != 12 || !got.Execute || *got.Destination != *in.Destination {
		t.Fatalf("got %+v, want %+v", got, in)
	}
}

func TestClassifyMatched(t *testing.T) {
	if Classify("what is the battery level").Matched {
		t.Fatal("small talk matched as a mission")
	}
	if !Classify("fly a square pattern").Matched {
		t.Fatal("square pattern not matched")
	}
}
