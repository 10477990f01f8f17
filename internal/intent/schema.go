package intent

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/mission"
	"github.com/rincatpp/deepdrone/internal/missionplanner"
)

var ErrNoIntent = errors.New("no intent found")

// Schema is the only shape of model output that is acted upon.
type schema struct {
	MissionType     *string           `json:"mission_type"`
	DurationMinutes *float64          `json:"duration_minutes"`
	Execute         bool              `json:"execute"`
	Destination     *mission.Location `json:"destination"`
}

// SchemaDescription is given to models so that they answer in the shape
// ParseIntent accepts.
const SchemaDescription = `{"mission_type": "survey|inspection|delivery|custom", "duration_minutes": <positive number>, "execute": <true|false>, "destination": {"lat": <number>, "lon": <number>} (optional)}`

// ParseIntent extracts the first JSON object from text and decodes it into
// the intent schema. Unknown fields are rejected.
func ParseIntent(text string) (Intent, error) {
	body := stripFence(text)
	start := strings.Index(body, "{")
	if start < 0 {
		return Intent{}, ErrNoIntent
	}

	var s schema
	dec := json.NewDecoder(strings.NewReader(body[start:]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Intent{}, errors.Wrap(err, "could not decode intent")
	}

	if s.MissionType == nil {
		return Intent{}, errors.WithMessage(ErrNoIntent, "mission_type missing")
	}

	result := Intent{
		MissionType:     mission.ParseMissionType(*s.MissionType),
		DurationMinutes: missionplanner.DefaultDurationMinutes,
		Execute:         s.Execute,
		Destination:     s.Destination,
		Matched:         true,
	}

	if s.DurationMinutes != nil {
		d := *s.DurationMinutes
		if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
			return Intent{}, errors.Wrapf(missionplanner.ErrInvalidDuration, "duration_minutes=%v", d)
		}
		result.DurationMinutes = d
	}

	if d := result.Destination; d != nil && (d.Lat < -90 || d.Lat > 90 || d.Lon < -180 || d.Lon > 180) {
		return Intent{}, errors.Errorf("destination out of range: %v, %v", d.Lat, d.Lon)
	}

	return result, nil
}

func stripFence(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return text
	}
	rest := text[start+3:]
	// language tag line
	if nl := strings.Index(rest, "\n"); nl >= 0 && !strings.Contains(rest[:nl], "{") {
		rest = rest[nl+1:]
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

// Render formats an intent in the schema ParseIntent accepts.
func Render(in Intent) string {
	s := schema{
		MissionType:     (*string)(&in.MissionType),
		DurationMinutes: &in.DurationMinutes,
		Execute:         in.Execute,
		Destination:     in.Destination,
	}
	b, _ := json.Marshal(s)
	return string(b)
}
