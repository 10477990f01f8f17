package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rincatpp/deepdrone/internal/mission"
	"github.com/rincatpp/deepdrone/internal/missionplanner"
)

// Intent is what the operator asked for, in the planner's terms.
type Intent struct {
	MissionType     mission.MissionType `json:"mission_type"`
	DurationMinutes float64             `json:"duration_minutes"`
	Destination     *mission.Location   `json:"destination,omitempty"`
	Execute         bool                `json:"execute"`
	// Matched is false when the text did not look like a mission request.
	Matched bool `json:"-"`
}

type keywordRule struct {
	missionType mission.MissionType
	pattern     *regexp.Regexp
}

// First match wins.
var keywordRules = []keywordRule{
	{mission.MissionTypeSurvey, regexp.MustCompile(`(?i)\b(survey\w*|map|mapping|scan\w*)\b`)},
	{mission.MissionTypeInspection, regexp.MustCompile(`(?i)\binspect\w*`)},
	{mission.MissionTypeDelivery, regexp.MustCompile(`(?i)\bdeliver\w*`)},
}

var (
	durationPattern   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*-?\s*(minutes?|mins?|hours?|hrs?)\b`)
	coordinatePattern = regexp.MustCompile(`(?:^|[^\d.])(-?\d{1,2}\.\d+)\s*,\s*(-?\d{1,3}\.\d+)\b`)
	executePattern    = regexp.MustCompile(`(?i)\b(execute|fly|run|launch|start)\b`)
	planningPattern   = regexp.MustCompile(`(?i)\b(plan|mission|flight|pattern|waypoints?|square|route)\b`)
)

// Classify maps free text to an intent with keyword matching. It never
// fails: text without a recognised keyword is a custom mission and text
// without a duration gets the default duration.
func Classify(text string) Intent {
	result := Intent{
		MissionType:     mission.MissionTypeCustom,
		DurationMinutes: missionplanner.DefaultDurationMinutes,
	}

	for _, rule := range keywordRules {
		if rule.pattern.MatchString(text) {
			result.MissionType = rule.missionType
			result.Matched = true
			break
		}
	}

	if m := durationPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
			if strings.HasPrefix(strings.ToLower(m[2]), "h") {
				v *= 60
			}
			result.DurationMinutes = v
		}
	}

	if m := coordinatePattern.FindStringSubmatch(text); m != nil {
		lat, errLat := strconv.ParseFloat(m[1], 64)
		lon, errLon := strconv.ParseFloat(m[2], 64)
		if errLat == nil && errLon == nil && lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 {
			result.Destination = &mission.Location{Lat: lat, Lon: lon}
		}
	}

	result.Execute = executePattern.MatchString(text)
	if planningPattern.MatchString(text) {
		result.Matched = true
	}

	return result
}
