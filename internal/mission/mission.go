package mission

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

type MissionType string

const (
	MissionTypeSurvey     MissionType = "survey"
	MissionTypeInspection MissionType = "inspection"
	MissionTypeDelivery   MissionType = "delivery"
	MissionTypeCustom     MissionType = "custom"
)

type FlightPattern string

const (
	FlightPatternGrid         FlightPattern = "grid"
	FlightPatternOrbit        FlightPattern = "orbit"
	FlightPatternPointToPoint FlightPattern = "point_to_point"
	FlightPatternSquare       FlightPattern = "square"
	FlightPatternRoute        FlightPattern = "route"
)

// ParseMissionType normalizes a free-form mission type tag. Unknown tags
// map to MissionTypeCustom.
func ParseMissionType(s string) MissionType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "survey":
		return MissionTypeSurvey
	case "inspection", "inspect":
		return MissionTypeInspection
	case "delivery", "deliver":
		return MissionTypeDelivery
	default:
		return MissionTypeCustom
	}
}

// Location is a point in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Waypoint offsets are decimal degrees relative to the plan reference.
// Delay is a hold time in seconds.
type Waypoint struct {
	LatOffset float64 `json:"lat_offset"`
	LonOffset float64 `json:"lon_offset"`
	Alt       float64 `json:"alt"`
	Delay     float64 `json:"delay,omitempty"`
}

// AbsoluteWaypoint is a waypoint resolved against a reference location.
type AbsoluteWaypoint struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Alt   float64 `json:"alt"`
	Delay float64 `json:"delay,omitempty"`
}

type MissionPlan struct {
	MissionType         MissionType   `json:"mission_type"`
	DurationMinutes     float64       `json:"duration_minutes"`
	FlightPattern       FlightPattern `json:"flight_pattern"`
	RecommendedAltitude float64       `json:"recommended_altitude"`
	Waypoints           []Waypoint    `json:"waypoints"`
	Description         string        `json:"description"`
	Reference           *Location     `json:"reference,omitempty"`
}

// Absolute resolves the waypoints against home. The plan's own reference
// wins when it is set.
func (p MissionPlan) Absolute(home Location) []AbsoluteWaypoint {
	ref := home
	if p.Reference != nil {
		ref = *p.Reference
	}

	result := make([]AbsoluteWaypoint, 0, len(p.Waypoints))
	for _, wp := range p.Waypoints {
		result = append(result, AbsoluteWaypoint{
			Lat:   ref.Lat + wp.LatOffset,
			Lon:   ref.Lon + wp.LonOffset,
			Alt:   wp.Alt,
			Delay: wp.Delay,
		})
	}

	return result
}

func (p MissionPlan) Marshal() ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal mission plan")
	}
	return b, nil
}

// String returns the JSON text form of the plan.
func (p MissionPlan) String() string {
	b, err := p.Marshal()
	if err != nil {
		return ""
	}
	return string(b)
}

func ParsePlan(data []byte) (MissionPlan, error) {
	var p MissionPlan
	if err := json.Unmarshal(data, &p); err != nil {
		return MissionPlan{}, errors.Wrap(err, "could not parse mission plan")
	}
	if p.Waypoints == nil {
		p.Waypoints = []Waypoint{}
	}
	return p, nil
}
