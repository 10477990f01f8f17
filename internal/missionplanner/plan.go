package missionplanner

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/mission"
)

const DefaultDurationMinutes = 15

// ErrInvalidDuration is returned for durations that are not a positive
// finite number of minutes.
var ErrInvalidDuration = errors.New("invalid duration")

const (
	// about 11 m at the equator
	baseSpacing = 0.0001

	minutesPerStep = 5
	maxScale       = 24
	maxOrbitPoints = 36

	deliveryHoldSeconds = 10
)

type profile struct {
	pattern  mission.FlightPattern
	altitude float64
}

var profiles = map[mission.MissionType]profile{
	mission.MissionTypeSurvey:     {mission.FlightPatternGrid, 20},
	mission.MissionTypeInspection: {mission.FlightPatternOrbit, 12},
	mission.MissionTypeDelivery:   {mission.FlightPatternPointToPoint, 30},
	mission.MissionTypeCustom:     {mission.FlightPatternSquare, 15},
}

type Request struct {
	MissionType     mission.MissionType
	DurationMinutes float64
	// Reference is the home position the waypoint offsets are relative to.
	Reference *mission.Location
	// Destination is only used by delivery missions and only together
	// with Reference.
	Destination *mission.Location
}

// GenerateMissionPlan is the string-typed entry point used by the chat
// surface and the CLI.
func GenerateMissionPlan(missionType string, durationMinutes float64) (mission.MissionPlan, error) {
	return Plan(Request{
		MissionType:     mission.ParseMissionType(missionType),
		DurationMinutes: durationMinutes,
	})
}

// Plan expands a mission request into a mission plan. It has no side
// effects and identical requests always produce identical plans.
func Plan(req Request) (mission.MissionPlan, error) {
	d := req.DurationMinutes
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return mission.MissionPlan{}, errors.Wrapf(ErrInvalidDuration, "duration_minutes=%v", d)
	}

	missionType := mission.ParseMissionType(string(req.MissionType))
	prof := profiles[missionType]
	scale := scaleFor(d)

	var reference *mission.Location
	if req.Reference != nil {
		ref := normalizeLocation(*req.Reference)
		reference = &ref
	}

	var waypoints []mission.Waypoint
	switch missionType {
	case mission.MissionTypeSurvey:
		waypoints = gridWaypoints(scale, prof.altitude)
	case mission.MissionTypeInspection:
		waypoints = orbitWaypoints(scale, prof.altitude)
	case mission.MissionTypeDelivery:
		dLat, dLon := deliveryOffset(scale, reference, req.Destination)
		waypoints = pointToPointWaypoints(dLat, dLon, prof.altitude)
	default:
		waypoints = squareWaypoints(scale, prof.altitude)
	}

	plan := mission.MissionPlan{
		MissionType:         missionType,
		DurationMinutes:     d,
		FlightPattern:       prof.pattern,
		RecommendedAltitude: prof.altitude,
		Waypoints:           waypoints,
		Reference:           reference,
	}
	plan.Description = describe(plan)

	return plan, nil
}

func scaleFor(durationMinutes float64) int {
	scale := int(math.Ceil(durationMinutes / minutesPerStep))
	if scale < 1 {
		return 1
	}
	if scale > maxScale {
		return maxScale
	}
	return scale
}

// Boustrophedon passes north/south, stepping east, closed back at the origin.
func gridWaypoints(scale int, alt float64) []mission.Waypoint {
	passes := 2 + scale
	legLength := float64(2*scale) * baseSpacing

	result := make([]mission.Waypoint, 0, 2*passes+1)
	for i := 0; i < passes; i++ {
		lon := float64(i) * baseSpacing
		if i%2 == 0 {
			result = append(result,
				mission.Waypoint{LatOffset: 0, LonOffset: lon, Alt: alt},
				mission.Waypoint{LatOffset: legLength, LonOffset: lon, Alt: alt})
		} else {
			result = append(result,
				mission.Waypoint{LatOffset: legLength, LonOffset: lon, Alt: alt},
				mission.Waypoint{LatOffset: 0, LonOffset: lon, Alt: alt})
		}
	}

	return append(result, mission.Waypoint{LatOffset: 0, LonOffset: 0, Alt: alt})
}

// Clockwise circle around the reference starting due north. The first
// point is repeated to close the orbit.
func orbitWaypoints(scale int, alt float64) []mission.Waypoint {
	points := 8 + 4*(scale-1)
	if points > maxOrbitPoints {
		points = maxOrbitPoints
	}
	radius := float64(1+scale) * baseSpacing

	result := make([]mission.Waypoint, 0, points+1)
	for k := 0; k < points; k++ {
		angle := 2 * math.Pi * float64(k) / float64(points)
		result = append(result, mission.Waypoint{
			LatOffset: radius * math.Cos(angle),
			LonOffset: radius * math.Sin(angle),
			Alt:       alt,
		})
	}

	return append(result, result[0])
}

func deliveryOffset(scale int, reference *mission.Location, destination *mission.Location) (float64, float64) {
	if reference != nil && destination != nil {
		return offsetTo(*reference, normalizeLocation(*destination))
	}

	d := float64(4*scale) * baseSpacing
	return d, d
}

func pointToPointWaypoints(dLat, dLon, alt float64) []mission.Waypoint {
	return []mission.Waypoint{
		{LatOffset: 0, LonOffset: 0, Alt: alt},
		{LatOffset: dLat, LonOffset: dLon, Alt: alt, Delay: deliveryHoldSeconds},
		{LatOffset: 0, LonOffset: 0, Alt: alt},
	}
}

func squareWaypoints(scale int, alt float64) []mission.Waypoint {
	side := float64(2*scale) * baseSpacing
	return []mission.Waypoint{
		{LatOffset: side, LonOffset: 0, Alt: alt},
		{LatOffset: side, LonOffset: side, Alt: alt},
		{LatOffset: 0, LonOffset: side, Alt: alt},
		{LatOffset: 0, LonOffset: 0, Alt: alt},
	}
}

func describe(plan mission.MissionPlan) string {
	ref := mission.Location{}
	if plan.Reference != nil {
		ref = *plan.Reference
	}
	length := pathLength(ref, plan.Waypoints)

	return fmt.Sprintf(
		"%s mission: %s pattern at %gm over %d waypoints, about %.0f m of flight path, planned for %g minutes.",
		plan.MissionType, plan.FlightPattern, plan.RecommendedAltitude,
		len(plan.Waypoints), length, plan.DurationMinutes)
}
