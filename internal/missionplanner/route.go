package missionplanner

import (
	"math"

	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/mission"
)

var ErrEmptyRoute = errors.New("route has no points")

// FromRoute turns absolute route points into a custom mission whose
// reference is the first point. Points without an altitude fly at the
// custom mission altitude.
func FromRoute(points []mission.AbsoluteWaypoint, durationMinutes float64) (mission.MissionPlan, error) {
	d := durationMinutes
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return mission.MissionPlan{}, errors.Wrapf(ErrInvalidDuration, "duration_minutes=%v", d)
	}
	if len(points) == 0 {
		return mission.MissionPlan{}, ErrEmptyRoute
	}

	defaultAlt := profiles[mission.MissionTypeCustom].altitude
	ref := normalizeLocation(mission.Location{Lat: points[0].Lat, Lon: points[0].Lon})

	waypoints := make([]mission.Waypoint, 0, len(points))
	maxAlt := 0.0
	for _, p := range points {
		alt := p.Alt
		if alt <= 0 {
			alt = defaultAlt
		}
		maxAlt = math.Max(maxAlt, alt)
		dLat, dLon := offsetTo(ref, normalizeLocation(mission.Location{Lat: p.Lat, Lon: p.Lon}))
		waypoints = append(waypoints, mission.Waypoint{LatOffset: dLat, LonOffset: dLon, Alt: alt, Delay: p.Delay})
	}

	plan := mission.MissionPlan{
		MissionType:         mission.MissionTypeCustom,
		DurationMinutes:     d,
		FlightPattern:       mission.FlightPatternRoute,
		RecommendedAltitude: maxAlt,
		Waypoints:           waypoints,
		Reference:           &ref,
	}
	plan.Description = describe(plan)

	return plan, nil
}
