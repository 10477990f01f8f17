package missionplanner

import (
	"math"

	geo "github.com/kellydunn/golang-geo"
	"github.com/rincatpp/deepdrone/internal/mission"
)

// Difference between two geo coordinates as latitude and longitude offsets
func offsetTo(from mission.Location, to mission.Location) (float64, float64) {
	dLon := to.Lon - from.Lon
	switch {
	case dLon > 180:
		dLon -= 360
	case dLon < -180:
		dLon += 360
	}
	return to.Lat - from.Lat, dLon
}

// Length in metres of the path from the reference through all waypoints
func pathLength(ref mission.Location, waypoints []mission.Waypoint) float64 {
	total := 0.0
	prev := geo.NewPoint(ref.Lat, ref.Lon)
	for _, wp := range waypoints {
		next := geo.NewPoint(ref.Lat+wp.LatOffset, ref.Lon+wp.LonOffset)
		total += prev.GreatCircleDistance(next) * 1000
		prev = next
	}

	return total
}

// Latitude is clamped to the poles, longitude wrapped into [-180, 180).
func normalizeLocation(loc mission.Location) mission.Location {
	lat := math.Max(-90, math.Min(90, loc.Lat))
	lon := loc.Lon
	if lon < -180 || lon >= 180 {
		lon = math.Mod(lon+180, 360)
		if lon < 0 {
			lon += 360
		}
		lon -= 180
	}
	return mission.Location{Lat: lat, Lon: lon}
}
