package main

import (
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"math"
	"os"

	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/intent"
	"github.com/rincatpp/deepdrone/internal/mission"
	"github.com/rincatpp/deepdrone/internal/missionexport"
	"github.com/rincatpp/deepdrone/internal/missionplanner"
	"github.com/rincatpp/deepdrone/internal/vehicle"
)

// runPlan prints one plan and returns the exit code.
func runPlan(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	missionType := fs.String("type", "", "Mission type: survey, inspection, delivery or custom")
	duration := fs.Float64("duration", missionplanner.DefaultDurationMinutes, "Mission duration in minutes")
	text := fs.String("text", "", "Free text request, classified by keywords")
	lat := fs.Float64("lat", math.NaN(), "Reference latitude")
	lon := fs.Float64("lon", math.NaN(), "Reference longitude")
	destLat := fs.Float64("dest_lat", math.NaN(), "Delivery destination latitude")
	destLon := fs.Float64("dest_lon", math.NaN(), "Delivery destination longitude")
	format := fs.String("format", missionexport.FormatJSON, "Output format: json, kml or gpx")
	route := fs.String("route", "", "KML or GPX file to fly as a custom route instead of a generated pattern")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	req := missionplanner.Request{
		MissionType:     mission.ParseMissionType(*missionType),
		DurationMinutes: *duration,
	}
	if *text != "" {
		in := intent.Classify(*text)
		req.MissionType, req.DurationMinutes, req.Destination = in.MissionType, in.DurationMinutes, in.Destination
	}

	home := vehicle.DefaultSimHome
	if !math.IsNaN(*lat) && !math.IsNaN(*lon) {
		home = mission.Location{Lat: *lat, Lon: *lon}
		req.Reference = &home
	}
	if !math.IsNaN(*destLat) && !math.IsNaN(*destLon) {
		req.Destination = &mission.Location{Lat: *destLat, Lon: *destLon}
	}
	// a destination is only reachable from a known reference
	if req.Destination != nil && req.Reference == nil {
		req.Reference = &home
	}

	var plan mission.MissionPlan
	var err error
	if *route != "" {
		plan, err = routePlan(*route, *duration)
		if plan.Reference != nil {
			home = *plan.Reference
		}
	} else {
		plan, err = missionplanner.Plan(req)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := missionexport.Write(out, plan, home, *format); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func routePlan(path string, duration float64) (mission.MissionPlan, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return mission.MissionPlan{}, errors.Wrap(err, "could not read route")
	}
	points, err := missionexport.ReadRoute(data)
	if err != nil {
		return mission.MissionPlan{}, errors.Wrap(err, path)
	}
	return missionplanner.FromRoute(points, duration)
}
