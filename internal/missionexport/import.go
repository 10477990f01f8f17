package missionexport

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/mission"
)

var ErrNoPoints = errors.New("no points found")

// ReadRoute reads a KML or GPX document, picked by its root element.
func ReadRoute(data []byte) ([]mission.AbsoluteWaypoint, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errors.Wrap(err, "could not parse route")
	}
	root := doc.Root()
	if root == nil {
		return nil, ErrNoPoints
	}
	switch root.Tag {
	case "kml":
		return ReadKML(data)
	case "gpx":
		return ReadGPX(data)
	default:
		return nil, errors.Errorf("unsupported route document <%s>", root.Tag)
	}
}

// ReadKML returns the points of the first LineString in a KML document.
func ReadKML(data []byte) ([]mission.AbsoluteWaypoint, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errors.Wrap(err, "could not parse kml")
	}
	root := doc.SelectElement("kml")
	if root == nil {
		return nil, errors.New("not a kml document")
	}
	src := root.FindElement("//Placemark/LineString/coordinates")
	if src == nil {
		return nil, ErrNoPoints
	}

	points := make([]mission.AbsoluteWaypoint, 0)
	for _, val := range strings.Fields(src.Text()) {
		coords := strings.Split(val, ",")
		if len(coords) < 2 {
			continue
		}
		lon, err := strconv.ParseFloat(coords[0], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad longitude %q", coords[0])
		}
		lat, err := strconv.ParseFloat(coords[1], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad latitude %q", coords[1])
		}
		wp := mission.AbsoluteWaypoint{Lat: lat, Lon: lon}
		if len(coords) > 2 {
			wp.Alt, _ = strconv.ParseFloat(coords[2], 64)
		}
		points = append(points, wp)
	}
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	return points, nil
}

// ReadGPX returns track, route or waypoint points, whichever kind the
// document has first.
func ReadGPX(data []byte) ([]mission.AbsoluteWaypoint, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errors.Wrap(err, "could not parse gpx")
	}
	root := doc.SelectElement("gpx")
	if root == nil {
		return nil, errors.New("not a gpx document")
	}

	for _, kind := range []string{"//trkpt", "//rtept", "//wpt"} {
		elems := root.FindElements(kind)
		if len(elems) == 0 {
			continue
		}
		points := make([]mission.AbsoluteWaypoint, 0, len(elems))
		for _, pt := range elems {
			lat, err := strconv.ParseFloat(pt.SelectAttrValue("lat", ""), 64)
			if err != nil {
				return nil, errors.Wrap(err, "bad latitude")
			}
			lon, err := strconv.ParseFloat(pt.SelectAttrValue("lon", ""), 64)
			if err != nil {
				return nil, errors.Wrap(err, "bad longitude")
			}
			wp := mission.AbsoluteWaypoint{Lat: lat, Lon: lon}
			if ele := pt.SelectElement("ele"); ele != nil {
				wp.Alt, _ = strconv.ParseFloat(strings.TrimSpace(ele.Text()), 64)
			}
			points = append(points, wp)
		}
		return points, nil
	}
	return nil, ErrNoPoints
}
