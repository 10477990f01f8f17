package missionexport

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
	"github.com/rincatpp/deepdrone/internal/mission"
)

const (
	FormatJSON = "json"
	FormatKML  = "kml"
	FormatGPX  = "gpx"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Write renders the plan in the given format. Waypoints are resolved
// against home unless the plan carries its own reference.
func Write(w io.Writer, plan mission.MissionPlan, home mission.Location, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		b, err := plan.Marshal()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case FormatKML:
		return writeDoc(w, KML(plan, home))
	case FormatGPX:
		return writeDoc(w, GPX(plan, home))
	default:
		return errors.Wrap(ErrUnknownFormat, format)
	}
}

func writeDoc(w io.Writer, doc *etree.Document) error {
	doc.Indent(2)
	_, err := doc.WriteTo(w)
	return err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func name(plan mission.MissionPlan) string {
	return fmt.Sprintf("DeepDrone %s mission", plan.MissionType)
}

// KML renders the plan as one Placemark holding a LineString.
func KML(plan mission.MissionPlan, home mission.Location) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	kml := doc.CreateElement("kml")
	kml.CreateAttr("xmlns", "http://www.opengis.net/kml/2.2")
	d := kml.CreateElement("Document")
	d.CreateElement("name").SetText(name(plan))

	pm := d.CreateElement("Placemark")
	pm.CreateElement("name").SetText(string(plan.FlightPattern))
	pm.CreateElement("description").SetText(plan.Description)
	ls := pm.CreateElement("LineString")
	ls.CreateElement("altitudeMode").SetText("relativeToGround")

	coords := make([]string, 0, len(plan.Waypoints))
	for _, wp := range plan.Absolute(home) {
		coords = append(coords, fmt.Sprintf("%s,%s,%s", formatFloat(wp.Lon), formatFloat(wp.Lat), formatFloat(wp.Alt)))
	}
	ls.CreateElement("coordinates").SetText(strings.Join(coords, " "))

	return doc
}

// GPX renders the plan as a route.
func GPX(plan mission.MissionPlan, home mission.Location) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	gpx := doc.CreateElement("gpx")
	gpx.CreateAttr("version", "1.1")
	gpx.CreateAttr("creator", "deepdrone")
	gpx.CreateAttr("xmlns", "http://www.topografix.com/GPX/1/1")

	rte := gpx.CreateElement("rte")
	rte.CreateElement("name").SetText(name(plan))
	rte.CreateElement("desc").SetText(plan.Description)
	for i, wp := range plan.Absolute(home) {
		pt := rte.CreateElement("rtept")
		pt.CreateAttr("lat", formatFloat(wp.Lat))
		pt.CreateAttr("lon", formatFloat(wp.Lon))
		pt.CreateElement("ele").SetText(formatFloat(wp.Alt))
		pt.CreateElement("name").SetText(fmt.Sprintf("WP%d", i+1))
	}

	return doc
}
