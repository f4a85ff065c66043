// Package viz draws planning scenes: zones, vehicle, target, the chosen
// waypoint and, for AVOID decisions, both tangent candidates. Scenes render
// to PNG with gonum/plot and to an interactive page with go-echarts.
package viz

import (
	"errors"
	"math"

	"github.com/Tahakcygt/HSS-ka/internal/geom"
	"github.com/Tahakcygt/HSS-ka/internal/planner"
	"github.com/Tahakcygt/HSS-ka/internal/zones"
)

// circleSegments is the number of chords used to draw a zone outline.
const circleSegments = 72

// Scene is one frame to draw. Trails are optional and used by the
// simulator to show the paths flown so far.
type Scene struct {
	Title      string
	Mode       planner.Mode
	Reason     string
	Zones      zones.Set
	Vehicle    geom.Point
	Target     geom.Point
	Predicted  geom.Point
	Waypoint   geom.Point
	Candidates []planner.Candidate

	VehicleTrail []geom.Point
	TargetTrail  []geom.Point
}

// FromPlan builds a scene from one planning cycle.
func FromPlan(in planner.Input, res planner.Result) Scene {
	return Scene{
		Title:      res.Mode.String(),
		Mode:       res.Mode,
		Reason:     res.Reason,
		Zones:      in.Zones,
		Vehicle:    in.Vehicle.Position,
		Target:     in.Target.Position,
		Predicted:  res.PredictedTarget,
		Waypoint:   res.Waypoint,
		Candidates: res.Candidates,
	}
}

// points returns every drawn point, zone extents included.
func (s Scene) points() []geom.Point {
	pts := []geom.Point{s.Vehicle, s.Target, s.Predicted, s.Waypoint}
	for _, c := range s.Candidates {
		pts = append(pts, c.Point)
	}
	for _, z := range s.Zones {
		pts = append(pts,
			geom.Pt(z.Center.X-z.Radius, z.Center.Y-z.Radius),
			geom.Pt(z.Center.X+z.Radius, z.Center.Y+z.Radius))
	}
	pts = append(pts, s.VehicleTrail...)
	pts = append(pts, s.TargetTrail...)
	return pts
}

// Bounds returns a square window around the scene with a 10% margin, so
// circles stay round in the rendered image.
func (s Scene) Bounds() (minX, maxX, minY, maxY float64, err error) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range s.points() {
		if !p.IsFinite() {
			return 0, 0, 0, 0, errors.New("viz: scene contains non-finite coordinates")
		}
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	half := math.Max(maxX-minX, maxY-minY) / 2
	if half == 0 {
		half = 10
	}
	half *= 1.1
	return cx - half, cx + half, cy - half, cy + half, nil
}

// outline returns the closed polyline approximating z.
func outline(z geom.Zone) []geom.Point {
	pts := make([]geom.Point, 0, circleSegments+1)
	for i := 0; i <= circleSegments; i++ {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts = append(pts, geom.Polar(z.Center, z.Radius, a))
	}
	return pts
}
