package viz

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/Tahakcygt/HSS-ka/internal/geom"
)

// PNGSize is the edge length of rendered PNG scenes.
const PNGSize = 7 * vg.Inch

var (
	zoneColor      = color.RGBA{R: 220, G: 40, B: 40, A: 255}
	vehicleColor   = color.RGBA{R: 30, G: 110, B: 230, A: 255}
	targetColor    = color.RGBA{R: 40, G: 160, B: 60, A: 255}
	waypointColor  = color.RGBA{R: 240, G: 160, B: 0, A: 255}
	candidateColor = color.RGBA{R: 140, G: 140, B: 140, A: 255}
)

func xys(pts ...geom.Point) plotter.XYs {
	out := make(plotter.XYs, len(pts))
	for i, p := range pts {
		out[i] = plotter.XY{X: p.X, Y: p.Y}
	}
	return out
}

// Plot builds the gonum plot for s.
func Plot(s Scene) (*plot.Plot, error) {
	minX, maxX, minY, maxY, err := s.Bounds()
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = s.Title
	p.X.Label.Text = "East (m)"
	p.Y.Label.Text = "North (m)"
	p.X.Min, p.X.Max = minX, maxX
	p.Y.Min, p.Y.Max = minY, maxY
	p.Add(plotter.NewGrid())

	for i, z := range s.Zones {
		ring, err := plotter.NewLine(xys(outline(z)...))
		if err != nil {
			return nil, fmt.Errorf("zone %d outline: %w", i, err)
		}
		ring.Color = zoneColor
		ring.Width = vg.Points(1.5)
		p.Add(ring)
		if i == 0 {
			p.Legend.Add("zone", ring)
		}
	}

	if err := addTrail(p, "vehicle path", s.VehicleTrail, vehicleColor); err != nil {
		return nil, err
	}
	if err := addTrail(p, "target path", s.TargetTrail, targetColor); err != nil {
		return nil, err
	}

	// Dashed leg from the vehicle to the chosen waypoint.
	leg, err := plotter.NewLine(xys(s.Vehicle, s.Waypoint))
	if err != nil {
		return nil, err
	}
	leg.Color = waypointColor
	leg.Width = vg.Points(1)
	leg.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(leg)

	if len(s.Candidates) > 0 {
		pts := make([]geom.Point, len(s.Candidates))
		for i, c := range s.Candidates {
			pts[i] = c.Point
		}
		if err := addMarkers(p, "candidate", pts, candidateColor, draw.RingGlyph{}, 4); err != nil {
			return nil, err
		}
	}

	markers := []struct {
		name  string
		pt    geom.Point
		color color.Color
		shape draw.GlyphDrawer
	}{
		{"vehicle", s.Vehicle, vehicleColor, draw.TriangleGlyph{}},
		{"target", s.Target, targetColor, draw.CircleGlyph{}},
		{"predicted", s.Predicted, targetColor, draw.CrossGlyph{}},
		{"waypoint", s.Waypoint, waypointColor, draw.BoxGlyph{}},
	}
	for _, m := range markers {
		if err := addMarkers(p, m.name, []geom.Point{m.pt}, m.color, m.shape, 4); err != nil {
			return nil, err
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

func addTrail(p *plot.Plot, name string, pts []geom.Point, c color.Color) error {
	if len(pts) < 2 {
		return nil
	}
	line, err := plotter.NewLine(xys(pts...))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}

func addMarkers(p *plot.Plot, name string, pts []geom.Point, c color.Color, shape draw.GlyphDrawer, radius float64) error {
	sc, err := plotter.NewScatter(xys(pts...))
	if err != nil {
		return fmt.Errorf("%s marker: %w", name, err)
	}
	sc.GlyphStyle.Color = c
	sc.GlyphStyle.Shape = shape
	sc.GlyphStyle.Radius = vg.Points(radius)
	p.Add(sc)
	p.Legend.Add(name, sc)
	return nil
}

// RenderPNG writes s to w as a square PNG image.
func RenderPNG(w io.Writer, s Scene) error {
	p, err := Plot(s)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(PNGSize, PNGSize, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

// SavePNG writes s to path. The format follows the file extension, as
// with plot.Save.
func SavePNG(path string, s Scene) error {
	p, err := Plot(s)
	if err != nil {
		return err
	}
	return p.Save(PNGSize, PNGSize, path)
}
