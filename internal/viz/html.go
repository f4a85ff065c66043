package viz

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Tahakcygt/HSS-ka/internal/geom"
)

// AssetsHost is where the rendered page loads echarts from. Override it
// to serve the script from a local mirror.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

func scatterData(pts ...geom.Point) []opts.ScatterData {
	data := make([]opts.ScatterData, len(pts))
	for i, p := range pts {
		data[i] = opts.ScatterData{Value: []interface{}{p.X, p.Y}}
	}
	return data
}

// Chart builds the echarts scatter chart for s.
func Chart(s Scene) (*charts.Scatter, error) {
	minX, maxX, minY, maxY, err := s.Bounds()
	if err != nil {
		return nil, err
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "HSS planner scene", Theme: "dark", Width: "900px", Height: "900px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: s.Title, Subtitle: s.Reason}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Min: minX, Max: maxX, Name: "East (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: minY, Max: maxY, Name: "North (m)", NameLocation: "middle", NameGap: 30}),
	)

	series := func(name string, pts []geom.Point, size int, color string) {
		if len(pts) == 0 {
			return
		}
		scatter.AddSeries(name, scatterData(pts...),
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: size}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
		)
	}

	var rings []geom.Point
	for _, z := range s.Zones {
		rings = append(rings, outline(z)...)
	}
	series("zones", rings, 3, "#dc2828")
	series("vehicle path", s.VehicleTrail, 4, "#1e6ee6")
	series("target path", s.TargetTrail, 4, "#28a03c")

	var cands []geom.Point
	for _, c := range s.Candidates {
		cands = append(cands, c.Point)
	}
	series("candidates", cands, 10, "#8c8c8c")
	series("vehicle", []geom.Point{s.Vehicle}, 16, "#1e6ee6")
	series("target", []geom.Point{s.Target}, 14, "#28a03c")
	series("predicted", []geom.Point{s.Predicted}, 10, "#7fd68e")
	series("waypoint", []geom.Point{s.Waypoint}, 16, "#f0a000")
	return scatter, nil
}

// RenderHTML writes s to w as a standalone echarts page.
func RenderHTML(w io.Writer, s Scene) error {
	chart, err := Chart(s)
	if err != nil {
		return err
	}
	if err := chart.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
