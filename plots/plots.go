// Package plots renders simulation traces against distance.
package plots

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	strategy "github.com/uw-midsun/fwxvi-strategy"
)

// Figure size of every rendered chart.
var (
	Width  = 9 * vg.Inch
	Height = 4 * vg.Inch
)

type chart struct {
	kind   string
	ylabel string
	y      func(strategy.Traces) []float64
}

var charts = []chart{
	{"speed", "Speed (m/s)", func(t strategy.Traces) []float64 { return t[strategy.TraceVelocity] }},
	{"battery", "Battery (Wh)", func(t strategy.Traces) []float64 { return strategy.WhSliceFromJoules(t[strategy.TraceBattery]) }},
	{"net-power", "Net Power (W)", func(t strategy.Traces) []float64 { return t[strategy.TracePNet] }},
}

// XY pairs each y sample with the distance of its timestep in km.
func XY(dist, y []float64) plotter.XYs {
	n := min(len(dist), len(y))
	xy := make(plotter.XYs, n)
	for i := range xy {
		xy[i].X = dist[i] / 1000
		xy[i].Y = y[i]
	}
	return xy
}

// Render draws speed, battery and net power against distance and saves one
// PNG per chart in dir. It returns the written paths.
func Render(dir string, rep strategy.Report) ([]string, error) {
	dist := rep.Sim.Traces[strategy.TraceDistance]
	if len(dist) == 0 {
		return nil, fmt.Errorf("plotting %s: %w", rep.Scenario.Name, strategy.ErrEmptyProfile)
	}
	var paths []string
	for _, c := range charts {
		p := plot.New()
		p.Title.Text = rep.Scenario.Name
		p.X.Label.Text = "Distance (km)"
		p.Y.Label.Text = c.ylabel
		p.Add(plotter.NewGrid())

		line, err := plotter.NewLine(XY(dist, c.y(rep.Sim.Traces)))
		if err != nil {
			return paths, fmt.Errorf("plotting %s %s: %w", rep.Scenario.Name, c.kind, err)
		}
		p.Add(line)

		path := filepath.Join(dir, fmt.Sprintf("%s-%s.png", c.kind, rep.Scenario.Name))
		if err := p.Save(Width, Height, path); err != nil {
			return paths, fmt.Errorf("saving %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
