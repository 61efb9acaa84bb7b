package bench

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Names of the charts written by Plot.
const (
	ExecutionTimesPlot = "execution_times.png"
	SpeedupPlot        = "speedup_analysis.png"
	EfficiencyPlot     = "efficiency_analysis.png"
	ScalabilityPlot    = "scalability_analysis.png"
)

const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 5 * vg.Inch
)

// Plot writes the charts of r into dir, creating it if needed, and returns
// the paths written: execution time against size (log scale), speedup and
// efficiency against size with their ideal lines and, when there are at
// least two process counts, speedup against process count for the largest
// size.
func (r *Report) Plot(dir string) ([]string, error) {
	if len(r.Points) == 0 {
		return nil, fmt.Errorf("bench: nothing to plot")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	charts := []struct {
		name string
		make func() (*plot.Plot, error)
	}{
		{ExecutionTimesPlot, r.executionTimes},
		{SpeedupPlot, r.speedup},
		{EfficiencyPlot, r.efficiency},
	}
	if len(r.procs()) >= 2 {
		charts = append(charts, struct {
			name string
			make func() (*plot.Plot, error)
		}{ScalabilityPlot, r.scalability})
	}

	var written []string
	for _, c := range charts {
		p, err := c.make()
		if err != nil {
			return written, fmt.Errorf("bench: %s: %w", c.name, err)
		}
		path := filepath.Join(dir, c.name)
		if err := p.Save(plotWidth, plotHeight, path); err != nil {
			return written, fmt.Errorf("bench: %s: %w", c.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// procs returns the process counts of r in increasing order.
func (r *Report) procs() []int {
	var procs []int
	for _, p := range r.Points {
		if !slices.Contains(procs, p.Procs) {
			procs = append(procs, p.Procs)
		}
	}
	slices.Sort(procs)
	return procs
}

// bySize returns, per process count, the points of that count as
// (size, value) pairs.
func (r *Report) bySize(value func(Point) float64) []any {
	var lines []any
	for _, n := range r.procs() {
		var xys plotter.XYs
		for _, p := range r.Points {
			if p.Procs == n {
				xys = append(xys, plotter.XY{X: float64(p.Size), Y: value(p)})
			}
		}
		lines = append(lines, fmt.Sprintf("%d processes", n), xys)
	}
	return lines
}

func newPlot(title, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = x
	p.Y.Label.Text = y
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	return p
}

// addIdeal draws a dashed reference line y = f(x).
func addIdeal(p *plot.Plot, label string, f func(float64) float64) {
	line := plotter.NewFunction(f)
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(line)
	p.Legend.Add(label, line)
}

func (r *Report) executionTimes() (*plot.Plot, error) {
	p := newPlot("Matrix multiplication time", "matrix size", "time (s)")
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}

	var serial plotter.XYs
	for _, pt := range r.Points {
		if pt.SerialTime <= 0 {
			continue // not drawable on a log scale
		}
		if len(serial) == 0 || serial[len(serial)-1].X != float64(pt.Size) {
			serial = append(serial, plotter.XY{X: float64(pt.Size), Y: pt.SerialTime})
		}
	}
	lines := append([]any{"serial", serial}, r.bySize(func(p Point) float64 { return p.Time })...)
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Report) speedup() (*plot.Plot, error) {
	p := newPlot("Speedup", "matrix size", "speedup")
	if err := plotutil.AddLinePoints(p, r.bySize(func(p Point) float64 { return p.Speedup })...); err != nil {
		return nil, err
	}
	procs := r.procs()
	top := float64(procs[len(procs)-1])
	addIdeal(p, fmt.Sprintf("ideal (%gx)", top), func(float64) float64 { return top })
	return p, nil
}

func (r *Report) efficiency() (*plot.Plot, error) {
	p := newPlot("Parallel efficiency", "matrix size", "efficiency")
	if err := plotutil.AddLinePoints(p, r.bySize(func(p Point) float64 { return p.Efficiency })...); err != nil {
		return nil, err
	}
	addIdeal(p, "ideal (100%)", func(float64) float64 { return 1 })
	p.Y.Min = 0
	p.Y.Max = max(1.2, p.Y.Max)
	return p, nil
}

func (r *Report) scalability() (*plot.Plot, error) {
	largest := r.Points[len(r.Points)-1].Size
	p := newPlot(fmt.Sprintf("Scalability, %dx%d matrices", largest, largest), "processes", "speedup")
	var xys plotter.XYs
	for _, pt := range r.Points {
		if pt.Size == largest {
			xys = append(xys, plotter.XY{X: float64(pt.Procs), Y: pt.Speedup})
		}
	}
	if err := plotutil.AddLinePoints(p, "speedup", xys); err != nil {
		return nil, err
	}
	addIdeal(p, "ideal", func(x float64) float64 { return x })
	return p, nil
}
