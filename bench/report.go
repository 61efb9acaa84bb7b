package bench

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"
)

// ErrNoProcessCount is returned by Analyze for distributed results that do
// not record how many processes produced them.
var ErrNoProcessCount = errors.New("bench: results have no process count")

// Point compares the distributed time of one size and process count with
// the serial time of the same size.
type Point struct {
	Size       int
	Procs      int
	SerialTime float64
	Time       float64
	Speedup    float64 // SerialTime / Time
	Efficiency float64 // Speedup / Procs
}

// Report holds the points of Analyze ordered by size, then process count.
type Report struct {
	Points []Point
}

// Analyze pairs the records of every distributed run with the serial
// record of the same size. Sizes missing from serial are skipped, as are
// records without a positive time.
func Analyze(serial Results, runs ...Results) (*Report, error) {
	rep := &Report{}
	for i, run := range runs {
		for _, n := range run.Sizes() {
			rec := run[n]
			if rec.NumProcesses < 1 {
				return nil, fmt.Errorf("%w: run %d size %d", ErrNoProcessCount, i, n)
			}
			base, ok := serial[n]
			if !ok || rec.AvgTime <= 0 {
				continue
			}
			speedup := base.AvgTime / rec.AvgTime
			rep.Points = append(rep.Points, Point{
				Size:       n,
				Procs:      rec.NumProcesses,
				SerialTime: base.AvgTime,
				Time:       rec.AvgTime,
				Speedup:    speedup,
				Efficiency: speedup / float64(rec.NumProcesses),
			})
		}
	}
	slices.SortStableFunc(rep.Points, func(a, b Point) int {
		if a.Size != b.Size {
			return a.Size - b.Size
		}
		return a.Procs - b.Procs
	})
	return rep, nil
}

// WriteTable writes the points as an aligned table.
func (r *Report) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "size\tserial (s)\tprocs\ttime (s)\tspeedup\tefficiency\t")
	for _, p := range r.Points {
		fmt.Fprintf(tw, "%d\t%.4f\t%d\t%.4f\t%.2fx\t%.1f%%\t\n",
			p.Size, p.SerialTime, p.Procs, p.Time, p.Speedup, 100*p.Efficiency)
	}
	return tw.Flush()
}

// Best is the highest speedup reached for one size.
type Best struct {
	Size    int
	Procs   int
	Speedup float64
}

// Scaling summarizes every point of one process count.
type Scaling struct {
	Procs          int
	MaxSpeedup     float64
	MeanEfficiency float64
}

// Summary condenses a Report.
type Summary struct {
	Best           []Best    // one per size, in size order
	Scaling        []Scaling // one per process count, in increasing order
	AvgBestSpeedup float64
}

// Summary returns the best speedup of every size and the scaling of every
// process count.
func (r *Report) Summary() Summary {
	var s Summary
	byProcs := make(map[int][]Point)
	for _, p := range r.Points {
		byProcs[p.Procs] = append(byProcs[p.Procs], p)
		if i := len(s.Best) - 1; i >= 0 && s.Best[i].Size == p.Size {
			if p.Speedup > s.Best[i].Speedup {
				s.Best[i] = Best{Size: p.Size, Procs: p.Procs, Speedup: p.Speedup}
			}
			continue
		}
		s.Best = append(s.Best, Best{Size: p.Size, Procs: p.Procs, Speedup: p.Speedup})
	}

	if len(s.Best) > 0 {
		speedups := make([]float64, len(s.Best))
		for i, b := range s.Best {
			speedups[i] = b.Speedup
		}
		s.AvgBestSpeedup = stat.Mean(speedups, nil)
	}

	procs := make([]int, 0, len(byProcs))
	for n := range byProcs {
		procs = append(procs, n)
	}
	slices.Sort(procs)
	for _, n := range procs {
		pts := byProcs[n]
		sc := Scaling{Procs: n}
		eff := make([]float64, len(pts))
		for i, p := range pts {
			sc.MaxSpeedup = max(sc.MaxSpeedup, p.Speedup)
			eff[i] = p.Efficiency
		}
		sc.MeanEfficiency = stat.Mean(eff, nil)
		s.Scaling = append(s.Scaling, sc)
	}
	return s
}

// Verdict grades the average best speedup.
func (s Summary) Verdict() string {
	switch {
	case s.AvgBestSpeedup > 2:
		return "good parallel performance"
	case s.AvgBestSpeedup > 1.5:
		return "moderate parallel performance, communication may dominate"
	default:
		return "poor parallel performance"
	}
}

func (s Summary) String() string {
	var sb strings.Builder
	for _, b := range s.Best {
		fmt.Fprintf(&sb, "size %d: best speedup %.2fx with %d processes\n", b.Size, b.Speedup, b.Procs)
	}
	for _, sc := range s.Scaling {
		fmt.Fprintf(&sb, "%d processes: max speedup %.2fx, mean efficiency %.1f%%\n", sc.Procs, sc.MaxSpeedup, 100*sc.MeanEfficiency)
	}
	if len(s.Best) > 0 {
		fmt.Fprintf(&sb, "average best speedup %.2fx: %s\n", s.AvgBestSpeedup, s.Verdict())
	}
	return sb.String()
}
