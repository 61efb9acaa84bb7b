// Package bench times matrix multiplication, either distributed with
// rowdist across the ranks of an mpi group or serially on one process, and
// compares the two.
package bench

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/rowsplit/mpi"
	"github.com/rowsplit/mpi/matrix"
	"github.com/rowsplit/mpi/rowdist"
	"gonum.org/v1/gonum/stat"
)

// Seeds of the serial baseline. Run r multiplies Random(n, n, SerialSeedA+r)
// by Random(n, n, SerialSeedB+r).
const (
	SerialSeedA = 42
	SerialSeedB = 100
)

// ErrConfig is returned for a Config that cannot be run.
var ErrConfig = errors.New("bench: bad config")

// Config selects what to time.
type Config struct {
	Sizes []int // side length of the square matrices
	Runs  int   // timed multiplications per size
	Seed  int64 // seed Root draws both matrices from in Run
}

func (c Config) check() error {
	if c.Runs < 1 {
		return fmt.Errorf("%w: %d runs", ErrConfig, c.Runs)
	}
	if len(c.Sizes) == 0 {
		return fmt.Errorf("%w: no sizes", ErrConfig)
	}
	for _, n := range c.Sizes {
		if n < 0 {
			return fmt.Errorf("%w: size %d", ErrConfig, n)
		}
	}
	return nil
}

// Record is the timing of one matrix size. Times are in seconds and
// StdTime is the population standard deviation. NumProcesses is zero for
// the serial baseline.
type Record struct {
	AvgTime      float64   `json:"avg_time"`
	StdTime      float64   `json:"std_time"`
	Times        []float64 `json:"times"`
	NumProcesses int       `json:"num_processes,omitempty"`
}

func newRecord(times []float64, procs int) Record {
	mean, std := stat.PopMeanStdDev(times, nil)
	return Record{
		AvgTime:      mean,
		StdTime:      std,
		Times:        times,
		NumProcesses: procs,
	}
}

// Results maps a matrix size to its Record.
type Results map[int]Record

// Sizes returns the sizes in r in increasing order.
func (r Results) Sizes() []int {
	sizes := make([]int, 0, len(r))
	for n := range r {
		sizes = append(sizes, n)
	}
	slices.Sort(sizes)
	return sizes
}

// Procs returns the process count shared by the records of r, or 0 if r is
// empty or the records disagree.
func (r Results) Procs() int {
	procs := -1
	for _, rec := range r {
		switch {
		case procs == -1:
			procs = rec.NumProcesses
		case procs != rec.NumProcesses:
			return 0
		}
	}
	return max(procs, 0)
}

// Save writes r to path as indented JSON keyed by size.
func (r Results) Save(path string) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// Load reads Results written by Save.
func Load(path string) (Results, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Results
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("bench: %s: %w", path, err)
	}
	return r, nil
}

// Run times rowdist.MultiplyRandom for every size in cfg, cfg.Runs times
// each. Every run is bracketed by barriers so the time on Root covers the
// slowest rank. It must be called by every rank with the same cfg; Root
// returns the Results and the other ranks return nil.
func Run(t rowdist.Transport, cfg Config) (Results, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	ctx := t.Context()
	res := make(Results)
	for _, n := range cfg.Sizes {
		times := make([]float64, 0, cfg.Runs)
		for run := 0; run < cfg.Runs; run++ {
			if err := t.Barrier(); err != nil {
				return nil, err
			}
			start := time.Now()
			if _, err := rowdist.MultiplyRandom(t, n, cfg.Seed); err != nil {
				return nil, fmt.Errorf("bench: size %d run %d: %w", n, run+1, err)
			}
			if err := t.Barrier(); err != nil {
				return nil, err
			}
			elapsed := time.Since(start).Seconds()
			times = append(times, elapsed)
			if ctx.IsRoot() {
				mpi.Logger(ctx).Info("bench run", "matrix", n, "run", run+1, "seconds", elapsed)
			}
		}
		res[n] = newRecord(times, ctx.Size)
	}
	if !ctx.IsRoot() {
		return nil, nil
	}
	return res, nil
}

// Serial times matrix.Multiply on this process alone, drawing the
// matrices of run r from SerialSeedA+r and SerialSeedB+r. cfg.Seed is not
// used.
func Serial(cfg Config) (Results, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	res := make(Results)
	for _, n := range cfg.Sizes {
		times := make([]float64, 0, cfg.Runs)
		for run := 0; run < cfg.Runs; run++ {
			a, err := matrix.Random(n, n, SerialSeedA+int64(run))
			if err != nil {
				return nil, err
			}
			b, err := matrix.Random(n, n, SerialSeedB+int64(run))
			if err != nil {
				return nil, err
			}
			start := time.Now()
			if _, err := matrix.Multiply(a, b); err != nil {
				return nil, err
			}
			elapsed := time.Since(start).Seconds()
			times = append(times, elapsed)
			slog.Info("serial run", "size", n, "run", run+1, "seconds", elapsed)
		}
		res[n] = newRecord(times, 0)
	}
	return res, nil
}

// Print writes a summary of r on Root.
func (r Results) Print(c mpi.Context) {
	for _, n := range r.Sizes() {
		rec := r[n]
		mpi.Printf(c, "Size %d: %.4f ± %.4f seconds\n", n, rec.AvgTime, rec.StdTime)
	}
}
