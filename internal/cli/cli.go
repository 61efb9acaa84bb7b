// Package cli has the flag helpers shared by the example programs.
package cli

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Verbosity holds the -vv, -v and -q flags.
type Verbosity struct {
	VV, V, Q bool
}

func (v *Verbosity) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&v.VV, "vv", false, "log debug messages, including every transfer plan")
	fs.BoolVar(&v.V, "v", false, "log info messages, including every timed run")
	fs.BoolVar(&v.Q, "q", false, "log errors only")
}

// Level returns the level selected by the flags, evaluated in the order
// vv, v, q. Without any of them it is slog.LevelWarn.
func (v Verbosity) Level() slog.Level {
	switch {
	case v.VV:
		return slog.LevelDebug
	case v.V:
		return slog.LevelInfo
	case v.Q:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Setup makes slog write text to stderr at the selected level.
func (v Verbosity) Setup() {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: v.Level()})
	slog.SetDefault(slog.New(h))
}

// IntsFlag is a comma separated list of integers.
type IntsFlag []int

func (f *IntsFlag) String() string {
	s := make([]string, len(*f))
	for i, v := range *f {
		s[i] = strconv.Itoa(v)
	}
	return strings.Join(s, ",")
}

// Set replaces the default list with the values in value.
func (f *IntsFlag) Set(value string) error {
	var vals []int
	for _, str := range strings.Split(value, ",") {
		if str = strings.TrimSpace(str); str == "" {
			continue
		}
		v, err := strconv.Atoi(str)
		if err != nil {
			return fmt.Errorf("parsing %q: %w", str, err)
		}
		vals = append(vals, v)
	}
	*f = vals
	return nil
}
