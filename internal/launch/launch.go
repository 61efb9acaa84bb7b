// Package launch holds what the mpirun launchers share: building the
// address list handed to every process, expanding SLURM node lists, and
// starting the processes.
package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
	"golang.org/x/sync/errgroup"
)

// BasePort is the first port handed out to processes.
const BasePort = 5000

var ErrNodelist = errors.New("launch: bad node list")

// Ports returns n local addresses ":base", ":base+1", ...
func Ports(n, base int) []string {
	ports := make([]string, n)
	for i := range ports {
		ports[i] = ":" + strconv.Itoa(base+i)
	}
	return ports
}

// AddrList gives host i the port base+i.
func AddrList(hosts []string, base int) []string {
	addrs := make([]string, len(hosts))
	for i, h := range hosts {
		addrs[i] = h + ":" + strconv.Itoa(base+i)
	}
	return addrs
}

// MPIArgs returns the flags that tell a process its address and the
// addresses of every process.
func MPIArgs(addr string, all []string) []string {
	return []string{"-mpi-addr", addr, "-mpi-alladdr", strings.Join(all, ",")}
}

// SplitArgs splits a shell-quoted argument string, as found in an
// environment variable.
func SplitArgs(s string) ([]string, error) {
	args, err := shellwords.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("launch: splitting %q: %w", s, err)
	}
	return args, nil
}

// ParseNodelist expands a SLURM node list such as "tux[1-3,7],gpu[08-09],login"
// into one host name per node. Groups may also be separated by spaces.
// Zero padded ranges keep their width.
func ParseNodelist(s string) ([]string, error) {
	var nodes []string
	for _, group := range splitGroups(s) {
		open := strings.IndexByte(group, '[')
		if open < 0 {
			if strings.ContainsRune(group, ']') {
				return nil, fmt.Errorf("%w: %q", ErrNodelist, group)
			}
			nodes = append(nodes, group)
			continue
		}
		if !strings.HasSuffix(group, "]") || open == 0 {
			return nil, fmt.Errorf("%w: %q", ErrNodelist, group)
		}
		prefix := group[:open]
		for _, sweep := range strings.Split(group[open+1:len(group)-1], ",") {
			expanded, err := expandRange(prefix, sweep)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrNodelist, group, err)
			}
			nodes = append(nodes, expanded...)
		}
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no nodes in %q", ErrNodelist, s)
	}
	return nodes, nil
}

// splitGroups splits at commas and spaces outside brackets.
func splitGroups(s string) []string {
	var (
		groups []string
		depth  int
		start  int
	)
	for i, c := range s {
		switch {
		case c == '[':
			depth++
		case c == ']':
			depth--
		case (c == ',' || c == ' ') && depth == 0:
			if i > start {
				groups = append(groups, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		groups = append(groups, s[start:])
	}
	return groups
}

func expandRange(prefix, sweep string) ([]string, error) {
	lowStr, highStr, isRange := strings.Cut(sweep, "-")
	low, err := strconv.Atoi(lowStr)
	if err != nil {
		return nil, err
	}
	if !isRange {
		return []string{prefix + lowStr}, nil
	}
	high, err := strconv.Atoi(highStr)
	if err != nil {
		return nil, err
	}
	if high < low {
		return nil, fmt.Errorf("range %s is reversed", sweep)
	}
	width := len(lowStr)
	nodes := make([]string, 0, high-low+1)
	for i := low; i <= high; i++ {
		nodes = append(nodes, fmt.Sprintf("%s%0*d", prefix, width, i))
	}
	return nodes, nil
}

// Cmd is one process to start.
type Cmd struct {
	Name string
	Args []string
}

// Run starts every command at once with the standard streams of this
// process and waits for all of them. If one fails the others are killed,
// since they would otherwise wait for it forever. On Unix each command runs
// in its own process group and the whole group is killed, so children of
// a wrapper such as srun or a shell go too.
func Run(ctx context.Context, cmds []Cmd) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range cmds {
		g.Go(func() error {
			cmd := exec.CommandContext(ctx, c.Name, c.Args...)
			cmd.Stdin = os.Stdin
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			killGroup(cmd)
			if err := cmd.Run(); err != nil {
				return fmt.Errorf("launch: %s %s: %w", c.Name, strings.Join(c.Args, " "), err)
			}
			return nil
		})
	}
	return g.Wait()
}
