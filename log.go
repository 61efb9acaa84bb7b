package mpi

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// PrintAllProcs causes Printf and Println to print on all processes,
// otherwise just Root.
var PrintAllProcs = false

// Output is where Printf and Println write.
var Output io.Writer = os.Stdout

// Logger returns slog.Default with the rank and size of c attached.
func Logger(c Context) *slog.Logger {
	return slog.Default().With("rank", c.Rank, "size", c.Size)
}

// Printf does fmt.Printf only on the Root process (see also AllPrintf to do
// all) and the PrintAllProcs var to override for debugging.
func Printf(c Context, fs string, pars ...any) {
	if !PrintAllProcs && !c.IsRoot() {
		return
	}
	if !c.IsRoot() {
		AllPrintf(c, fs, pars...)
		return
	}
	fmt.Fprintf(Output, fs, pars...)
}

// AllPrintf does fmt.Printf on all processes, with the rank printed first.
// This is best for debugging MPI itself.
func AllPrintf(c Context, fs string, pars ...any) {
	fmt.Fprintf(Output, fmt.Sprintf("P%d: ", c.Rank)+fs, pars...)
}

// Println does fmt.Println only on the Root process, like Printf.
func Println(c Context, pars ...any) {
	if !PrintAllProcs && !c.IsRoot() {
		return
	}
	if !c.IsRoot() {
		AllPrintln(c, pars...)
		return
	}
	fmt.Fprintln(Output, pars...)
}

// AllPrintln does fmt.Println on all processes, with the rank printed first.
func AllPrintln(c Context, pars ...any) {
	fsa := make([]any, len(pars)+1)
	copy(fsa[1:], pars)
	fsa[0] = fmt.Sprintf("P%d:", c.Rank)
	fmt.Fprintln(Output, fsa...)
}
