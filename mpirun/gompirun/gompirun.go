/*
gompirun is a helper for launching mpi jobs on a local machine.

Since Go is good at shared memory, generally programs should use Go's primitives
rather than MPI in a shared-memory environment. However, running locally can be
helpful for debugging and prototyping, and for measuring how the row
distribution scales before moving to a cluster.

gompirun takes two arguments. The first argument is the number of instances to
launch, and the second is the command to run. Any additional arguments will be
passed to the program. Process i listens on port 5000+i of localhost, or on
GOMPIRUN_BASEPORT+i if that is set.

Instructions:

	go install github.com/rowsplit/mpi/mpirun/gompirun
	gompirun 4 matmul -sizes 100,200,400 -verify
*/
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/rowsplit/mpi/internal/launch"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("less than two arguments, must have at least number of nodes and executable")
	}
	nNodes, err := strconv.Atoi(os.Args[1])
	if err != nil {
		log.Fatal("error parsing nNodes: ", err)
	}
	if nNodes < 1 {
		log.Fatal("number of nodes must be positive")
	}
	execName := os.Args[2]
	otherArgs := os.Args[3:]

	base := launch.BasePort
	if s := os.Getenv("GOMPIRUN_BASEPORT"); s != "" {
		if base, err = strconv.Atoi(s); err != nil {
			log.Fatal("error parsing GOMPIRUN_BASEPORT: ", err)
		}
	}

	// Use local host ports
	ports := launch.Ports(nNodes, base)
	cmds := make([]launch.Cmd, len(ports))
	for i, port := range ports {
		args := append([]string(nil), otherArgs...)
		cmds[i] = launch.Cmd{Name: execName, Args: append(args, launch.MPIArgs(port, ports)...)}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := launch.Run(ctx, cmds); err != nil {
		log.Fatal(err)
	}
}
