/*
Launches MPI tasks within a slurm environment. To use, first allocate nodes with
salloc, and then call
gompirunslurm ncores programname otherargs. For example,
salloc -N6 -c12
gompirunslurm 12 matmul -sizes 800,1600 -output mpi_6.json

Note that this syntax differs than that for gompirun. Number of cores here is the
number of cores per distributed process (not the number of processes).

gompirunslurm uses srun to launch the scripts within the allocation, one per
allocated node, read from SLURM_JOB_NODELIST. Extra srun flags may be given in
GOMPIRUN_SRUN_FLAGS, quoted as in a shell.
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
		log.Fatal("gompirunslurm must be called with the number of cores and the program name")
	}
	nCores, err := strconv.Atoi(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	if nCores < 1 {
		log.Fatal("Must have at least one core")
	}
	programName := os.Args[2]

	nodelist, err := launch.ParseNodelist(os.Getenv("SLURM_JOB_NODELIST"))
	if err != nil {
		log.Fatal(err)
	}
	srunFlags, err := launch.SplitArgs(os.Getenv("GOMPIRUN_SRUN_FLAGS"))
	if err != nil {
		log.Fatal(err)
	}

	addrs := launch.AddrList(nodelist, launch.BasePort)
	cmds := make([]launch.Cmd, len(nodelist))
	for i, node := range nodelist {
		args := []string{"-N", "1", "-n", "1", "-c", strconv.Itoa(nCores), "--nodelist", node}
		args = append(args, srunFlags...)
		args = append(args, programName)
		args = append(args, os.Args[3:]...)
		args = append(args, launch.MPIArgs(addrs[i], addrs)...)
		cmds[i] = launch.Cmd{Name: "srun", Args: args}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := launch.Run(ctx, cmds); err != nil {
		log.Fatal(err)
	}
}
