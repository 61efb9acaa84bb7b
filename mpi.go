// Package mpi implements an mpi-like interface for go, together with the
// packages under it that use it to multiply dense matrices across a fixed
// group of processes. This package seeks to enable distributed-memory
// parallel computation using only native go code. While it presents a
// familiar interface to users of MPI, it does not follow the MPI standard
// exactly. In cases where package documentation disagrees with the MPI
// standard, the package documentation should be considered correct.
//
// In MPI a single program is executed in parallel on different machines,
// and the MPI routines are used to communicate data between them. MPI
// emphasises speed over robustness, and should only be used in highly
// reliable systems, such as a computation cluster. In particular, a Receive
// for which no matching Send is ever issued blocks forever. Programs must
// be written so that every Send has a Receive on the destination and vice
// versa.
//
// Every process owns a Comm, obtained either from Network.Init (one OS
// process per rank, connected all-to-all over the network) or from
// NewLocalWorld / RunLocal (one goroutine per rank in a single process).
// A Comm carries the process Context, the pair (rank, size) with
// 0 <= rank < size, which never changes. There is no global communicator;
// the Comm is passed explicitly to everything that communicates.
//
// The operations are:
//
//	Send / Receive: point-to-point transfer matched by (source, destination, tag).
//	Broadcast: the root's value is delivered to every rank.
//	Barrier: no rank returns until every rank has entered.
//
// All of them block. Values are serialized with encoding/gob, so the
// receiving side must decode into the same type that was sent.
//
// Tags are plain integers, but the range at and above 1<<20 is split into
// Phases (see Phase) used by the collectives and by the row distribution
// in package rowdist. Programs that call Send and Receive directly should
// use tags below 1<<20.
//
// Package mpi also provides flags to configure a Network (see Config).
//
//	-mpi-addr : address of the local running process
//	-mpi-alladdr: comma separated list of the strings of all the addresses
//	-mpi-inittimeout: time.Duration for how long init can take before timing out.
//	-mpi-protocol: string to represent the protocol to use
//	-mpi-password: password to use at MPI initialization
//	-mpi-config: TOML or YAML file with any of the above
//
// [1] http://www.mcs.anl.gov/research/projects/mpi/
// [2] http://www.mpi-forum.org/docs/mpi-3.0/mpi30-report.pdf
package mpi

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
)

// Root is the rank 0 process. It owns the full matrices and assembles the
// result; it is more semantic to use this than a literal 0.
const Root = 0

var (
	// ErrInvalidRank is returned when a rank is outside [0, size).
	ErrInvalidRank = errors.New("mpi: invalid rank")

	// ErrWorldSize is returned when a group is created with no processes or
	// more processes than the tag space can address.
	ErrWorldSize = errors.New("mpi: invalid world size")

	// ErrClosed is returned by operations blocked on, or started after, a
	// closed Comm.
	ErrClosed = errors.New("mpi: communicator closed")
)

// TagExists is an error type indicating the tag already has a concurrent
// request between the destination and source node.
type TagExists struct {
	Tag    int
	Source int
}

func (t TagExists) Error() string {
	return fmt.Sprintf("mpi: tag %v from rank %v already in use", t.Tag, t.Source)
}

// Context identifies one process within a fixed-size group.
type Context struct {
	Rank int
	Size int
}

// NewContext validates and returns the Context for rank in a group of size
// processes.
func NewContext(rank, size int) (Context, error) {
	if size <= 0 || size > MaxRank+1 {
		return Context{}, fmt.Errorf("%w: %d", ErrWorldSize, size)
	}
	if rank < 0 || rank >= size {
		return Context{}, fmt.Errorf("%w: %d of %d", ErrInvalidRank, rank, size)
	}
	return Context{Rank: rank, Size: size}, nil
}

// IsRoot reports whether this process is the Root.
func (c Context) IsRoot() bool { return c.Rank == Root }

func (c Context) String() string { return fmt.Sprintf("P%d/%d", c.Rank, c.Size) }

func (c Context) checkRank(rank int) error {
	if rank < 0 || rank >= c.Size {
		return fmt.Errorf("%w: %d of %d", ErrInvalidRank, rank, c.Size)
	}
	return nil
}

// transport moves already-encoded bytes between ranks. Messages from one
// source with one tag are delivered in the order they were sent.
type transport interface {
	send(dest, tag int, b []byte) error
	receive(source, tag int) ([]byte, error)
	close() error
}

// Comm is one process's handle on the group. Its methods may be called
// concurrently from several goroutines, but {source, tag} pairs should not
// be shared between concurrent receives.
type Comm struct {
	ctx Context
	t   transport
}

// Context returns the (rank, size) of this process.
func (c *Comm) Context() Context { return c.ctx }

// Rank returns the rank of the local process. 0 <= Rank() < Size().
func (c *Comm) Rank() int { return c.ctx.Rank }

// Size returns the total number of processes.
func (c *Comm) Size() int { return c.ctx.Size }

// Close releases the resources of the Comm. Operations blocked on it return
// ErrClosed.
func (c *Comm) Close() error { return c.t.close() }

// Send transmits data to the destination process with the given tag. Send
// returns once the data has been serialized and handed to the transport, so
// data is again free to be modified; it does not wait for the matching
// Receive. A process may send to itself.
func (c *Comm) Send(data any, destination, tag int) error {
	if err := c.ctx.checkRank(destination); err != nil {
		return err
	}
	b, err := encode(data)
	if err != nil {
		return fmt.Errorf("mpi: send to %d tag %d: %w", destination, tag, err)
	}
	return c.t.send(destination, tag, b)
}

// Receive blocks until a message from source with the given tag is
// available and deserializes it into data, which must be a pointer to the
// type that was sent.
func (c *Comm) Receive(data any, source, tag int) error {
	if err := c.ctx.checkRank(source); err != nil {
		return err
	}
	b, err := c.t.receive(source, tag)
	if err != nil {
		return err
	}
	if err := decode(b, data); err != nil {
		return fmt.Errorf("mpi: receive from %d tag %d: %w", source, tag, err)
	}
	return nil
}

// Broadcast delivers the root's data to every process. On the root, data is
// read; on every other rank it is overwritten with the decoded copy, so it
// must be a pointer. Broadcast ends with a Barrier: no process returns until
// every process holds the value.
func (c *Comm) Broadcast(data any, root int) error {
	if err := c.ctx.checkRank(root); err != nil {
		return err
	}
	tag := PhaseBroadcast.Tag(root)
	if c.ctx.Rank == root {
		b, err := encode(data)
		if err != nil {
			return fmt.Errorf("mpi: broadcast from %d: %w", root, err)
		}
		for r := 0; r < c.ctx.Size; r++ {
			if r == root {
				continue
			}
			if err := c.t.send(r, tag, b); err != nil {
				return err
			}
		}
	} else {
		b, err := c.t.receive(root, tag)
		if err != nil {
			return err
		}
		if err := decode(b, data); err != nil {
			return fmt.Errorf("mpi: broadcast from %d: %w", root, err)
		}
	}
	return c.Barrier()
}

// Barrier blocks until every process in the group has called Barrier. Every
// rank reports its arrival to Root, and Root releases them once all have
// arrived.
func (c *Comm) Barrier() error {
	tag := PhaseBarrier.Tag(Root)
	if c.ctx.Rank != Root {
		if err := c.t.send(Root, tag, nil); err != nil {
			return err
		}
		_, err := c.t.receive(Root, tag)
		return err
	}
	for r := 1; r < c.ctx.Size; r++ {
		if _, err := c.t.receive(r, tag); err != nil {
			return err
		}
	}
	for r := 1; r < c.ctx.Size; r++ {
		if err := c.t.send(r, tag, nil); err != nil {
			return err
		}
	}
	return nil
}

func encode(data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(b []byte, data any) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(data)
}
