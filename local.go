package mpi

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// local connects ranks living in the same process. Every rank owns a
// mailbox, and sending is appending to the destination's mailbox.
type local struct {
	rank  int
	boxes []*mailbox
}

func (l *local) send(dest, tag int, b []byte) error {
	l.boxes[dest].put(l.rank, tag, b)
	return nil
}

func (l *local) receive(source, tag int) ([]byte, error) {
	return l.boxes[l.rank].take(source, tag)
}

func (l *local) close() error {
	l.boxes[l.rank].close(ErrClosed)
	return nil
}

// NewLocalWorld returns size communicators, one per rank, connected in
// memory. Each is meant to be driven by its own goroutine.
func NewLocalWorld(size int) ([]*Comm, error) {
	if size <= 0 || size > MaxRank+1 {
		return nil, fmt.Errorf("%w: %d", ErrWorldSize, size)
	}
	boxes := make([]*mailbox, size)
	for i := range boxes {
		boxes[i] = newMailbox()
	}
	comms := make([]*Comm, size)
	for i := range comms {
		comms[i] = &Comm{
			ctx: Context{Rank: i, Size: size},
			t:   &local{rank: i, boxes: boxes},
		}
	}
	return comms, nil
}

// RunLocal runs fn once per rank of a new in-process world of the given
// size, each in its own goroutine, and waits for all of them. It returns
// the first error. When a rank fails or ctx is done the world is closed, so
// ranks blocked waiting on the failed one return ErrClosed instead of
// hanging.
func RunLocal(ctx context.Context, size int, fn func(c *Comm) error) error {
	comms, err := NewLocalWorld(size)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, func() {
		for _, c := range comms {
			c.Close()
		}
	})
	defer stop()
	for _, c := range comms {
		g.Go(func() error {
			if err := fn(c); err != nil {
				return fmt.Errorf("%v: %w", c.Context(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
