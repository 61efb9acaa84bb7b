package mpi_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rowsplit/mpi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext(t *testing.T) {
	c, err := mpi.NewContext(2, 4)
	require.NoError(t, err)
	require.Equal(t, mpi.Context{Rank: 2, Size: 4}, c)
	require.False(t, c.IsRoot())

	_, err = mpi.NewContext(0, 0)
	require.ErrorIs(t, err, mpi.ErrWorldSize)
	_, err = mpi.NewContext(4, 4)
	require.ErrorIs(t, err, mpi.ErrInvalidRank)
	_, err = mpi.NewContext(-1, 4)
	require.ErrorIs(t, err, mpi.ErrInvalidRank)
}

func TestLocalWorldSize(t *testing.T) {
	_, err := mpi.NewLocalWorld(0)
	require.ErrorIs(t, err, mpi.ErrWorldSize)

	comms, err := mpi.NewLocalWorld(3)
	require.NoError(t, err)
	for i, c := range comms {
		require.Equal(t, i, c.Rank())
		require.Equal(t, 3, c.Size())
	}
}

func TestSendReceiveAllPairs(t *testing.T) {
	const size = 4
	err := mpi.RunLocal(context.Background(), size, func(c *mpi.Comm) error {
		// every node sends to every node, itself included, before receiving
		for dest := 0; dest < size; dest++ {
			if err := c.Send([]int{c.Rank(), dest}, dest, 7); err != nil {
				return err
			}
		}
		for src := 0; src < size; src++ {
			var got []int
			if err := c.Receive(&got, src, 7); err != nil {
				return err
			}
			if got[0] != src || got[1] != c.Rank() {
				return errors.New("message routed to the wrong rank")
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestSameTagIsFIFO(t *testing.T) {
	err := mpi.RunLocal(context.Background(), 2, func(c *mpi.Comm) error {
		if c.Rank() == 0 {
			for i := 0; i < 50; i++ {
				if err := c.Send(i, 1, 3); err != nil {
					return err
				}
			}
			return nil
		}
		for i := 0; i < 50; i++ {
			var got int
			if err := c.Receive(&got, 0, 3); err != nil {
				return err
			}
			if got != i {
				return errors.New("out of order")
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestTagsAreMatchedIndependently(t *testing.T) {
	err := mpi.RunLocal(context.Background(), 2, func(c *mpi.Comm) error {
		if c.Rank() == 0 {
			if err := c.Send("first", 1, 1); err != nil {
				return err
			}
			return c.Send("second", 1, 2)
		}
		// receive in the opposite order of sending
		var s2, s1 string
		if err := c.Receive(&s2, 0, 2); err != nil {
			return err
		}
		if err := c.Receive(&s1, 0, 1); err != nil {
			return err
		}
		if s1 != "first" || s2 != "second" {
			return errors.New("tags mixed up")
		}
		return nil
	})
	require.NoError(t, err)
}

func TestBroadcast(t *testing.T) {
	type payload struct {
		Name   string
		Values []float64
	}
	for _, root := range []int{0, 2} {
		var mu sync.Mutex
		got := map[int]payload{}
		err := mpi.RunLocal(context.Background(), 3, func(c *mpi.Comm) error {
			var p payload
			if c.Rank() == root {
				p = payload{Name: "b", Values: []float64{1, 2, 3}}
			}
			if err := c.Broadcast(&p, root); err != nil {
				return err
			}
			mu.Lock()
			got[c.Rank()] = p
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
		require.Len(t, got, 3)
		for r, p := range got {
			assert.Equal(t, "b", p.Name, "rank %d", r)
			assert.Equal(t, []float64{1, 2, 3}, p.Values, "rank %d", r)
		}
	}
}

func TestBarrierHoldsEveryRank(t *testing.T) {
	const size = 5
	var mu sync.Mutex
	arrived := 0
	err := mpi.RunLocal(context.Background(), size, func(c *mpi.Comm) error {
		for round := 1; round <= 3; round++ {
			// stagger arrivals so the last rank is much later
			time.Sleep(time.Duration(c.Rank()) * 2 * time.Millisecond)
			mu.Lock()
			arrived++
			mu.Unlock()
			if err := c.Barrier(); err != nil {
				return err
			}
			mu.Lock()
			n := arrived
			mu.Unlock()
			if n < round*size {
				return errors.New("left the barrier before everyone arrived")
			}
			// second barrier so no rank starts the next round early
			if err := c.Barrier(); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestInvalidRanks(t *testing.T) {
	comms, err := mpi.NewLocalWorld(2)
	require.NoError(t, err)
	c := comms[0]
	require.ErrorIs(t, c.Send(1, 2, 0), mpi.ErrInvalidRank)
	var v int
	require.ErrorIs(t, c.Receive(&v, -1, 0), mpi.ErrInvalidRank)
	require.ErrorIs(t, c.Broadcast(&v, 5), mpi.ErrInvalidRank)
}

func TestRunLocalUnblocksOnFailure(t *testing.T) {
	boom := errors.New("boom")
	err := mpi.RunLocal(context.Background(), 3, func(c *mpi.Comm) error {
		if c.Rank() == 2 {
			return boom
		}
		// would block forever: rank 2 never reaches the barrier
		return c.Barrier()
	})
	require.ErrorIs(t, err, boom)
}

func TestRunLocalCanceled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := mpi.RunLocal(ctx, 2, func(c *mpi.Comm) error {
		var v int
		return c.Receive(&v, 1-c.Rank(), 0)
	})
	require.ErrorIs(t, err, mpi.ErrClosed)
}
