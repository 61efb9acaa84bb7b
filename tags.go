package mpi

import (
	"fmt"
	"sync"
)

// Phase names a logical channel of messages. Each phase owns a disjoint
// range of tags, and within a phase the tag is keyed by a rank, so sends of
// one phase can never be matched by receives of another even when they use
// the same pair of ranks.
type Phase int

const (
	// PhaseUser is the range of tags left to programs, [0, 1<<20).
	PhaseUser Phase = iota
	// PhaseScatterA carries row blocks of A from Root, keyed by destination.
	PhaseScatterA
	// PhaseGatherC carries row blocks of C to Root, keyed by source.
	PhaseGatherC
	// PhaseBroadcast is used by Broadcast, keyed by the broadcasting root.
	PhaseBroadcast
	// PhaseBarrier is used by Barrier.
	PhaseBarrier
)

const phaseShift = 20

// MaxRank is the largest rank a phase tag can carry.
const MaxRank = 1<<phaseShift - 1

// Tag returns the tag of this phase keyed by rank.
func (p Phase) Tag(rank int) int {
	if rank < 0 || rank > MaxRank {
		panic(fmt.Sprintf("mpi: rank %d cannot be encoded in a tag", rank))
	}
	return int(p)<<phaseShift | rank
}

// SplitTag is the inverse of Phase.Tag.
func SplitTag(tag int) (Phase, int) {
	return Phase(tag >> phaseShift), tag & MaxRank
}

func (p Phase) String() string {
	switch p {
	case PhaseUser:
		return "user"
	case PhaseScatterA:
		return "scatter-a"
	case PhaseGatherC:
		return "gather-c"
	case PhaseBroadcast:
		return "broadcast"
	case PhaseBarrier:
		return "barrier"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

type mailKey struct {
	source int
	tag    int
}

// mailbox holds the messages delivered to one rank until they are received.
// Messages are queued per {source, tag} so a sender never waits on the
// receiver, and a message for one tag never blocks delivery of another.
type mailbox struct {
	mux     sync.Mutex
	cond    *sync.Cond
	queues  map[mailKey][][]byte
	waiting map[mailKey]bool
	gone    map[int]error // sources that will send nothing more
	err     error         // set once the mailbox is closed
}

func newMailbox() *mailbox {
	m := &mailbox{
		queues:  make(map[mailKey][][]byte),
		waiting: make(map[mailKey]bool),
		gone:    make(map[int]error),
	}
	m.cond = sync.NewCond(&m.mux)
	return m
}

// put queues b from source with tag. Messages put after close are dropped.
func (m *mailbox) put(source, tag int, b []byte) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.err != nil {
		return
	}
	k := mailKey{source, tag}
	m.queues[k] = append(m.queues[k], b)
	m.cond.Broadcast()
}

// take blocks until a message from source with tag is queued and removes
// it. Only one goroutine may wait on a given {source, tag} at a time.
func (m *mailbox) take(source, tag int) ([]byte, error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	k := mailKey{source, tag}
	if m.waiting[k] {
		return nil, TagExists{Tag: tag, Source: source}
	}
	m.waiting[k] = true
	defer delete(m.waiting, k)
	for len(m.queues[k]) == 0 {
		if m.err != nil {
			return nil, m.err
		}
		if err := m.gone[source]; err != nil {
			return nil, err
		}
		m.cond.Wait()
	}
	q := m.queues[k]
	b := q[0]
	if len(q) == 1 {
		delete(m.queues, k)
	} else {
		m.queues[k] = q[1:]
	}
	return b, nil
}

// closeSource marks source as finished: waiters on source get err once its
// queued messages are taken. Other sources are unaffected.
func (m *mailbox) closeSource(source int, err error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.gone[source] == nil {
		m.gone[source] = err
	}
	m.cond.Broadcast()
}

// close wakes every waiter with err. Already queued messages can still be
// taken.
func (m *mailbox) close(err error) {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.err == nil {
		m.err = err
	}
	m.cond.Broadcast()
}
