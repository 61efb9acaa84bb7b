package rowdist_test

import (
	"sync"
	"testing"

	"github.com/rowsplit/mpi"
	"github.com/rowsplit/mpi/rowdist"
	"github.com/stretchr/testify/require"
)

type transfer struct {
	phase mpi.Phase
	key   int // rank the tag is keyed by
	peer  int // destination of a send, source of a receive
}

// recorder wraps a Comm and records the point to point traffic it carries.
type recorder struct {
	*mpi.Comm

	mux   sync.Mutex
	sends []transfer
	recvs []transfer
}

func (r *recorder) Send(data any, destination, tag int) error {
	phase, key := mpi.SplitTag(tag)
	r.mux.Lock()
	r.sends = append(r.sends, transfer{phase, key, destination})
	r.mux.Unlock()
	return r.Comm.Send(data, destination, tag)
}

func (r *recorder) Receive(data any, source, tag int) error {
	phase, key := mpi.SplitTag(tag)
	r.mux.Lock()
	r.recvs = append(r.recvs, transfer{phase, key, source})
	r.mux.Unlock()
	return r.Comm.Receive(data, source, tag)
}

func TestMultiplyTagDiscipline(t *testing.T) {
	for _, test := range []struct {
		rows, procs int
	}{
		{5, 3},
		{7, 16},
		{12, 4},
	} {
		comms, err := mpi.NewLocalWorld(test.procs)
		require.NoError(t, err)
		recs := make([]*recorder, test.procs)
		for i, c := range comms {
			recs[i] = &recorder{Comm: c}
		}

		var wg sync.WaitGroup
		errs := make([]error, test.procs)
		for i, rec := range recs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = rowdist.MultiplyRandom(rec, test.rows, 1)
			}()
		}
		wg.Wait()
		for r, err := range errs {
			require.NoError(t, err, "rank %d", r)
		}

		ranges, err := rowdist.Plan(test.rows, test.procs)
		require.NoError(t, err)
		var rootSends, rootRecvs []transfer
		for r := 1; r < test.procs; r++ {
			rec := recs[r]
			if ranges[r].Empty() {
				require.Empty(t, rec.sends, "rank %d", r)
				require.Empty(t, rec.recvs, "rank %d", r)
				continue
			}
			require.Equal(t, []transfer{{mpi.PhaseScatterA, r, mpi.Root}}, rec.recvs, "rank %d", r)
			require.Equal(t, []transfer{{mpi.PhaseGatherC, r, mpi.Root}}, rec.sends, "rank %d", r)
			rootSends = append(rootSends, transfer{mpi.PhaseScatterA, r, r})
			rootRecvs = append(rootRecvs, transfer{mpi.PhaseGatherC, r, r})
		}
		require.Equal(t, rootSends, recs[mpi.Root].sends)
		require.Equal(t, rootRecvs, recs[mpi.Root].recvs)
	}
}

var _ rowdist.Transport = (*recorder)(nil)
