package mpi_test

import (
	"testing"

	"github.com/rowsplit/mpi"
	"github.com/stretchr/testify/require"
)

func TestPhaseTagsAreDisjoint(t *testing.T) {
	phases := []mpi.Phase{mpi.PhaseScatterA, mpi.PhaseGatherC, mpi.PhaseBroadcast, mpi.PhaseBarrier}
	seen := map[int]mpi.Phase{}
	for _, p := range phases {
		for _, r := range []int{0, 1, 2, 100, mpi.MaxRank} {
			tag := p.Tag(r)
			require.GreaterOrEqual(t, tag, 1<<20, "phase tags must not overlap user tags")
			prev, dup := seen[tag]
			require.False(t, dup, "tag %d used by %v and %v", tag, prev, p)
			seen[tag] = p

			gotPhase, gotRank := mpi.SplitTag(tag)
			require.Equal(t, p, gotPhase)
			require.Equal(t, r, gotRank)
		}
	}
}

func TestPhaseTagIsDeterministic(t *testing.T) {
	require.Equal(t, mpi.PhaseScatterA.Tag(3), mpi.PhaseScatterA.Tag(3))
	require.NotEqual(t, mpi.PhaseScatterA.Tag(3), mpi.PhaseGatherC.Tag(3))
	require.Panics(t, func() { mpi.PhaseGatherC.Tag(-1) })
}

func TestPhaseString(t *testing.T) {
	require.Equal(t, "scatter-a", mpi.PhaseScatterA.String())
	require.Equal(t, "gather-c", mpi.PhaseGatherC.String())
	require.Equal(t, "phase(42)", mpi.Phase(42).String())
}
