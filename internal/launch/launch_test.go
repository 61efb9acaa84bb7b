package launch

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPorts(t *testing.T) {
	require.Equal(t, []string{":5000", ":5001", ":5002"}, Ports(3, BasePort))
	require.Empty(t, Ports(0, BasePort))
}

func TestAddrList(t *testing.T) {
	require.Equal(t, []string{"a:6000", "b:6001"}, AddrList([]string{"a", "b"}, 6000))
}

func TestMPIArgs(t *testing.T) {
	require.Equal(t,
		[]string{"-mpi-addr", ":5001", "-mpi-alladdr", ":5000,:5001"},
		MPIArgs(":5001", []string{":5000", ":5001"}))
}

func TestParseNodelist(t *testing.T) {
	for _, test := range []struct {
		in   string
		want []string
	}{
		{"login", []string{"login"}},
		{"tux[1-3]", []string{"tux1", "tux2", "tux3"}},
		{"tux[1-2,7]", []string{"tux1", "tux2", "tux7"}},
		{"tux[1-2],gpu[08-10],login", []string{"tux1", "tux2", "gpu08", "gpu09", "gpu10", "login"}},
		{"a[1] b[3-4]", []string{"a1", "b3", "b4"}},
	} {
		got, err := ParseNodelist(test.in)
		require.NoError(t, err, test.in)
		require.Equal(t, test.want, got, test.in)
	}
}

func TestParseNodelistErrors(t *testing.T) {
	for _, in := range []string{"", "tux[1-3", "tux[a-b]", "tux[3-1]", "[1-2]", "tux]"} {
		_, err := ParseNodelist(in)
		require.ErrorIs(t, err, ErrNodelist, in)
	}
}

func TestSplitArgs(t *testing.T) {
	args, err := SplitArgs(`--exclusive --job-name "mat mul"`)
	require.NoError(t, err)
	require.Equal(t, []string{"--exclusive", "--job-name", "mat mul"}, args)

	_, err = SplitArgs(`"unterminated`)
	require.Error(t, err)
}

func TestRun(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no sh")
	}
	ok := []Cmd{{sh, []string{"-c", "exit 0"}}, {sh, []string{"-c", "exit 0"}}}
	require.NoError(t, Run(context.Background(), ok))

	failing := []Cmd{{sh, []string{"-c", "exit 3"}}, {sh, []string{"-c", "sleep 30"}}}
	start := time.Now()
	require.Error(t, Run(context.Background(), failing))
	require.Less(t, time.Since(start), 10*time.Second)
}
