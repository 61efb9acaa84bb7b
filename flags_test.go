package mpi_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rowsplit/mpi"
	"github.com/stretchr/testify/require"
)

func TestConfigFlags(t *testing.T) {
	var c mpi.Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)
	err := fs.Parse([]string{
		"-mpi-addr", ":5001",
		"-mpi-alladdr", ":5000, :5001,:5002",
		"-mpi-inittimeout", "3s",
		"-mpi-password", "secret",
	})
	require.NoError(t, err)

	n, err := c.Network()
	require.NoError(t, err)
	require.Equal(t, ":5001", n.Addr)
	require.Equal(t, []string{":5000", ":5001", ":5002"}, n.Addrs)
	require.Equal(t, 3*time.Second, n.Timeout)
	require.Equal(t, "tcp", n.NetProto)
	require.Equal(t, "secret", n.Password)
}

func TestConfigFileMergesUnderFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mpi.toml")
	err := os.WriteFile(path, []byte(`
addr = ":6000"
addrs = [":6000", ":6001"]
init_timeout = "45s"
protocol = "tcp4"
password = "fromfile"
`), 0o644)
	require.NoError(t, err)

	fc, err := mpi.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, mpi.DurationFlag(45*time.Second), fc.InitTimeout)

	var c mpi.Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-mpi-config", path, "-mpi-addr", ":6001"}))

	n, err := c.Network()
	require.NoError(t, err)
	require.Equal(t, ":6001", n.Addr, "flag wins over file")
	require.Equal(t, []string{":6000", ":6001"}, n.Addrs)
	require.Equal(t, 45*time.Second, n.Timeout)
	require.Equal(t, "tcp4", n.NetProto)
	require.Equal(t, "fromfile", n.Password)
}

func TestConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mpi.yaml")
	err := os.WriteFile(path, []byte(`
addr: ":7001"
addrs:
  - ":7000"
  - ":7001"
init_timeout: 2m
password: yamlsecret
`), 0o644)
	require.NoError(t, err)

	n, err := mpi.Config{File: path}.Network()
	require.NoError(t, err)
	require.Equal(t, ":7001", n.Addr)
	require.Equal(t, []string{":7000", ":7001"}, n.Addrs)
	require.Equal(t, 2*time.Minute, n.Timeout)
	require.Equal(t, "tcp", n.NetProto)
	require.Equal(t, "yamlsecret", n.Password)
}

func TestConfigRequiresAddresses(t *testing.T) {
	_, err := mpi.Config{}.Network()
	require.Error(t, err)

	_, err = mpi.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
