package mpi

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of a Network. It can be filled from command
// line flags (RegisterFlags), from a TOML or YAML file (LoadConfig), or
// both, in which case values given on the command line win.
type Config struct {
	Addr        string       `toml:"addr" yaml:"addr"`
	Addrs       AddrsFlag    `toml:"addrs" yaml:"addrs"`
	InitTimeout DurationFlag `toml:"init_timeout" yaml:"init_timeout"`
	Protocol    string       `toml:"protocol" yaml:"protocol"`
	Password    string       `toml:"password" yaml:"password"`

	// File is the config file read by Network, if any.
	File string `toml:"-" yaml:"-"`
}

type AddrsFlag []string

func (m *AddrsFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *AddrsFlag) Set(value string) error {
	for _, str := range strings.Split(value, ",") {
		if str = strings.TrimSpace(str); str != "" {
			*m = append(*m, str)
		}
	}
	return nil
}

type DurationFlag time.Duration

func (m *DurationFlag) String() string {
	return time.Duration(*m).String()
}

func (m *DurationFlag) Set(value string) error {
	dur, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*m = DurationFlag(dur)
	return nil
}

// UnmarshalText lets config files spell durations as "30s".
func (m *DurationFlag) UnmarshalText(b []byte) error {
	return m.Set(string(b))
}

func (m DurationFlag) MarshalText() ([]byte, error) {
	return []byte(time.Duration(m).String()), nil
}

// RegisterFlags adds the -mpi-* flags to fs, storing their values in c.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Addr, "mpi-addr", c.Addr, "address of the local running process")
	fs.Var(&c.Addrs, "mpi-alladdr", "addresses of all of the processes as comma separated values")
	fs.Var(&c.InitTimeout, "mpi-inittimeout", "duration to wait before timeout in init")
	fs.StringVar(&c.Protocol, "mpi-protocol", c.Protocol, "communication protocol to use (default tcp)")
	fs.StringVar(&c.Password, "mpi-password", c.Password, "value to use for salting the mpi connection")
	fs.StringVar(&c.File, "mpi-config", c.File, "TOML or YAML file with addr, addrs, init_timeout, protocol and password")
}

// LoadConfig reads a Config from a file. Files ending in .yaml or .yml are
// read as YAML, anything else as TOML. A leading ~ is the home directory.
func LoadConfig(path string) (Config, error) {
	var c Config
	path, err := homedir.Expand(path)
	if err != nil {
		return c, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &c)
	default:
		err = toml.Unmarshal(b, &c)
	}
	if err != nil {
		return c, fmt.Errorf("mpi config %s: %w", path, err)
	}
	return c, nil
}

// merge fills the zero fields of c from o.
func (c *Config) merge(o Config) {
	if c.Addr == "" {
		c.Addr = o.Addr
	}
	if len(c.Addrs) == 0 {
		c.Addrs = append(AddrsFlag(nil), o.Addrs...)
	}
	if c.InitTimeout == 0 {
		c.InitTimeout = o.InitTimeout
	}
	if c.Protocol == "" {
		c.Protocol = o.Protocol
	}
	if c.Password == "" {
		c.Password = o.Password
	}
}

// Network returns a Network built from c, after filling unset values from
// c.File if one was given.
func (c Config) Network() (*Network, error) {
	if c.File != "" {
		fc, err := LoadConfig(c.File)
		if err != nil {
			return nil, err
		}
		c.merge(fc)
	}
	if c.Addr == "" || len(c.Addrs) == 0 {
		return nil, fmt.Errorf("mpi config: -mpi-addr and -mpi-alladdr are required")
	}
	proto := c.Protocol
	if proto == "" {
		proto = "tcp"
	}
	return &Network{
		NetProto: proto,
		Addr:     c.Addr,
		Addrs:    append([]string(nil), c.Addrs...),
		Timeout:  time.Duration(c.InitTimeout),
		Password: c.Password,
	}, nil
}
