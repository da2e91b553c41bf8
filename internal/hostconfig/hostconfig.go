// Package hostconfig parses a YAML interface-configuration file: the
// deployer-facing replacement for the fixed pair of setup_virtio_net(...)
// calls the original bring-up path hard-coded. cmd/urchind reads one of
// these at boot to learn which TAP interfaces to open and what local
// addresses to register for each.
package hostconfig

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urchin-kernel/urchin/internal/netaddr"
	"gopkg.in/yaml.v3"
)

// InterfaceConfig describes one interface's local identity, as
// written in the YAML document. Fields are strings because that's the
// natural YAML scalar form; Parse converts them to the wire types the FIB
// and adjacency tables expect.
type InterfaceConfig struct {
	Name       string `yaml:"name"`
	MAC        string `yaml:"mac,omitempty"`
	IPv4       string `yaml:"ipv4,omitempty"`
	IPv4Prefix int    `yaml:"ipv4_prefix,omitempty"`
	IPv6       string `yaml:"ipv6,omitempty"`
	IPv6Prefix int    `yaml:"ipv6_prefix,omitempty"`
}

// Config is the top-level YAML document: an ordered list of interfaces.
// cmd/urchind uses each entry's position in the list as its interface ID.
type Config struct {
	Interfaces []InterfaceConfig `yaml:"interfaces"`
}

// Load decodes a Config from r.
func Load(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("hostconfig: decode: %w", err)
	}
	return &cfg, nil
}

// LoadFile opens path and decodes a Config from it.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hostconfig: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Parsed is an InterfaceConfig with its addresses converted to the wire
// types the rest of the kernel operates on. HasIPv4/HasIPv6 distinguish an
// address that was never configured from the zero address.
type Parsed struct {
	Name string
	MAC  netaddr.MAC

	HasIPv4    bool
	IPv4       netaddr.IPv4
	IPv4Prefix uint

	HasIPv6    bool
	IPv6       netaddr.IPv6
	IPv6Prefix uint
}

// Parse converts c's string fields to wire types, deriving defaults (a
// /32 or /128 host route) when a prefix length is omitted.
func (c InterfaceConfig) Parse() (Parsed, error) {
	p := Parsed{Name: c.Name}

	if c.MAC != "" {
		m, err := parseMAC(c.MAC)
		if err != nil {
			return Parsed{}, fmt.Errorf("hostconfig: interface %q: %w", c.Name, err)
		}
		p.MAC = m
	}

	if c.IPv4 != "" {
		addr, err := parseIPv4(c.IPv4)
		if err != nil {
			return Parsed{}, fmt.Errorf("hostconfig: interface %q: %w", c.Name, err)
		}
		p.HasIPv4 = true
		p.IPv4 = addr
		p.IPv4Prefix = 32
		if c.IPv4Prefix != 0 {
			p.IPv4Prefix = uint(c.IPv4Prefix)
		}
	}

	if c.IPv6 != "" {
		addr, err := parseIPv6(c.IPv6)
		if err != nil {
			return Parsed{}, fmt.Errorf("hostconfig: interface %q: %w", c.Name, err)
		}
		p.HasIPv6 = true
		p.IPv6 = addr
		p.IPv6Prefix = 128
		if c.IPv6Prefix != 0 {
			p.IPv6Prefix = uint(c.IPv6Prefix)
		}
	}

	return p, nil
}

// parseMAC parses the colon-separated hex form (aa:bb:cc:dd:ee:ff).
func parseMAC(s string) (netaddr.MAC, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return netaddr.MAC{}, fmt.Errorf("invalid MAC %q", s)
	}
	var m netaddr.MAC
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return netaddr.MAC{}, fmt.Errorf("invalid MAC %q: %w", s, err)
		}
		m[i] = byte(v)
	}
	return m, nil
}

// parseIPv4 parses the dotted-quad form (a.b.c.d).
func parseIPv4(s string) (netaddr.IPv4, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return netaddr.IPv4{}, fmt.Errorf("invalid IPv4 address %q", s)
	}
	var arr [4]byte
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return netaddr.IPv4{}, fmt.Errorf("invalid IPv4 address %q: %w", s, err)
		}
		arr[i] = byte(v)
	}
	return netaddr.IPv4FromArray(arr), nil
}

// parseIPv6 parses the fully-expanded, uncompressed colon-hex form
// (eight 16-bit groups, e.g. fe80:0000:0000:0000:0000:163e:ff00:0001).
// The "::" zero-run shorthand is not accepted; a static interface config
// is expected to spell its address out in full.
func parseIPv6(s string) (netaddr.IPv6, error) {
	groups := strings.Split(s, ":")
	if len(groups) != 8 {
		return netaddr.IPv6{}, fmt.Errorf("invalid IPv6 address %q (expected 8 groups, shorthand not supported)", s)
	}
	var arr [16]byte
	for i, g := range groups {
		v, err := strconv.ParseUint(g, 16, 16)
		if err != nil {
			return netaddr.IPv6{}, fmt.Errorf("invalid IPv6 address %q: %w", s, err)
		}
		arr[2*i] = byte(v >> 8)
		arr[2*i+1] = byte(v)
	}
	return netaddr.IPv6FromArray(arr), nil
}
