package hostconfig

import (
	"strings"
	"testing"

	"github.com/urchin-kernel/urchin/internal/netaddr"
)

func TestLoadParsesInterfaceList(t *testing.T) {
	doc := `
interfaces:
  - name: net0
    mac: "02:bb:bb:bb:bb:01"
    ipv4: "192.168.0.10"
    ipv4_prefix: 24
  - name: net1
    mac: "02:bb:bb:bb:bb:02"
    ipv6: "fe80:0000:0000:0000:0000:163e:ff00:0001"
`
	cfg, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Interfaces) != 2 {
		t.Fatalf("len(Interfaces) = %d, want 2", len(cfg.Interfaces))
	}

	p0, err := cfg.Interfaces[0].Parse()
	if err != nil {
		t.Fatalf("Parse(net0): %v", err)
	}
	wantMAC := netaddr.MAC{0x02, 0xbb, 0xbb, 0xbb, 0xbb, 0x01}
	if p0.MAC != wantMAC {
		t.Fatalf("net0 MAC = %v, want %v", p0.MAC, wantMAC)
	}
	if !p0.HasIPv4 {
		t.Fatal("net0 expected HasIPv4 = true")
	}
	wantIPv4 := netaddr.IPv4FromArray([4]byte{192, 168, 0, 10})
	if !p0.IPv4.Equal(wantIPv4) {
		t.Fatalf("net0 IPv4 = %v, want %v", p0.IPv4, wantIPv4)
	}
	if p0.IPv4Prefix != 24 {
		t.Fatalf("net0 IPv4Prefix = %d, want 24", p0.IPv4Prefix)
	}
	if p0.HasIPv6 {
		t.Fatal("net0 expected HasIPv6 = false")
	}

	p1, err := cfg.Interfaces[1].Parse()
	if err != nil {
		t.Fatalf("Parse(net1): %v", err)
	}
	if !p1.HasIPv6 {
		t.Fatal("net1 expected HasIPv6 = true")
	}
	if p1.IPv6Prefix != 128 {
		t.Fatalf("net1 IPv6Prefix = %d, want default 128", p1.IPv6Prefix)
	}
}

func TestParseRejectsMalformedAddresses(t *testing.T) {
	cases := []InterfaceConfig{
		{Name: "bad-mac", MAC: "not-a-mac"},
		{Name: "bad-ipv4", IPv4: "1.2.3"},
		{Name: "bad-ipv6", IPv6: "fe80::1"}, // shorthand not supported
	}
	for _, c := range cases {
		if _, err := c.Parse(); err == nil {
			t.Errorf("Parse(%+v): expected an error, got nil", c)
		}
	}
}
