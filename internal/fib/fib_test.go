package fib

import (
	"testing"

	"github.com/urchin-kernel/urchin/internal/netaddr"
)

func u64(v uint64) *uint64 { return &v }

func TestIPv4LongestPrefixMatch(t *testing.T) {
	defer resetIPv4FIBForTest()

	broad := netaddr.IPv4FromArray([4]byte{10, 0, 0, 0})
	narrow := netaddr.IPv4FromArray([4]byte{10, 0, 0, 5})
	target := netaddr.IPv4FromArray([4]byte{10, 0, 0, 5})

	RegisterIPv4(broad, 0xffffff00, netaddr.MAC{1}, broad, nil, Remote)
	RegisterIPv4(narrow, 0xffffffff, netaddr.MAC{2}, narrow, nil, Adjacent)

	e, ok := FindIPv4(target, 0xffffffff)
	if !ok {
		t.Fatal("expected a match")
	}
	if e.Type != Adjacent {
		t.Fatalf("expected the /32 entry to win, got type %v", e.Type)
	}
}

func TestIPv4FindFallsBackToLessSpecific(t *testing.T) {
	defer resetIPv4FIBForTest()

	net24 := netaddr.IPv4FromArray([4]byte{192, 168, 1, 0})
	RegisterIPv4(net24, 0xffffff00, netaddr.MAC{9}, net24, nil, Remote)

	host := netaddr.IPv4FromArray([4]byte{192, 168, 1, 200})
	e, ok := FindIPv4(host, 0xffffffff)
	if !ok {
		t.Fatal("expected the /24 route to cover this host")
	}
	if e.Type != Remote {
		t.Fatalf("got type %v", e.Type)
	}
}

func TestIPv4RegisterMasksHostBits(t *testing.T) {
	defer resetIPv4FIBForTest()

	// A /24 registered with host bits set must land on the same key a
	// lookup for any address in that prefix probes.
	withHostBits := netaddr.IPv4FromArray([4]byte{192, 168, 0, 99})
	RegisterIPv4(withHostBits, 0xffffff00, netaddr.MAC{7}, withHostBits, nil, Remote)

	other := netaddr.IPv4FromArray([4]byte{192, 168, 0, 7})
	e, ok := FindIPv4(other, 0xffffffff)
	if !ok {
		t.Fatal("expected the /24 registered via a host address to cover the prefix")
	}
	if e.NexthopMAC != (netaddr.MAC{7}) {
		t.Fatalf("got nexthop MAC %v, want %v", e.NexthopMAC, netaddr.MAC{7})
	}
}

func TestIPv6RegisterMasksHostBits(t *testing.T) {
	defer resetIPv6FIBForTest()

	withHostBits := netaddr.IPv6FromArray([16]byte{0xfe, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x42})
	RegisterIPv6(withHostBits, 64, netaddr.MAC{8}, withHostBits, nil, Remote)

	other := netaddr.IPv6FromArray([16]byte{0xfe, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x43})
	e, ok := FindIPv6(other, 128)
	if !ok {
		t.Fatal("expected the /64 registered via a host address to cover the prefix")
	}
	if e.NexthopMAC != (netaddr.MAC{8}) {
		t.Fatalf("got nexthop MAC %v, want %v", e.NexthopMAC, netaddr.MAC{8})
	}
}

func TestIPv4FindMiss(t *testing.T) {
	defer resetIPv4FIBForTest()

	_, ok := FindIPv4(netaddr.IPv4FromArray([4]byte{8, 8, 8, 8}), 0xffffffff)
	if ok {
		t.Fatal("expected no match in an empty FIB")
	}
}

func TestIPv6LongestPrefixMatch(t *testing.T) {
	defer resetIPv6FIBForTest()

	broad := netaddr.IPv6FromArray([16]byte{0xfe, 0x80})
	RegisterIPv6(broad, 64, netaddr.MAC{1}, broad, nil, Remote)

	target := netaddr.IPv6FromArray([16]byte{0xfe, 0x80, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8})
	e, ok := FindIPv6(target, 128)
	if !ok {
		t.Fatal("expected the /64 route to cover this address")
	}
	if e.Type != Remote {
		t.Fatalf("got type %v", e.Type)
	}
}

func TestAdjacentRegistrationRules(t *testing.T) {
	defer resetAdjacentTablesForTest()

	addr := netaddr.IPv4FromArray([4]byte{10, 1, 1, 1})

	RegisterIPv4Adjacent(addr, netaddr.MAC{1}, nil, true, nil)
	entry, ok := LookupIPv4Adjacent(addr)
	if !ok || entry.MAC != (netaddr.MAC{1}) {
		t.Fatal("expected the permanent entry to be installed")
	}

	RegisterIPv4Adjacent(addr, netaddr.MAC{2}, nil, false, u64(123))
	entry, _ = LookupIPv4Adjacent(addr)
	if entry.MAC != (netaddr.MAC{1}) {
		t.Fatal("permanent entry must never be replaced")
	}

	expiring := netaddr.IPv4FromArray([4]byte{10, 2, 2, 2})
	RegisterIPv4Adjacent(expiring, netaddr.MAC{3}, nil, false, u64(10))
	RegisterIPv4Adjacent(expiring, netaddr.MAC{4}, nil, false, u64(20))
	entry, _ = LookupIPv4Adjacent(expiring)
	if entry.MAC != (netaddr.MAC{4}) {
		t.Fatal("expiring entries should always be replaced by a fresh registration")
	}
}

func TestMACAddressTableRules(t *testing.T) {
	defer resetAdjacentTablesForTest()

	mac := netaddr.MAC{0xaa}
	RegisterMACAddress(mac, nil, true, nil)
	RegisterMACAddress(mac, nil, false, u64(5))

	entry, ok := LookupMACAddress(mac)
	if !ok {
		t.Fatal("expected entry")
	}
	if !entry.IsLocal {
		t.Fatal("permanent local entry must not be overwritten by a learned one")
	}
}

func resetIPv4FIBForTest() {
	v4mu.Lock()
	defer v4mu.Unlock()
	for i := range v4fib {
		v4fib[i] = make(map[netaddr.IPv4]IPv4Entry)
	}
}

func resetIPv6FIBForTest() {
	v6mu.Lock()
	defer v6mu.Unlock()
	for i := range v6fib {
		v6fib[i] = make(map[netaddr.IPv6]IPv6Entry)
	}
}

func resetAdjacentTablesForTest() {
	ipv4Adjacent.mu.Lock()
	ipv4Adjacent.entries = make(map[netaddr.IPv4]AdjacentInfo)
	ipv4Adjacent.mu.Unlock()

	ipv6Adjacent.mu.Lock()
	ipv6Adjacent.entries = make(map[netaddr.IPv6]AdjacentInfo)
	ipv6Adjacent.mu.Unlock()

	macAddrTable.mu.Lock()
	macAddrTable.entries = make(map[netaddr.MAC]AdjacentInfo)
	macAddrTable.mu.Unlock()
}
