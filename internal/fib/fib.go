// Package fib implements the forwarding database: the MAC address table,
// per-family adjacency tables, and the longest-prefix-match forwarding
// information bases for IPv4 and IPv6.
package fib

import (
	"github.com/urchin-kernel/urchin/internal/netaddr"
	"github.com/urchin-kernel/urchin/internal/netif"
	"github.com/urchin-kernel/urchin/internal/spinlock"
)

// Type classifies how a forwarding entry's next hop should be treated.
type Type int

const (
	Remote Type = iota
	Adjacent
	AdjacentResolved
	Local
)

// IPv4Entry is a forwarding entry in the IPv4 FIB.
type IPv4Entry struct {
	NexthopMAC     netaddr.MAC
	NexthopAddress netaddr.IPv4
	Netif          netif.Netif
	Type           Type
}

// IPv6Entry is a forwarding entry in the IPv6 FIB.
type IPv6Entry struct {
	NexthopMAC     netaddr.MAC
	NexthopAddress netaddr.IPv6
	Netif          netif.Netif
	Type           Type
}

const (
	ipv4Slots = 33
	ipv6Slots = 129
)

var (
	v4mu  spinlock.Spinlock
	v4fib [ipv4Slots]map[netaddr.IPv4]IPv4Entry

	v6mu  spinlock.Spinlock
	v6fib [ipv6Slots]map[netaddr.IPv6]IPv6Entry
)

func init() {
	for i := range v4fib {
		v4fib[i] = make(map[netaddr.IPv4]IPv4Entry)
	}
	for i := range v6fib {
		v6fib[i] = make(map[netaddr.IPv6]IPv6Entry)
	}
}

// maskToPrefixLen maps a dotted-quad-style netmask's 32-bit value to its
// prefix length. Masks that are not a contiguous run of leading ones are
// treated as /0, matching the original table-driven lookup's fallback.
func maskToPrefixLen(mask uint32) int {
	for p := 32; p >= 0; p-- {
		var want uint32
		if p > 0 {
			want = uint32(0xffffffff) << (32 - p)
		}
		if mask == want {
			return p
		}
	}
	return 0
}

// RegisterIPv4 installs a forwarding entry for ipAddr/mask. The slot is
// keyed by the masked address, so registering a prefix with host bits set
// lands on the same key lookups probe.
func RegisterIPv4(ipAddr netaddr.IPv4, mask uint32, nexthopMAC netaddr.MAC, nexthopAddr netaddr.IPv4, nif netif.Netif, typ Type) {
	idx := maskToPrefixLen(mask)
	v4mu.Lock()
	defer v4mu.Unlock()
	v4fib[idx][ipAddr.Masked(uint(idx))] = IPv4Entry{
		NexthopMAC:     nexthopMAC,
		NexthopAddress: nexthopAddr,
		Netif:          nif,
		Type:           typ,
	}
}

// FindIPv4 performs a longest-prefix-match lookup, starting at the prefix
// length implied by mask and descending toward /0 until a covering entry is
// found.
func FindIPv4(ipAddr netaddr.IPv4, mask uint32) (IPv4Entry, bool) {
	v4mu.Lock()
	defer v4mu.Unlock()
	for idx := maskToPrefixLen(mask); ; idx-- {
		if e, ok := v4fib[idx][ipAddr.Masked(uint(idx))]; ok {
			return e, true
		}
		if idx == 0 {
			break
		}
	}
	return IPv4Entry{}, false
}

// RegisterIPv6 installs a forwarding entry for ipAddr at the given prefix
// length, keyed by the masked address like RegisterIPv4.
func RegisterIPv6(ipAddr netaddr.IPv6, prefix uint, nexthopMAC netaddr.MAC, nexthopAddr netaddr.IPv6, nif netif.Netif, typ Type) {
	v6mu.Lock()
	defer v6mu.Unlock()
	v6fib[prefix][ipAddr.Masked(prefix)] = IPv6Entry{
		NexthopMAC:     nexthopMAC,
		NexthopAddress: nexthopAddr,
		Netif:          nif,
		Type:           typ,
	}
}

// FindIPv6 performs a longest-prefix-match lookup, starting at prefix and
// descending toward /0 until a covering entry is found.
func FindIPv6(ipAddr netaddr.IPv6, prefix uint) (IPv6Entry, bool) {
	v6mu.Lock()
	defer v6mu.Unlock()
	for idx := int(prefix); ; idx-- {
		if e, ok := v6fib[idx][ipAddr.Masked(uint(idx))]; ok {
			return e, true
		}
		if idx == 0 {
			break
		}
	}
	return IPv6Entry{}, false
}

// AdjacentInfo is a resolved or provisional link-layer neighbor: the result
// of ARP/NDP resolution or a statically configured local address.
type AdjacentInfo struct {
	MAC        netaddr.MAC
	Netif      netif.Netif
	IsLocal    bool
	ExpireTime *uint64 // nil means a permanent entry
}

type ipv4AdjacentTable struct {
	mu      spinlock.Spinlock
	entries map[netaddr.IPv4]AdjacentInfo
}

type ipv6AdjacentTable struct {
	mu      spinlock.Spinlock
	entries map[netaddr.IPv6]AdjacentInfo
}

type macTable struct {
	mu      spinlock.Spinlock
	entries map[netaddr.MAC]AdjacentInfo
}

var (
	ipv4Adjacent = ipv4AdjacentTable{entries: make(map[netaddr.IPv4]AdjacentInfo)}
	ipv6Adjacent = ipv6AdjacentTable{entries: make(map[netaddr.IPv6]AdjacentInfo)}
	macAddrTable = macTable{entries: make(map[netaddr.MAC]AdjacentInfo)}
)

// registerAdjacent implements the shared install-if-absent /
// replace-if-expiring / keep-if-permanent rule used by all three adjacency
// tables: a brand-new key is always installed; an existing permanent entry
// (ExpireTime == nil) is never overwritten; anything else is replaced.
func registerAdjacent[K comparable](mu *spinlock.Spinlock, table map[K]AdjacentInfo, key K, info AdjacentInfo) {
	mu.Lock()
	defer mu.Unlock()
	existing, ok := table[key]
	if ok && existing.ExpireTime == nil {
		return
	}
	table[key] = info
}

// RegisterIPv4Adjacent records a resolved or provisional IPv4 neighbor.
func RegisterIPv4Adjacent(ipAddr netaddr.IPv4, mac netaddr.MAC, nif netif.Netif, isLocal bool, expireTime *uint64) {
	registerAdjacent(&ipv4Adjacent.mu, ipv4Adjacent.entries, ipAddr, AdjacentInfo{MAC: mac, Netif: nif, IsLocal: isLocal, ExpireTime: expireTime})
}

// LookupIPv4Adjacent returns the adjacency entry for ipAddr, if any.
func LookupIPv4Adjacent(ipAddr netaddr.IPv4) (AdjacentInfo, bool) {
	ipv4Adjacent.mu.Lock()
	defer ipv4Adjacent.mu.Unlock()
	e, ok := ipv4Adjacent.entries[ipAddr]
	return e, ok
}

// RegisterIPv6Adjacent records a resolved or provisional IPv6 neighbor.
func RegisterIPv6Adjacent(ipAddr netaddr.IPv6, mac netaddr.MAC, nif netif.Netif, isLocal bool, expireTime *uint64) {
	registerAdjacent(&ipv6Adjacent.mu, ipv6Adjacent.entries, ipAddr, AdjacentInfo{MAC: mac, Netif: nif, IsLocal: isLocal, ExpireTime: expireTime})
}

// LookupIPv6Adjacent returns the adjacency entry for ipAddr, if any.
func LookupIPv6Adjacent(ipAddr netaddr.IPv6) (AdjacentInfo, bool) {
	ipv6Adjacent.mu.Lock()
	defer ipv6Adjacent.mu.Unlock()
	e, ok := ipv6Adjacent.entries[ipAddr]
	return e, ok
}

// RegisterMACAddress records a MAC address as reachable via nif, learned
// either from ingress traffic (isLocal == false) or from local interface
// configuration (isLocal == true). An entry registered with a nil
// expireTime is permanent and is never overwritten afterwards.
func RegisterMACAddress(mac netaddr.MAC, nif netif.Netif, isLocal bool, expireTime *uint64) {
	registerAdjacent(&macAddrTable.mu, macAddrTable.entries, mac, AdjacentInfo{MAC: mac, Netif: nif, IsLocal: isLocal, ExpireTime: expireTime})
}

// LookupMACAddress returns the learned-location entry for mac, if any.
func LookupMACAddress(mac netaddr.MAC) (AdjacentInfo, bool) {
	macAddrTable.mu.Lock()
	defer macAddrTable.mu.Unlock()
	e, ok := macAddrTable.entries[mac]
	return e, ok
}
