// Package netaddr implements the link- and network-layer address types
// shared across the forwarding database and the processing-node graph:
// MAC, IPv4, and IPv6 addresses, each kept both as a byte array and a
// packed integer for fast comparison and map-ordering.
package netaddr

import "fmt"

// Broadcast is the link-layer broadcast address.
var Broadcast = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// MAC is a 6-octet Ethernet hardware address.
type MAC [6]byte

// MACFromPacked reconstructs a MAC from its packed 64-bit form.
func MACFromPacked(packed uint64) MAC {
	var m MAC
	for i := range m {
		m[i] = byte(packed >> (8 * i))
	}
	return m
}

// Packed returns the address folded into a 64-bit value (low 48 bits
// used), suitable as a map key or for total ordering.
func (m MAC) Packed() uint64 {
	var packed uint64
	for i := 5; i >= 0; i-- {
		packed = packed<<8 | uint64(m[i])
	}
	return packed
}

// Less reports whether m sorts before other under the packed-value total
// order.
func (m MAC) Less(other MAC) bool {
	return m.Packed() < other.Packed()
}

// String renders the address as colon-separated hex, e.g. "02:aa:aa:aa:aa:01".
func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}
