package procgraph

import (
	"encoding/binary"

	"github.com/urchin-kernel/urchin/internal/netaddr"
	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/checksum"
	"gvisor.dev/gvisor/pkg/tcpip/header"
)

// ipv4HeaderChecksum computes the RFC 1071 one's-complement checksum over
// the 20-byte header at the start of buf and
// writes the inverted result into the header's checksum field at
// ipv4ChecksumOff. buf must already have that field zeroed.
func ipv4HeaderChecksum(buf []byte) {
	sum := checksum.Checksum(buf[:ipv4HdrLen], 0)
	binary.BigEndian.PutUint16(buf[ipv4ChecksumOff:], ^sum)
}

// icmpv4Checksum computes the checksum over the whole icmp slice (type
// through payload, no pseudo-header) and writes it into icmp's
// checksum field. icmp's checksum field must already be zeroed.
func icmpv4Checksum(icmp []byte) {
	sum := checksum.Checksum(icmp, 0)
	binary.BigEndian.PutUint16(icmp[icmpChecksumOff:], ^sum)
}

func v6Addr(a netaddr.IPv6) tcpip.Address {
	return tcpip.AddrFrom16(a.Array())
}

// icmpv6Checksum computes the RFC 8200 §8.1 pseudo-header checksum (source
// and destination IPv6 addresses, upper-layer length, next-header=58)
// combined with the ICMPv6 message itself, and writes it into the message's
// checksum field. icmpv6's checksum field must already be zeroed.
func icmpv6Checksum(src, dst netaddr.IPv6, icmpv6 []byte) {
	pseudo := header.PseudoHeaderChecksum(header.ICMPv6ProtocolNumber, v6Addr(src), v6Addr(dst), uint16(len(icmpv6)))
	sum := checksum.Checksum(icmpv6, pseudo)
	binary.BigEndian.PutUint16(icmpv6[icmpChecksumOff:], ^sum)
}
