// Package procgraph implements the packet-processing node graph: Ethernet
// ingress, ARP, IPv4/ICMPv4, and IPv6/ICMPv6 local termination. Each node
// implements netif.ProcessingNode and is looked up by name from the global
// node registry in internal/netif.
package procgraph

import (
	"encoding/binary"

	"github.com/urchin-kernel/urchin/internal/netaddr"
	"gvisor.dev/gvisor/pkg/tcpip/header"
)

// Field offsets and fixed lengths for the wire formats this graph reads and
// writes. Every accessor below works on a plain []byte slice rather than an
// unsafe-cast struct overlay — the fields are all big-endian, so a cast
// through a little-endian host's native integer types would silently
// transpose multi-byte fields (see the ARP opcode/ethertype handling in the
// node implementations for where that distinction matters).
const (
	ethDstOff  = 0
	ethSrcOff  = 6
	ethTypeOff = 12
	ethHdrLen  = header.EthernetMinimumSize // 14

	etherTypeARP  = 0x0806
	etherTypeIPv4 = 0x0800
	etherTypeVLAN = 0x8100
	etherTypeIPv6 = 0x86dd

	arpHdrLen  = header.ARPSize // 28
	arpOperOff = 6
	arpSHAOff  = 8
	arpSPAOff  = 14
	arpTHAOff  = 18
	arpTPAOff  = 22

	arpOperRequest = 1
	arpOperReply   = 2

	ipv4HdrLen       = header.IPv4MinimumSize // 20
	ipv4VerIHLOff    = 0
	ipv4TotalLenOff  = 2
	ipv4FlagsFragOff = 6
	ipv4TTLOff       = 8
	ipv4ProtoOff     = 9
	ipv4ChecksumOff  = 10
	ipv4SrcOff       = 12
	ipv4DstOff       = 16

	ipv4ProtoICMP = 1

	icmpHdrLen       = header.ICMPv4MinimumSize // 8
	icmpTypeOff      = 0
	icmpCodeOff      = 1
	icmpChecksumOff  = 2
	icmpIdentOff     = 4
	icmpSequenceOff  = 6
	icmpEchoRequest  = 8
	icmpEchoReply    = 0
	icmpv6EchoReqTy  = 128
	icmpv6EchoRepTy  = 129
	icmpv6NeighAdv   = 136

	ipv6HdrLen      = header.IPv6MinimumSize // 40
	ipv6VerTCOff    = 0
	ipv6PayloadOff  = 4
	ipv6NextHdrOff  = 6
	ipv6HopLimitOff = 7
	ipv6SrcOff      = 8
	ipv6DstOff      = 24

	ipv6NextHdrICMPv6 = 58

	naTargetOff    = 8 // relative to the ICMPv6 message start
	naTargetLen    = 16
	naOptTypeOff   = naTargetOff + naTargetLen
	naOptTargetLLA = 2
)

func ethDest(frame []byte) netaddr.MAC { return macAt(frame, ethDstOff) }
func ethSource(frame []byte) netaddr.MAC { return macAt(frame, ethSrcOff) }
func ethType(frame []byte) uint16 { return binary.BigEndian.Uint16(frame[ethTypeOff:]) }

func macAt(b []byte, off int) netaddr.MAC {
	var m netaddr.MAC
	copy(m[:], b[off:off+6])
	return m
}

func putMAC(b []byte, off int, m netaddr.MAC) {
	copy(b[off:off+6], m[:])
}

// writeEtherHeader writes a 14-byte Ethernet header at buf[0:14].
func writeEtherHeader(buf []byte, src, dst netaddr.MAC, etherType uint16) {
	putMAC(buf, ethDstOff, dst)
	putMAC(buf, ethSrcOff, src)
	binary.BigEndian.PutUint16(buf[ethTypeOff:], etherType)
}

func arpOper(pkt []byte) uint16        { return binary.BigEndian.Uint16(pkt[arpOperOff:]) }
func arpSenderMAC(pkt []byte) netaddr.MAC { return macAt(pkt, arpSHAOff) }
func arpSenderIP(pkt []byte) netaddr.IPv4 {
	var a [4]byte
	copy(a[:], pkt[arpSPAOff:arpSPAOff+4])
	return netaddr.IPv4FromArray(a)
}
func arpTargetIP(pkt []byte) netaddr.IPv4 {
	var a [4]byte
	copy(a[:], pkt[arpTPAOff:arpTPAOff+4])
	return netaddr.IPv4FromArray(a)
}

// writeARPPacket writes a 28-byte ARP packet at buf[0:28].
func writeARPPacket(buf []byte, oper uint16, srcMAC netaddr.MAC, srcIP netaddr.IPv4, dstMAC netaddr.MAC, dstIP netaddr.IPv4) {
	binary.BigEndian.PutUint16(buf[0:], 1)      // htype: Ethernet
	binary.BigEndian.PutUint16(buf[2:], 0x0800) // ptype: IPv4
	buf[4] = 6                                  // hlen
	buf[5] = 4                                  // plen
	binary.BigEndian.PutUint16(buf[arpOperOff:], oper)
	putMAC(buf, arpSHAOff, srcMAC)
	srcArr := srcIP.Array()
	copy(buf[arpSPAOff:arpSPAOff+4], srcArr[:])
	putMAC(buf, arpTHAOff, dstMAC)
	dstArr := dstIP.Array()
	copy(buf[arpTPAOff:arpTPAOff+4], dstArr[:])
}

func ipv4Version(pkt []byte) uint8 { return pkt[ipv4VerIHLOff] >> 4 }
func ipv4IHL(pkt []byte) int       { return int(pkt[ipv4VerIHLOff]&0x0f) * 4 }
func ipv4TotalLength(pkt []byte) uint16 {
	return binary.BigEndian.Uint16(pkt[ipv4TotalLenOff:])
}
func ipv4Proto(pkt []byte) uint8 { return pkt[ipv4ProtoOff] }
func ipv4Src(pkt []byte) netaddr.IPv4 {
	var a [4]byte
	copy(a[:], pkt[ipv4SrcOff:ipv4SrcOff+4])
	return netaddr.IPv4FromArray(a)
}
func ipv4Dst(pkt []byte) netaddr.IPv4 {
	var a [4]byte
	copy(a[:], pkt[ipv4DstOff:ipv4DstOff+4])
	return netaddr.IPv4FromArray(a)
}

// writeIPv4Header writes a 20-byte IPv4 header (no options) at buf[0:20]
// with the checksum field zeroed; the caller fills it in afterward.
func writeIPv4Header(buf []byte, totalLen uint16, proto uint8, src, dst netaddr.IPv4) {
	buf[ipv4VerIHLOff] = 0x45
	buf[1] = 0 // tos
	binary.BigEndian.PutUint16(buf[ipv4TotalLenOff:], totalLen)
	binary.BigEndian.PutUint16(buf[4:], 0) // identification
	binary.BigEndian.PutUint16(buf[ipv4FlagsFragOff:], 0x4000) // don't-fragment
	buf[ipv4TTLOff] = 64
	buf[ipv4ProtoOff] = proto
	binary.BigEndian.PutUint16(buf[ipv4ChecksumOff:], 0)
	srcArr, dstArr := src.Array(), dst.Array()
	copy(buf[ipv4SrcOff:ipv4SrcOff+4], srcArr[:])
	copy(buf[ipv4DstOff:ipv4DstOff+4], dstArr[:])
}

func icmpType(pkt []byte) uint8       { return pkt[icmpTypeOff] }
func icmpCode(pkt []byte) uint8       { return pkt[icmpCodeOff] }
func icmpIdentifier(pkt []byte) uint16 { return binary.BigEndian.Uint16(pkt[icmpIdentOff:]) }
func icmpSequence(pkt []byte) uint16   { return binary.BigEndian.Uint16(pkt[icmpSequenceOff:]) }

// writeICMPHeader writes the common 8-byte type/code/checksum/id/seq prefix
// shared by ICMPv4 and ICMPv6 echo messages, with checksum zeroed.
func writeICMPHeader(buf []byte, icmpType, code uint8, identifier, sequence uint16) {
	buf[icmpTypeOff] = icmpType
	buf[icmpCodeOff] = code
	binary.BigEndian.PutUint16(buf[icmpChecksumOff:], 0)
	binary.BigEndian.PutUint16(buf[icmpIdentOff:], identifier)
	binary.BigEndian.PutUint16(buf[icmpSequenceOff:], sequence)
}

func ipv6Version(pkt []byte) uint8       { return pkt[ipv6VerTCOff] >> 4 }
func ipv6PayloadLength(pkt []byte) uint16 { return binary.BigEndian.Uint16(pkt[ipv6PayloadOff:]) }
func ipv6NextHeader(pkt []byte) uint8    { return pkt[ipv6NextHdrOff] }
func ipv6Src(pkt []byte) netaddr.IPv6 {
	var a [16]byte
	copy(a[:], pkt[ipv6SrcOff:ipv6SrcOff+16])
	return netaddr.IPv6FromArray(a)
}
func ipv6Dst(pkt []byte) netaddr.IPv6 {
	var a [16]byte
	copy(a[:], pkt[ipv6DstOff:ipv6DstOff+16])
	return netaddr.IPv6FromArray(a)
}

// writeIPv6Header writes a 40-byte IPv6 header at buf[0:40].
func writeIPv6Header(buf []byte, payloadLen uint16, nextHdr uint8, src, dst netaddr.IPv6) {
	buf[ipv6VerTCOff] = 0x60
	buf[1] = 0 // traffic class cont'd / flow label
	buf[2] = 0
	buf[3] = 0
	binary.BigEndian.PutUint16(buf[ipv6PayloadOff:], payloadLen)
	buf[ipv6NextHdrOff] = nextHdr
	buf[ipv6HopLimitOff] = 0x80
	srcArr, dstArr := src.Array(), dst.Array()
	copy(buf[ipv6SrcOff:ipv6SrcOff+16], srcArr[:])
	copy(buf[ipv6DstOff:ipv6DstOff+16], dstArr[:])
}

// neighborAdvertisementTarget walks the ICMPv6 option chain of a Neighbor
// Advertisement message (icmpv6 payload starting at icmp[0]) looking for a
// Target Link-Layer Address option (type 2), returning the target address
// carried in the fixed NA header and the MAC carried in that option. ok is
// false if the message is truncated or carries no such option.
func neighborAdvertisementTarget(icmpv6 []byte) (target netaddr.IPv6, mac netaddr.MAC, ok bool) {
	if len(icmpv6) < naTargetOff+naTargetLen {
		return netaddr.IPv6{}, netaddr.MAC{}, false
	}
	var targetArr [16]byte
	copy(targetArr[:], icmpv6[naTargetOff:naTargetOff+naTargetLen])
	target = netaddr.IPv6FromArray(targetArr)

	for off := naOptTypeOff; off+8 <= len(icmpv6); {
		optType := icmpv6[off]
		optLenWords := int(icmpv6[off+1])
		if optLenWords == 0 {
			break
		}
		optLen := optLenWords * 8
		if off+optLen > len(icmpv6) {
			break
		}
		if optType == naOptTargetLLA && optLen >= 8 {
			var m netaddr.MAC
			copy(m[:], icmpv6[off+2:off+8])
			return target, m, true
		}
		off += optLen
	}
	return netaddr.IPv6{}, netaddr.MAC{}, false
}
