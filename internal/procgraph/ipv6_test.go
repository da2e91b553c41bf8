package procgraph

import (
	"testing"

	"github.com/urchin-kernel/urchin/internal/fib"
	"github.com/urchin-kernel/urchin/internal/netaddr"
	"github.com/urchin-kernel/urchin/internal/netif"
	"gvisor.dev/gvisor/pkg/tcpip/checksum"
	"gvisor.dev/gvisor/pkg/tcpip/header"
)

func ipv6(bytes ...byte) netaddr.IPv6 {
	var arr [16]byte
	copy(arr[:], bytes)
	return netaddr.IPv6FromArray(arr)
}

// TestIcmpv6EchoReplySourcesFromTheRequestsDestination checks that the
// reply's source address is the address the echo request actually arrived
// on, not a fixed placeholder.
func TestIcmpv6EchoReplySourcesFromTheRequestsDestination(t *testing.T) {
	localMAC := mac(0x02, 0xee, 0xee, 0xee, 0xee, 0x01)
	peerMAC := mac(0x02, 0xaa, 0xaa, 0xaa, 0xaa, 0x20)
	localAddr := ipv6(0xfe, 0x80, 0, 0, 0, 0, 0, 0, 0, 0x16, 0x3e, 0xff, 0xfe, 0, 0, 0x01)
	peerAddr := ipv6(0xfe, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x99)
	body := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}

	nif := newFakeNetif(0, localMAC)

	payloadLen := icmpHdrLen + len(body)
	pkt := make([]byte, ethHdrLen+ipv6HdrLen+payloadLen)
	writeEtherHeader(pkt, peerMAC, localMAC, etherTypeIPv6)
	writeIPv6Header(pkt[ethHdrLen:], uint16(payloadLen), ipv6NextHdrICMPv6, peerAddr, localAddr)
	icmpReq := pkt[ethHdrLen+ipv6HdrLen:]
	writeICMPHeader(icmpReq, icmpv6EchoReqTy, 0, 0x5678, 0x0002)
	copy(icmpReq[icmpHdrLen:], body)
	icmpv6Checksum(peerAddr, localAddr, icmpReq)

	Icmpv6InLocal{}.Process([]netif.DataFromNetif{frame(nif, pkt)})

	if len(nif.xmitted) != 1 {
		t.Fatalf("expected one reply transmitted, got %d", len(nif.xmitted))
	}
	reply := nif.xmitted[0].Slice()

	ipHdr := reply[ethHdrLen:]
	if got := ipv6Src(ipHdr); !got.Equal(localAddr) {
		t.Fatalf("reply source = %v, want the request's destination %v", got, localAddr)
	}
	if got := ipv6Dst(ipHdr); !got.Equal(peerAddr) {
		t.Fatalf("reply destination = %v, want %v", got, peerAddr)
	}

	icmpReply := ipHdr[ipv6HdrLen:]
	if got := icmpType(icmpReply); got != icmpv6EchoRepTy {
		t.Fatalf("reply type = %#x, want %#x", got, icmpv6EchoRepTy)
	}
	if got := icmpIdentifier(icmpReply); got != 0x5678 {
		t.Fatalf("reply identifier = %#x, want 0x5678", got)
	}
	if got := icmpReply[icmpHdrLen:payloadLen]; string(got) != string(body) {
		t.Fatalf("reply body = %x, want %x", got, body)
	}

	pseudo := header.PseudoHeaderChecksum(header.ICMPv6ProtocolNumber, v6Addr(localAddr), v6Addr(peerAddr), uint16(payloadLen))
	if sum := checksum.Checksum(icmpReply[:payloadLen], pseudo); sum != 0xffff {
		t.Fatalf("icmpv6 checksum invalid, folded sum = %#x", sum)
	}
}

// TestIcmpv6NeighborAdvertisementWalksOptions checks Neighbor
// Advertisement parsing: the Target Link-Layer Address
// option is found by walking the option chain, not read from a fixed
// offset, so a leading option of a different type must not break parsing.
func TestIcmpv6NeighborAdvertisementWalksOptions(t *testing.T) {
	localMAC := mac(0x02, 0xee, 0xee, 0xee, 0xee, 0x02)
	peerMAC := mac(0x02, 0xaa, 0xaa, 0xaa, 0xaa, 0x21)
	advertiserAddr := ipv6(0xfe, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x42)
	targetAddr := advertiserAddr
	targetMAC := peerMAC

	nif := newFakeNetif(1, localMAC)

	// NA message: type/code/checksum/reserved (8 bytes), 16-byte target,
	// then a leading decoy option (type 1, source link-layer address,
	// which a fixed-offset parser would have misread as the target's MAC)
	// followed by the real target link-layer address option (type 2).
	decoyOpt := []byte{1, 1, 0, 0, 0, 0, 0, 0}
	tllaOpt := []byte{2, 1, 0, 0, 0, 0, 0, 0}
	copy(tllaOpt[2:], targetMAC[:])

	icmpv6 := make([]byte, 8+16+len(decoyOpt)+len(tllaOpt))
	targetArr := targetAddr.Array()
	copy(icmpv6[8:24], targetArr[:])
	copy(icmpv6[24:], decoyOpt)
	copy(icmpv6[24+len(decoyOpt):], tllaOpt)
	icmpv6[0] = icmpv6NeighAdv

	allNodesMulticast := ipv6(0xff, 0x02, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x01)
	pkt := make([]byte, ethHdrLen+ipv6HdrLen+len(icmpv6))
	writeEtherHeader(pkt, peerMAC, netaddr.Broadcast, etherTypeIPv6)
	writeIPv6Header(pkt[ethHdrLen:], uint16(len(icmpv6)), ipv6NextHdrICMPv6, advertiserAddr, allNodesMulticast)
	copy(pkt[ethHdrLen+ipv6HdrLen:], icmpv6)

	Icmpv6InLocal{}.Process([]netif.DataFromNetif{frame(nif, pkt)})

	entry, ok := fib.FindIPv6(targetAddr, 128)
	if !ok {
		t.Fatal("expected the advertised target to be registered in the v6 FIB")
	}
	if entry.Type != fib.AdjacentResolved {
		t.Fatalf("target FIB entry type = %v, want AdjacentResolved", entry.Type)
	}
	if entry.NexthopMAC != targetMAC {
		t.Fatalf("target FIB nexthop MAC = %v, want %v", entry.NexthopMAC, targetMAC)
	}
	adj, ok := fib.LookupIPv6Adjacent(targetAddr)
	if !ok || adj.MAC != targetMAC {
		t.Fatalf("expected the v6 adjacency table to record %v -> %v", targetAddr, targetMAC)
	}
}
