package procgraph

import (
	"github.com/urchin-kernel/urchin/internal/fib"
	"github.com/urchin-kernel/urchin/internal/netif"
)

// Ipv6In is the IPv6 analogue of Ipv4In: FIB lookup at /128, routing
// locally-terminating ICMPv6 (next header 58) to icmpv6-in-local.
type Ipv6In struct{}

func (Ipv6In) Process(batch []netif.DataFromNetif) {
	icmpPkts := make([]netif.DataFromNetif, 0, len(batch))

	for _, frame := range batch {
		slice := frame.Buffer.Slice()
		if len(slice) < ethHdrLen+ipv6HdrLen {
			continue
		}
		pkt := slice[ethHdrLen:]
		if ipv6Version(pkt) != 6 {
			continue
		}

		entry, ok := fib.FindIPv6(ipv6Dst(pkt), 128)
		if !ok {
			continue
		}

		switch entry.Type {
		case fib.Local:
			if ipv6NextHeader(pkt) == ipv6NextHdrICMPv6 {
				icmpPkts = append(icmpPkts, frame)
			}
		case fib.Adjacent, fib.AdjacentResolved, fib.Remote:
			// forwarding not implemented
		}
	}

	if len(icmpPkts) > 0 {
		netif.Dispatch("icmpv6-in-local", icmpPkts)
	}
}

// Icmpv6InLocal answers ICMPv6 Echo Requests addressed to a local address
// and learns neighbors announced by Neighbor Advertisements.
type Icmpv6InLocal struct{}

func (Icmpv6InLocal) Process(batch []netif.DataFromNetif) {
	for _, frame := range batch {
		slice := frame.Buffer.Slice()
		if len(slice) < ethHdrLen+ipv6HdrLen+icmpHdrLen {
			continue
		}
		ipHdr := slice[ethHdrLen:]
		icmpv6 := ipHdr[ipv6HdrLen:]

		switch icmpType(icmpv6) {
		case icmpv6EchoReqTy:
			handleEchoRequest(frame, ipHdr, icmpv6)
		case icmpv6NeighAdv:
			handleNeighborAdvertisement(frame, icmpv6)
		}
	}
}

func handleEchoRequest(frame netif.DataFromNetif, ipHdr, icmpv6 []byte) {
	payloadLen := int(ipv6PayloadLength(ipHdr))
	if payloadLen < icmpHdrLen || ipv6HdrLen+payloadLen > len(ipHdr) {
		return
	}

	replyLen := ethHdrLen + ipv6HdrLen + payloadLen
	replyBuf, err := frame.Netif.PreXmit(replyLen)
	if err != nil {
		return
	}
	out := replyBuf.Slice()

	// The reply sources from the address the request was addressed to.
	srcAddr := ipv6Dst(ipHdr)
	dstAddr := ipv6Src(ipHdr)

	writeEtherHeader(out, frame.Netif.MACAddress(), ethSource(frame.Buffer.Slice()), etherTypeIPv6)
	writeIPv6Header(out[ethHdrLen:], uint16(payloadLen), ipv6NextHdrICMPv6, srcAddr, dstAddr)

	icmpOut := out[ethHdrLen+ipv6HdrLen:]
	writeICMPHeader(icmpOut, icmpv6EchoRepTy, icmpCode(icmpv6), icmpIdentifier(icmpv6), icmpSequence(icmpv6))
	copy(icmpOut[icmpHdrLen:payloadLen], icmpv6[icmpHdrLen:payloadLen])

	icmpv6Checksum(srcAddr, dstAddr, icmpOut[:payloadLen])

	_ = frame.Netif.Xmit(replyBuf)
}

func handleNeighborAdvertisement(frame netif.DataFromNetif, icmpv6 []byte) {
	target, mac, ok := neighborAdvertisementTarget(icmpv6)
	if !ok {
		return
	}
	fib.RegisterIPv6(target, 128, mac, target, frame.Netif, fib.AdjacentResolved)
	fib.RegisterIPv6Adjacent(target, mac, frame.Netif, false, nil)
}
