package procgraph

import (
	"github.com/urchin-kernel/urchin/internal/fib"
	"github.com/urchin-kernel/urchin/internal/netif"
)

// Ipv4In looks up each packet's destination in the v4 FIB and routes
// locally-terminating ICMP traffic to icmpv4-in-local. Adjacent,
// AdjacentResolved, and Remote entries are acknowledged but not forwarded;
// forwarding is a planned extension.
type Ipv4In struct{}

func (Ipv4In) Process(batch []netif.DataFromNetif) {
	icmpPkts := make([]netif.DataFromNetif, 0, len(batch))

	for _, frame := range batch {
		slice := frame.Buffer.Slice()
		if len(slice) < ethHdrLen+ipv4HdrLen {
			continue
		}
		pkt := slice[ethHdrLen:]
		if ipv4Version(pkt) != 4 {
			continue
		}

		entry, ok := fib.FindIPv4(ipv4Dst(pkt), 0xffffffff)
		if !ok {
			continue
		}

		switch entry.Type {
		case fib.Local:
			if ipv4Proto(pkt) == ipv4ProtoICMP {
				icmpPkts = append(icmpPkts, frame)
			}
		case fib.Adjacent, fib.AdjacentResolved, fib.Remote:
			// forwarding not implemented
		}
	}

	if len(icmpPkts) > 0 {
		netif.Dispatch("icmpv4-in-local", icmpPkts)
	}
}

// Icmpv4InLocal answers ICMPv4 Echo Requests addressed to a local address.
type Icmpv4InLocal struct{}

func (Icmpv4InLocal) Process(batch []netif.DataFromNetif) {
	for _, frame := range batch {
		slice := frame.Buffer.Slice()
		if len(slice) < ethHdrLen+ipv4HdrLen {
			continue
		}
		ipHdr := slice[ethHdrLen:]
		ihl := ipv4IHL(ipHdr)
		if len(ipHdr) < ihl+icmpHdrLen {
			continue
		}
		icmpReq := ipHdr[ihl:]
		if icmpType(icmpReq) != icmpEchoRequest {
			continue
		}

		totalLen := int(ipv4TotalLength(ipHdr))
		icmpLen := totalLen - ihl
		if icmpLen < icmpHdrLen || ihl+icmpLen > len(ipHdr) {
			continue
		}

		replyLen := ethHdrLen + ipv4HdrLen + icmpLen
		replyBuf, err := frame.Netif.PreXmit(replyLen)
		if err != nil {
			continue
		}
		out := replyBuf.Slice()

		writeEtherHeader(out, frame.Netif.MACAddress(), ethSource(slice), etherTypeIPv4)
		writeIPv4Header(out[ethHdrLen:], uint16(ipv4HdrLen+icmpLen), ipv4ProtoICMP, ipv4Dst(ipHdr), ipv4Src(ipHdr))

		icmpOut := out[ethHdrLen+ipv4HdrLen:]
		writeICMPHeader(icmpOut, icmpEchoReply, 0, icmpIdentifier(icmpReq), icmpSequence(icmpReq))
		copy(icmpOut[icmpHdrLen:icmpLen], icmpReq[icmpHdrLen:icmpLen])

		icmpv4Checksum(icmpOut[:icmpLen])
		ipv4HeaderChecksum(out[ethHdrLen : ethHdrLen+ipv4HdrLen])

		_ = frame.Netif.Xmit(replyBuf)
	}
}
