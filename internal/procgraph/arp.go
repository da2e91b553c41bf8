package procgraph

import (
	"github.com/urchin-kernel/urchin/internal/fib"
	"github.com/urchin-kernel/urchin/internal/netif"
)

// ArpIn resolves ARP requests addressed to a locally owned IPv4 address and
// learns every sender it observes, request or reply, into the v4 FIB and
// adjacency table.
type ArpIn struct{}

func (ArpIn) Process(batch []netif.DataFromNetif) {
	for _, frame := range batch {
		slice := frame.Buffer.Slice()
		if len(slice) < ethHdrLen+arpHdrLen {
			continue
		}
		pkt := slice[ethHdrLen:]

		senderMAC := arpSenderMAC(pkt)
		senderIP := arpSenderIP(pkt)
		fib.RegisterIPv4(senderIP, 0xffffffff, senderMAC, senderIP, frame.Netif, fib.AdjacentResolved)
		fib.RegisterIPv4Adjacent(senderIP, senderMAC, frame.Netif, false, nil)

		targetIP := arpTargetIP(pkt)
		adj, ok := fib.LookupIPv4Adjacent(targetIP)
		if !ok || !adj.IsLocal {
			continue
		}
		if arpOper(pkt) != arpOperRequest {
			continue
		}

		replyBuf, err := adj.Netif.PreXmit(ethHdrLen + arpHdrLen)
		if err != nil {
			continue
		}
		out := replyBuf.Slice()
		writeEtherHeader(out, adj.Netif.MACAddress(), senderMAC, etherTypeARP)
		writeARPPacket(out[ethHdrLen:], arpOperReply, adj.Netif.MACAddress(), targetIP, senderMAC, senderIP)
		_ = adj.Netif.Xmit(replyBuf)
	}
}
