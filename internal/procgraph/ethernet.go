package procgraph

import (
	"github.com/urchin-kernel/urchin/internal/fib"
	"github.com/urchin-kernel/urchin/internal/netaddr"
	"github.com/urchin-kernel/urchin/internal/netif"
)

// EthernetIn is the entry point for every received frame: it learns the
// sender's MAC address, decides whether the frame is addressed to this
// node, and classifies it by EtherType for the next stage.
type EthernetIn struct{}

func (EthernetIn) Process(batch []netif.DataFromNetif) {
	arpPkts := make([]netif.DataFromNetif, 0, len(batch))
	ipv4Pkts := make([]netif.DataFromNetif, 0, len(batch))
	ipv6Pkts := make([]netif.DataFromNetif, 0, len(batch))

	for _, frame := range batch {
		slice := frame.Buffer.Slice()
		if len(slice) < ethHdrLen {
			continue
		}

		fib.RegisterMACAddress(ethSource(slice), frame.Netif, false, nil)

		dst := ethDest(slice)
		switch {
		case dst == netaddr.Broadcast:
			// fall through to classification; multicast flooding / L2
			// switching to other ports is not implemented.
		default:
			adj, known := fib.LookupMACAddress(dst)
			if !known || !adj.IsLocal {
				// unknown or known-but-foreign destination: would be
				// switched to another port; not implemented.
				continue
			}
		}

		switch ethType(slice) {
		case etherTypeARP:
			arpPkts = append(arpPkts, frame)
		case etherTypeIPv4:
			ipv4Pkts = append(ipv4Pkts, frame)
		case etherTypeIPv6:
			ipv6Pkts = append(ipv6Pkts, frame)
		case etherTypeVLAN:
			// VLAN tagging is not supported; the frame is acknowledged
			// but not processed further.
		}
	}

	if len(arpPkts) > 0 {
		netif.Dispatch("arp-in", arpPkts)
	}
	if len(ipv4Pkts) > 0 {
		netif.Dispatch("ipv4-in", ipv4Pkts)
	}
	if len(ipv6Pkts) > 0 {
		netif.Dispatch("ipv6-in", ipv6Pkts)
	}
}
