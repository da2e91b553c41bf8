package procgraph

import "github.com/urchin-kernel/urchin/internal/netif"

// Register installs every processing node in this package into the global
// node registry under its well-known name, the same set of names
// EthernetIn/Ipv4In/Ipv6In dispatch to downstream. Boot wiring calls this
// once before any interface starts receiving traffic.
func Register() {
	netif.RegisterNode("ethernet-in", EthernetIn{})
	netif.RegisterNode("arp-in", ArpIn{})
	netif.RegisterNode("ipv4-in", Ipv4In{})
	netif.RegisterNode("icmpv4-in-local", Icmpv4InLocal{})
	netif.RegisterNode("ipv6-in", Ipv6In{})
	netif.RegisterNode("icmpv6-in-local", Icmpv6InLocal{})
}
