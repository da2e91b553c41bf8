// Package netif defines the boundary between network interface drivers and
// the processing-node graph: the Netif and ProcessingNode interfaces, the
// per-packet envelope handed between them, and the two global registries
// (named interfaces and named nodes) that wiring code populates at boot.
package netif

import (
	"context"
	"errors"
	"sync"

	"github.com/urchin-kernel/urchin/internal/buffer"
	"github.com/urchin-kernel/urchin/internal/netaddr"
)

// ErrTransmit is returned by Netif.Xmit when the underlying device rejects
// or fails to send a buffer.
var ErrTransmit = errors.New("netif: transmit failed")

// Netif is implemented by every network interface driver (virtio-net, a
// hosted TAP backend, ...). Implementations must be safe for concurrent use
// from both interrupt-context callbacks and task code.
type Netif interface {
	// PreXmit reserves a transmit buffer of at least size bytes, positioned
	// so the caller can write its payload starting at buffer offset 0.
	PreXmit(size int) (*buffer.Buffer, error)

	// Xmit submits a buffer obtained from PreXmit for transmission. The
	// buffer's reference is consumed whether or not an error is returned.
	Xmit(buf *buffer.Buffer) error

	// Recv drains one round of received buffers into the graph, or is a
	// no-op when polled with nothing pending.
	Recv(ctx context.Context)

	ID() int
	MACAddress() netaddr.MAC
	DriverName() string
}

// DataFromNetif pairs a received (or to-be-replied-on) buffer with the
// interface it arrived on or should be sent from.
type DataFromNetif struct {
	Netif  Netif
	Buffer *buffer.Buffer
}

// ProcessingNode is a stateless step in the packet-processing graph. Process
// consumes a batch of envelopes; nodes dispatch further work by looking up
// downstream nodes in the node registry by name.
type ProcessingNode interface {
	Process(batch []DataFromNetif)
}

var (
	nodesMu sync.RWMutex
	nodes   = map[string]ProcessingNode{}

	ifacesMu sync.RWMutex
	ifaces   []Netif
)

// RegisterNode adds a processing node to the global registry under name,
// overwriting any previous registration with the same name.
func RegisterNode(name string, node ProcessingNode) {
	nodesMu.Lock()
	defer nodesMu.Unlock()
	nodes[name] = node
}

// Node looks up a processing node by name. ok is false if no node is
// registered under that name.
func Node(name string) (ProcessingNode, bool) {
	nodesMu.RLock()
	defer nodesMu.RUnlock()
	n, ok := nodes[name]
	return n, ok
}

// Dispatch looks up name and, if present, calls Process on the batch. It is
// a no-op if the node does not exist, matching the boot sequence's ordering
// tolerance (a node may be registered after some traffic has already been
// seen, e.g. during staged bring-up).
func Dispatch(name string, batch []DataFromNetif) {
	if n, ok := Node(name); ok && n != nil {
		n.Process(batch)
	}
}

// RegisterInterface appends netif to the global interface list.
func RegisterInterface(nif Netif) {
	ifacesMu.Lock()
	defer ifacesMu.Unlock()
	ifaces = append(ifaces, nif)
}

// Interfaces returns a snapshot of the registered interfaces.
func Interfaces() []Netif {
	ifacesMu.RLock()
	defer ifacesMu.RUnlock()
	out := make([]Netif, len(ifaces))
	copy(out, ifaces)
	return out
}
