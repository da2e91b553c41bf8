package procgraph

import (
	"context"

	"github.com/urchin-kernel/urchin/internal/buffer"
	"github.com/urchin-kernel/urchin/internal/netaddr"
	"github.com/urchin-kernel/urchin/internal/netif"
)

// Register the real node graph once so tests that exercise EthernetIn can
// dispatch all the way down to a terminal node (icmpv4-in-local,
// icmpv6-in-local) instead of each test having to wire the chain by hand.
func init() {
	Register()
}

// fakeNetif is a minimal netif.Netif used across this package's tests: it
// records every buffer handed to Xmit instead of touching any real
// transport.
type fakeNetif struct {
	id  int
	mac netaddr.MAC

	xmitted []*buffer.Buffer
}

func newFakeNetif(id int, mac netaddr.MAC) *fakeNetif {
	return &fakeNetif{id: id, mac: mac}
}

func (f *fakeNetif) PreXmit(size int) (*buffer.Buffer, error) {
	return buffer.New(size, 1)
}

func (f *fakeNetif) Xmit(buf *buffer.Buffer) error {
	f.xmitted = append(f.xmitted, buf)
	return nil
}

func (f *fakeNetif) Recv(ctx context.Context) {}

func (f *fakeNetif) ID() int                   { return f.id }
func (f *fakeNetif) MACAddress() netaddr.MAC   { return f.mac }
func (f *fakeNetif) DriverName() string        { return "fake" }

// frame wraps raw bytes in a buffer.Buffer and a netif.DataFromNetif
// envelope, as if it had just arrived from nif.
func frame(nif netif.Netif, data []byte) netif.DataFromNetif {
	buf, err := buffer.New(len(data), 1)
	if err != nil {
		panic(err)
	}
	copy(buf.Slice(), data)
	return netif.DataFromNetif{Netif: nif, Buffer: buf}
}

func mac(b0, b1, b2, b3, b4, b5 byte) netaddr.MAC {
	return netaddr.MAC{b0, b1, b2, b3, b4, b5}
}

func ipv4(a, b, c, d byte) netaddr.IPv4 {
	return netaddr.IPv4FromArray([4]byte{a, b, c, d})
}
