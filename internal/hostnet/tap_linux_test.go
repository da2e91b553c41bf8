//go:build linux

package hostnet

import (
	"testing"

	"github.com/urchin-kernel/urchin/internal/netaddr"
)

func checkTapAvailable(t testing.TB) *TapNetif {
	t.Helper()

	tap, err := Open(0, "urchin-test0", netaddr.MAC{0x02, 0xaa, 0xaa, 0xaa, 0xaa, 0x01})
	if err != nil {
		t.Skipf("TAP device not available: %v", err)
	}
	return tap
}

func TestOpenAndClose(t *testing.T) {
	tap := checkTapAvailable(t)
	if err := tap.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestXmitWritesFrameToTheInterface(t *testing.T) {
	tap := checkTapAvailable(t)
	defer tap.Close()

	buf, err := tap.PreXmit(14)
	if err != nil {
		t.Fatalf("PreXmit: %v", err)
	}
	frame := buf.Slice()
	copy(frame, []byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0x02, 0xaa, 0xaa, 0xaa, 0xaa, 0x01,
		0x08, 0x06,
	})

	if err := tap.Xmit(buf); err != nil {
		t.Fatalf("Xmit: %v", err)
	}
}

func TestIdentityAccessors(t *testing.T) {
	tap := checkTapAvailable(t)
	defer tap.Close()

	if tap.ID() != 0 {
		t.Fatalf("ID() = %d, want 0", tap.ID())
	}
	if tap.DriverName() == "" {
		t.Fatal("DriverName() returned an empty string")
	}
}
