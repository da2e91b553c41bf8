//go:build linux

// Package hostnet implements a netif.Netif backed by a Linux TAP device, so
// the processing-node graph can be driven end to end against a real host
// network namespace instead of a virtio device, for the hosted demo binary.
package hostnet

import (
	"context"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/urchin-kernel/urchin/internal/buffer"
	"github.com/urchin-kernel/urchin/internal/netaddr"
	"github.com/urchin-kernel/urchin/internal/netif"
	"golang.org/x/sys/unix"
)

const maxFrameSize = 65536

type ifReq struct {
	name  [unix.IFNAMSIZ]byte
	flags uint16
	_     [40 - unix.IFNAMSIZ - 2]byte
}

// TapNetif is a netif.Netif backed by a Linux /dev/net/tun device opened in
// TAP mode: it exchanges raw Ethernet frames with whatever the host's
// networking stack routes onto the interface.
type TapNetif struct {
	id  int
	fd  int
	mac netaddr.MAC
	log *slog.Logger
}

// Option configures a TapNetif at construction time.
type Option func(*TapNetif)

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(t *TapNetif) { t.log = log }
}

// Open creates (or attaches to) the named TAP interface and returns a
// TapNetif ready to register with the processing-node graph. mac is the
// link-layer address reported to the graph; the kernel TAP device itself
// has no notion of our logical MAC.
func Open(id int, name string, mac netaddr.MAC, opts ...Option) (*TapNetif, error) {
	fd, err := unix.Open("/dev/net/tun", unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("hostnet: open /dev/net/tun: %w", err)
	}

	var ifr ifReq
	copy(ifr.name[:unix.IFNAMSIZ-1], name)
	ifr.flags = unix.IFF_TAP | unix.IFF_NO_PI

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(unix.TUNSETIFF), uintptr(unsafe.Pointer(&ifr))); errno != 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("hostnet: TUNSETIFF %q: %w", name, errno)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("hostnet: set nonblocking: %w", err)
	}

	t := &TapNetif{id: id, fd: fd, mac: mac, log: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Close releases the underlying file descriptor.
func (t *TapNetif) Close() error {
	return unix.Close(t.fd)
}

// PreXmit implements netif.Netif.
func (t *TapNetif) PreXmit(size int) (*buffer.Buffer, error) {
	buf, err := buffer.New(size, 1)
	if err != nil {
		return nil, fmt.Errorf("hostnet: pre_xmit: %w", err)
	}
	return buf, nil
}

// Xmit implements netif.Netif: it writes the frame straight to the TAP
// device. The buffer's reference is always consumed.
func (t *TapNetif) Xmit(buf *buffer.Buffer) error {
	defer buf.Release()

	if _, err := unix.Write(t.fd, buf.Slice()); err != nil {
		return fmt.Errorf("%w: %v", netif.ErrTransmit, err)
	}
	return nil
}

// Recv implements netif.Netif. It drains every frame currently queued on
// the TAP device (non-blocking reads until EAGAIN) and dispatches them as
// ethernet-in work, one batch per call.
func (t *TapNetif) Recv(ctx context.Context) {
	var batch []netif.DataFromNetif

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		scratch := make([]byte, maxFrameSize)
		n, err := unix.Read(t.fd, scratch)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				break
			}
			t.log.Warn("hostnet: tap read failed", "error", err)
			break
		}
		if n == 0 {
			break
		}

		buf, err := buffer.New(n, 1)
		if err != nil {
			t.log.Warn("hostnet: dropping frame, buffer allocation failed", "error", err)
			continue
		}
		copy(buf.Slice(), scratch[:n])
		batch = append(batch, netif.DataFromNetif{Netif: t, Buffer: buf})
	}

	if len(batch) > 0 {
		netif.Dispatch("ethernet-in", batch)
		for _, data := range batch {
			data.Buffer.Release()
		}
	}
}

// ID implements netif.Netif.
func (t *TapNetif) ID() int { return t.id }

// MACAddress implements netif.Netif.
func (t *TapNetif) MACAddress() netaddr.MAC { return t.mac }

// DriverName implements netif.Netif.
func (t *TapNetif) DriverName() string { return "hostnet-tap" }

var _ netif.Netif = (*TapNetif)(nil)
