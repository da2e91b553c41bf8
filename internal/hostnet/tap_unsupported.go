//go:build !linux

package hostnet

import (
	"context"
	"errors"
	"log/slog"

	"github.com/urchin-kernel/urchin/internal/buffer"
	"github.com/urchin-kernel/urchin/internal/netaddr"
	"github.com/urchin-kernel/urchin/internal/netif"
)

// ErrUnsupported is returned by Open on platforms without a TAP device.
var ErrUnsupported = errors.New("hostnet: TAP devices are only supported on linux")

// TapNetif is an unimplemented stand-in on platforms without TAP support,
// kept so callers can build cmd/urchind everywhere even though the hosted
// demo mode only runs on linux. Every method other than the identity
// accessors and Recv (a no-op) fails with ErrUnsupported.
type TapNetif struct {
	id  int
	mac netaddr.MAC
}

// Option configures a TapNetif at construction time.
type Option func(*TapNetif)

// WithLogger overrides the default logger. It has no effect on this
// platform.
func WithLogger(log *slog.Logger) Option {
	return func(*TapNetif) {}
}

// Open always fails on this platform.
func Open(id int, name string, mac netaddr.MAC, opts ...Option) (*TapNetif, error) {
	return nil, ErrUnsupported
}

func (t *TapNetif) Close() error { return ErrUnsupported }

// PreXmit implements netif.Netif.
func (t *TapNetif) PreXmit(size int) (*buffer.Buffer, error) { return nil, ErrUnsupported }

// Xmit implements netif.Netif.
func (t *TapNetif) Xmit(buf *buffer.Buffer) error { return ErrUnsupported }

// Recv implements netif.Netif.
func (t *TapNetif) Recv(ctx context.Context) {}

// ID implements netif.Netif.
func (t *TapNetif) ID() int { return t.id }

// MACAddress implements netif.Netif.
func (t *TapNetif) MACAddress() netaddr.MAC { return t.mac }

// DriverName implements netif.Netif.
func (t *TapNetif) DriverName() string { return "hostnet-tap-unsupported" }

var _ netif.Netif = (*TapNetif)(nil)
