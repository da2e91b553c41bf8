// Command urchind is the hosted demonstration harness: it wires the
// processing-node graph to real Linux TAP devices instead of virtio-net
// hardware, so the forwarding/ARP/ICMP pipeline can be driven end to end
// without a hypervisor. It is not the freestanding kernel entry point —
// that one boots as the kernel image itself and never runs as an ordinary
// Go binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urchin-kernel/urchin/internal/executor"
	"github.com/urchin-kernel/urchin/internal/fib"
	"github.com/urchin-kernel/urchin/internal/hostclock"
	"github.com/urchin-kernel/urchin/internal/hostconfig"
	"github.com/urchin-kernel/urchin/internal/hostnet"
	"github.com/urchin-kernel/urchin/internal/netif"
	"github.com/urchin-kernel/urchin/internal/procgraph"
	"golang.org/x/sync/errgroup"
)

func run() error {
	configPath := flag.String("config", "", "path to an interfaces YAML file (see internal/hostconfig)")
	tick := flag.Duration("tick", 50*time.Millisecond, "timer sweep / RX poll interval")
	debug := flag.Bool("debug", false, "enable debug-level logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *configPath == "" {
		return fmt.Errorf("urchind: -config is required")
	}
	cfg, err := hostconfig.LoadFile(*configPath)
	if err != nil {
		return err
	}
	if len(cfg.Interfaces) == 0 {
		return fmt.Errorf("urchind: config %q declares no interfaces", *configPath)
	}

	procgraph.Register()

	taps := make([]*hostnet.TapNetif, 0, len(cfg.Interfaces))
	for id, ifaceCfg := range cfg.Interfaces {
		parsed, err := ifaceCfg.Parse()
		if err != nil {
			return err
		}

		tap, err := hostnet.Open(id, parsed.Name, parsed.MAC)
		if err != nil {
			return fmt.Errorf("urchind: opening %q: %w", parsed.Name, err)
		}
		taps = append(taps, tap)

		netif.RegisterInterface(tap)
		fib.RegisterMACAddress(parsed.MAC, tap, true, nil)
		if parsed.HasIPv4 {
			fib.RegisterIPv4Adjacent(parsed.IPv4, parsed.MAC, tap, true, nil)
			fib.RegisterIPv4(parsed.IPv4, 0xffffffff, parsed.MAC, parsed.IPv4, tap, fib.Local)
		}
		if parsed.HasIPv6 {
			fib.RegisterIPv6Adjacent(parsed.IPv6, parsed.MAC, tap, true, nil)
			fib.RegisterIPv6(parsed.IPv6, 128, parsed.MAC, parsed.IPv6, tap, fib.Local)
		}

		slog.Info("urchind: interface up", "name", parsed.Name, "mac", parsed.MAC, "has_ipv4", parsed.HasIPv4, "has_ipv6", parsed.HasIPv6)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := hostclock.New()
	exec := executor.New()

	g, ctx := errgroup.WithContext(ctx)

	for _, tap := range taps {
		g.Go(func() error {
			ticker := time.NewTicker(*tick)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					tap.Recv(ctx)
				}
			}
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(*tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				executor.CheckExpired(clk)
				exec.Run()
			}
		}
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("urchind: %w", err)
	}

	for _, tap := range taps {
		if err := tap.Close(); err != nil {
			slog.Warn("urchind: closing tap", "error", err)
		}
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "urchind: %v\n", err)
		os.Exit(1)
	}
}
