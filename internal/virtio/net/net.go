// Package net implements the virtio-net driver: device bring-up (reset,
// feature negotiation, queue setup), RX buffer refill, and the Netif
// implementation the processing-node graph transmits and receives through.
package net

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urchin-kernel/urchin/internal/buffer"
	"github.com/urchin-kernel/urchin/internal/clock"
	"github.com/urchin-kernel/urchin/internal/cpu"
	"github.com/urchin-kernel/urchin/internal/netaddr"
	"github.com/urchin-kernel/urchin/internal/netif"
	"github.com/urchin-kernel/urchin/internal/spinlock"
	"github.com/urchin-kernel/urchin/internal/virtio"
)

const (
	align = 4096

	rxQueue = 0
	txQueue = 1
	ctrlQueue = 2

	rxRefillThreshold = 32
)

// Driver is the virtio-net driver. It implements both netif.Netif (so the
// processing graph can transmit through it) and interrupt.Interruptable
// (so the interrupt dispatcher can deliver its IRQ).
type Driver struct {
	id int

	dev    virtio.Device
	queues [3]queueSlot

	mac netaddr.MAC

	flagGuestTSO4     bool
	flagGuestUFO      bool
	flagMergeableRx   bool
}

type queueSlot struct {
	lock  spinlock.Spinlock
	queue *virtio.VirtQueue
}

// New brings up a virtio-net device already discovered at the transport
// level (dev must report DeviceType() == virtio.DeviceTypeNet). src
// supplies the monotonic clock used to synthesize a locally-administered
// MAC address when the device doesn't offer one.
func New(id int, dev virtio.Device, src clock.Source) (*Driver, error) {
	if dev.DeviceType() != virtio.DeviceTypeNet {
		return nil, fmt.Errorf("virtio/net: device type %#x is not virtio-net", dev.DeviceType())
	}

	dev.SetStatus(0)
	dev.SetStatus(dev.Status() | virtio.StatusAcknowledge)
	dev.SetStatus(dev.Status() | virtio.StatusDriver)

	devFeatures := dev.AvailableFeatures()
	driverFeatures := virtio.DriverFeaturesCommon | virtio.DriverFeaturesNet
	subset := devFeatures & driverFeatures

	flagMAC := subset&(1<<virtio.NetFeatureMAC) != 0
	flagGuestTSO4 := subset&(1<<virtio.NetFeatureGuestTSO4) != 0
	flagGuestUFO := subset&(1<<virtio.NetFeatureGuestUFO) != 0
	flagMergeableRx := subset&(1<<virtio.NetFeatureMrgRxbuf) != 0

	dev.SetEnabledFeatures(subset)
	dev.SetStatus(dev.Status() | virtio.StatusFeaturesOK)
	if dev.Status()&virtio.StatusFeaturesOK == 0 {
		return nil, fmt.Errorf("virtio/net: device rejected feature subset %#x", subset)
	}

	mac := deriveMAC(dev, flagMAC, src)

	d := &Driver{
		id:              id,
		dev:             dev,
		mac:             mac,
		flagGuestTSO4:   flagGuestTSO4,
		flagGuestUFO:    flagGuestUFO,
		flagMergeableRx: flagMergeableRx,
	}

	if err := d.setupQueue(rxQueue, true); err != nil {
		return nil, err
	}
	if err := d.setupQueue(txQueue, false); err != nil {
		return nil, err
	}
	if err := d.setupQueue(ctrlQueue, true); err != nil {
		return nil, err
	}

	d.prefillRX()

	dev.SetStatus(dev.Status() | virtio.StatusDriverOK)

	return d, nil
}

func (d *Driver) setupQueue(idx int, needInterrupt bool) error {
	d.dev.SelectQueue(uint32(idx))
	size := d.dev.QueueSize()

	q, err := virtio.NewVirtQueue(size, needInterrupt)
	if err != nil {
		return fmt.Errorf("virtio/net: setting up queue %d: %w", idx, err)
	}
	d.dev.SetupQueue(uint32(idx), q)
	d.dev.ActivateQueue(uint32(idx))
	d.queues[idx].queue = q
	return nil
}

func deriveMAC(dev virtio.Device, flagMAC bool, src clock.Source) netaddr.MAC {
	if flagMAC {
		var m netaddr.MAC
		for i := range m {
			m[i] = dev.ReadConfig(i)
		}
		return m
	}

	ts := src.NowNanos()
	return netaddr.MAC{
		0x02, 0x16, 0x3e,
		byte((ts>>0)&0xff) ^ byte((ts>>40)&0xff) ^ byte((ts>>16)&0xff),
		byte((ts>>56)&0xff) ^ byte((ts>>32)&0xff) ^ byte((ts>>8)&0xff),
		byte((ts>>48)&0xff) ^ byte((ts>>24)&0xff) ^ byte((ts>>0)&0xff),
	}
}

func (d *Driver) rxBufferSize() int {
	if d.flagMergeableRx && (d.flagGuestTSO4 || d.flagGuestUFO) {
		return 17 * align
	}
	return align
}

func (d *Driver) prefillRX() {
	slot := &d.queues[rxQueue]
	slot.lock.Lock()
	size := slot.queue.AvailFreeSize() / 3
	bufSize := d.rxBufferSize()
	for i := uint16(0); i < size; i++ {
		buf, err := buffer.New(bufSize, align)
		if err != nil {
			slog.Warn("virtio/net: rx buffer allocation failed during prefill", "error", err)
			break
		}
		err = slot.queue.Push(buf, false)
		// The queue now holds its own reference (or the push failed);
		// either way the driver is done with this buffer.
		buf.Release()
		if err != nil {
			break
		}
	}
	slot.lock.Unlock()

	d.dev.KickQueue(rxQueue)
}

// refillRX tops up the RX ring once it has drained past rxRefillThreshold,
// matching the original driver's "don't bother the device for every single
// packet" heuristic.
func (d *Driver) refillRX() {
	slot := &d.queues[rxQueue]

	slot.lock.Lock()
	free := slot.queue.AvailFreeSize()
	var pushed uint16
	if free > rxRefillThreshold {
		bufSize := d.rxBufferSize()
		for i := uint16(0); i < free; i++ {
			buf, err := buffer.New(bufSize, align)
			if err != nil {
				break
			}
			err = slot.queue.Push(buf, false)
			buf.Release()
			if err != nil {
				break
			}
			pushed++
		}
	}
	slot.lock.Unlock()

	if pushed > 0 {
		d.dev.KickQueue(rxQueue)
	}
}

// IRQ implements interrupt.Interruptable.
func (d *Driver) IRQ() uint8 { return d.dev.IRQ() }

// HandleInterrupt implements interrupt.Interruptable. It acknowledges the
// device's ISR, refills the RX ring, drains completed RX buffers, and
// dispatches them into the processing-node graph as ethernet-in work.
func (d *Driver) HandleInterrupt() {
	if d.dev.ReadAndAckISR() == 0 {
		return
	}

	d.refillRX()

	slot := &d.queues[rxQueue]
	slot.lock.Lock()
	received := slot.queue.Pop()
	slot.lock.Unlock()

	if len(received) == 0 {
		return
	}

	batch := make([]netif.DataFromNetif, 0, len(received))
	for _, buf := range received {
		buf.SlidePosition(virtioNetHeaderSize)
		batch = append(batch, netif.DataFromNetif{Netif: d, Buffer: buf})
	}
	netif.Dispatch("ethernet-in", batch)

	// The graph runs synchronously; once dispatch returns, the reference
	// Pop transferred for each buffer is dropped.
	for _, buf := range received {
		buf.Release()
	}
}

const virtioNetHeaderSize = 12

// PreXmit implements netif.Netif. It reserves size bytes plus the
// virtio-net header and positions the buffer past that header, zeroed,
// ready for the caller to write an Ethernet frame at offset 0.
func (d *Driver) PreXmit(size int) (*buffer.Buffer, error) {
	buf, err := buffer.New(size+virtioNetHeaderSize, align)
	if err != nil {
		return nil, fmt.Errorf("virtio/net: pre_xmit: %w", err)
	}
	clear(buf.Slice()[:virtioNetHeaderSize])
	buf.SlidePosition(virtioNetHeaderSize)
	return buf, nil
}

// Xmit implements netif.Netif. A full TX ring is reported as
// netif.ErrTransmit and the frame is dropped, matching the core's
// drop-tolerant error policy.
func (d *Driver) Xmit(buf *buffer.Buffer) error {
	// The caller's reference is consumed on both paths; the queue holds
	// its own while the descriptor is outstanding.
	defer buf.Release()

	// Task-context callers share the TX queue with replies emitted from the
	// RX interrupt path, so the push runs with interrupts masked.
	restore := (cpu.InterruptGate{}).Disable()
	slot := &d.queues[txQueue]
	slot.lock.Lock()
	err := slot.queue.Push(buf, true)
	completed := slot.queue.Pop()
	slot.lock.Unlock()
	restore()

	// TX completions carry no interrupt; descriptors the device has already
	// consumed are reclaimed here, on the next transmit.
	for _, done := range completed {
		done.Release()
	}

	if err != nil {
		return fmt.Errorf("%w: %v", netif.ErrTransmit, err)
	}

	d.dev.KickQueue(txQueue)
	return nil
}

// Recv implements netif.Netif. Received buffers surface exclusively
// through the RX interrupt handler; there is nothing to poll here.
func (d *Driver) Recv(ctx context.Context) {}

// ID implements netif.Netif.
func (d *Driver) ID() int { return d.id }

// MACAddress implements netif.Netif.
func (d *Driver) MACAddress() netaddr.MAC { return d.mac }

// DriverName implements netif.Netif.
func (d *Driver) DriverName() string { return "virtio-net" }
