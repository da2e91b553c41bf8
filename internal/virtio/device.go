package virtio

import (
	"fmt"
	"strconv"
	"strings"
)

// RegisterSpace abstracts raw access to a device's MMIO register window.
// Reads and writes are always 32-bit, matching virtio-mmio v2, except for
// ReadByte which serves the one-byte-at-a-time config space accessor.
type RegisterSpace interface {
	ReadReg(offset uint64) uint32
	WriteReg(offset uint64, value uint32)
	ReadByte(offset uint64) uint8
}

// Device is the narrow contract the virtio-net driver (and any future
// virtio device driver) needs from its transport: feature negotiation,
// status, queue setup, and interrupt acknowledgement. MMIODevice is the
// only non-test implementation; it exists as an interface so drivers can be
// tested against a fake Device.
type Device interface {
	DeviceType() uint32
	IRQ() uint8

	ReadAndAckISR() uint8

	SelectQueue(idx uint32)
	QueueSize() uint16
	SetupQueue(idx uint32, q *VirtQueue)
	ActivateQueue(idx uint32)
	KickQueue(idx uint32)

	AvailableFeatures() uint64
	SetEnabledFeatures(features uint64)

	Status() uint8
	SetStatus(status uint8)

	ReadConfig(offset int) uint8
}

// MMIODevice implements Device over a virtio-mmio v2 register window.
type MMIODevice struct {
	regs RegisterSpace
	irq  uint8
}

// NewMMIODevice validates the magic value and version at the base of regs
// and wraps it as a Device. irq is the line this device's interrupts are
// delivered on, parsed out-of-band from the kernel command line.
func NewMMIODevice(regs RegisterSpace, irq uint8) (*MMIODevice, error) {
	if magic := regs.ReadReg(RegMagicValue); magic != MagicValue {
		return nil, fmt.Errorf("virtio: bad magic value %#x", magic)
	}
	if version := regs.ReadReg(RegVersion); version != MMIOVersion {
		return nil, fmt.Errorf("virtio: unsupported mmio version %d", version)
	}
	return &MMIODevice{regs: regs, irq: irq}, nil
}

func (d *MMIODevice) DeviceType() uint32 { return d.regs.ReadReg(RegDeviceID) }
func (d *MMIODevice) IRQ() uint8         { return d.irq }

func (d *MMIODevice) ReadAndAckISR() uint8 {
	status := d.regs.ReadReg(RegInterruptStatus)
	d.regs.WriteReg(RegInterruptAck, status)
	return uint8(status & 0x01)
}

func (d *MMIODevice) SelectQueue(idx uint32) {
	d.regs.WriteReg(RegQueueSel, idx)
}

func (d *MMIODevice) QueueSize() uint16 {
	return uint16(d.regs.ReadReg(RegQueueNumMax))
}

func (d *MMIODevice) SetupQueue(idx uint32, q *VirtQueue) {
	d.regs.WriteReg(RegQueueNum, uint32(q.Size()))

	descAddr := q.DescAddr()
	availAddr := q.AvailAddr()
	usedAddr := q.UsedAddr()

	d.regs.WriteReg(RegQueueDescLow, uint32(descAddr))
	d.regs.WriteReg(RegQueueDescHigh, uint32(descAddr>>32))
	d.regs.WriteReg(RegQueueAvailLow, uint32(availAddr))
	d.regs.WriteReg(RegQueueAvailHigh, uint32(availAddr>>32))
	d.regs.WriteReg(RegQueueUsedLow, uint32(usedAddr))
	d.regs.WriteReg(RegQueueUsedHigh, uint32(usedAddr>>32))
}

func (d *MMIODevice) ActivateQueue(idx uint32) {
	d.regs.WriteReg(RegQueueReady, 1)
}

func (d *MMIODevice) KickQueue(idx uint32) {
	d.regs.WriteReg(RegQueueNotify, idx)
}

func (d *MMIODevice) AvailableFeatures() uint64 {
	d.regs.WriteReg(RegDeviceFeaturesSel, 1)
	hi := uint64(d.regs.ReadReg(RegDeviceFeatures)) << 32
	d.regs.WriteReg(RegDeviceFeaturesSel, 0)
	lo := uint64(d.regs.ReadReg(RegDeviceFeatures))
	return hi | lo
}

func (d *MMIODevice) SetEnabledFeatures(features uint64) {
	d.regs.WriteReg(RegDriverFeaturesSel, 1)
	d.regs.WriteReg(RegDriverFeatures, uint32(features>>32))
	d.regs.WriteReg(RegDriverFeaturesSel, 0)
	d.regs.WriteReg(RegDriverFeatures, uint32(features))
}

func (d *MMIODevice) Status() uint8 { return uint8(d.regs.ReadReg(RegStatus)) }

func (d *MMIODevice) SetStatus(status uint8) {
	d.regs.WriteReg(RegStatus, uint32(status))
}

func (d *MMIODevice) ReadConfig(offset int) uint8 {
	return d.regs.ReadByte(RegConfig + uint64(offset))
}

// ParseCmdline extracts the size, base address, and IRQ line of the idx'th
// "virtio_mmio.device=<size>[kK|mM]@0x<hex>:<irq>" clause in a kernel
// command line, e.g. "... virtio_mmio.device=4K@0xd0000000:5 ...".
func ParseCmdline(cmdline string, idx int) (size int, addr uint64, irq uint8, err error) {
	const keyphrase = "virtio_mmio.device="

	rest := cmdline
	consumed := 0
	for i := 0; i <= idx; i++ {
		pos := strings.Index(rest, keyphrase)
		if pos < 0 {
			return 0, 0, 0, fmt.Errorf("virtio: virtio_mmio.device clause %d not found in cmdline", idx)
		}
		consumed += pos + len(keyphrase)
		rest = rest[pos+len(keyphrase):]
	}
	clauseStart := consumed

	atPos := strings.Index(cmdline[clauseStart:], "@0x")
	if atPos < 0 {
		return 0, 0, 0, fmt.Errorf("virtio: malformed virtio_mmio.device clause")
	}
	addrStart := clauseStart + atPos + 3

	colonPos := strings.Index(cmdline[addrStart:], ":")
	if colonPos < 0 {
		return 0, 0, 0, fmt.Errorf("virtio: malformed virtio_mmio.device clause")
	}
	irqStart := addrStart + colonPos + 1

	tail := len(cmdline)
	if spacePos := strings.Index(cmdline[irqStart:], " "); spacePos >= 0 {
		tail = irqStart + spacePos
	}

	sizeField := cmdline[clauseStart : clauseStart+atPos]
	addrField := cmdline[addrStart : addrStart+colonPos]
	irqField := cmdline[irqStart:tail]

	size, err = parseSizeField(sizeField)
	if err != nil {
		return 0, 0, 0, err
	}
	addrVal, err := strconv.ParseUint(addrField, 16, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("virtio: bad address field %q: %w", addrField, err)
	}
	irqVal, err := strconv.ParseUint(irqField, 10, 8)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("virtio: bad irq field %q: %w", irqField, err)
	}

	return size, addrVal, uint8(irqVal), nil
}

func parseSizeField(field string) (int, error) {
	if field == "" {
		return 0, fmt.Errorf("virtio: empty size field")
	}
	multiplier := 1
	switch field[len(field)-1] {
	case 'k', 'K':
		multiplier = 1024
		field = field[:len(field)-1]
	case 'm', 'M':
		multiplier = 1024 * 1024
		field = field[:len(field)-1]
	}
	n, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("virtio: bad size field: %w", err)
	}
	return n * multiplier, nil
}
