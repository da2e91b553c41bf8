package virtio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/urchin-kernel/urchin/internal/buffer"
)

const queueAlign = 4096

var queueAddrCounter atomic.Uint64

// VirtQueue is a split-ring virtqueue: a descriptor table, an available
// ring, and a used ring, held in a single page-aligned backing buffer and
// addressed with encoding/binary the same way the rest of this codebase
// treats wire-format memory. Ring indices (avail.idx, used.idx) are
// free-running 16-bit counters taken modulo Size.
type VirtQueue struct {
	size uint16

	// addr is a synthetic base address handed to the device through the
	// queue-setup registers. Like buffer handles, it has no relation to a
	// real physical address; it only needs to be a stable, unique value
	// the device can echo back (it never does, since nothing in this
	// driver runs against real DMA hardware).
	addr uint64

	region []byte

	descOff  int
	availOff int
	usedOff  int

	buffers []*buffer.Buffer
	handles []uint64

	freeHead    uint16
	lastUsedIdx uint16
}

// NewVirtQueue allocates a virtqueue with size descriptors. size must be a
// power of two, matching the modulo-via-mask arithmetic used throughout.
func NewVirtQueue(size uint16, usedInterrupt bool) (*VirtQueue, error) {
	if size == 0 || size&(size-1) != 0 {
		return nil, fmt.Errorf("virtio: queue size %d is not a power of two", size)
	}

	descLen := 16 * int(size)
	availLen := 4 + 2*int(size)
	usedLen := 4 + 8*int(size)

	descOff := 0
	availOff := roundUp(descLen, queueAlign)
	usedOff := availOff + roundUp(availLen, queueAlign)
	total := usedOff + roundUp(usedLen, queueAlign)

	q := &VirtQueue{
		size:    size,
		addr:    queueAddrCounter.Add(uint64(total)) - uint64(total),
		region:  make([]byte, total),
		descOff: descOff, availOff: availOff, usedOff: usedOff,
		buffers: make([]*buffer.Buffer, size),
		handles: make([]uint64, size),
	}

	availFlags := uint16(1) // want device not to interrupt
	if usedInterrupt {
		availFlags = 0
	}
	binary.LittleEndian.PutUint16(q.region[q.availOff:], availFlags)

	return q, nil
}

func roundUp(n, align int) int {
	return ((n-1)/align + 1) * align
}

// Size returns the number of descriptors in the queue.
func (q *VirtQueue) Size() uint16 { return q.size }

// DescAddr, AvailAddr, and UsedAddr are the addresses a transport reports
// to the device during queue setup.
func (q *VirtQueue) DescAddr() uint64  { return q.addr + uint64(q.descOff) }
func (q *VirtQueue) AvailAddr() uint64 { return q.addr + uint64(q.availOff) }
func (q *VirtQueue) UsedAddr() uint64  { return q.addr + uint64(q.usedOff) }

func (q *VirtQueue) availIdx() uint16 {
	return binary.LittleEndian.Uint16(q.region[q.availOff+2:])
}

func (q *VirtQueue) setAvailIdx(v uint16) {
	binary.LittleEndian.PutUint16(q.region[q.availOff+2:], v)
}

func (q *VirtQueue) usedIdx() uint16 {
	return binary.LittleEndian.Uint16(q.region[q.usedOff+2:])
}

// AvailFreeSize reports how many descriptors are still free to be pushed
// before the driver would catch up with the device. avail.idx and used.idx
// are free-running 16-bit counters, so the subtraction is deliberately done
// in uint16 arithmetic: it wraps the same way the ring's mod-2^16 indexing
// does, including across the point where avail.idx itself wraps past 65535.
func (q *VirtQueue) AvailFreeSize() uint16 {
	inFlight := q.availIdx() - q.usedIdx()
	return q.size - inFlight
}

func (q *VirtQueue) descSlice(idx uint16) []byte {
	off := q.descOff + 16*int(idx)
	return q.region[off : off+16]
}

func (q *VirtQueue) setDescriptor(idx uint16, handle uint64, length uint32, flags, next uint16) {
	d := q.descSlice(idx)
	binary.LittleEndian.PutUint64(d[0:8], handle)
	binary.LittleEndian.PutUint32(d[8:12], length)
	binary.LittleEndian.PutUint16(d[12:14], flags)
	binary.LittleEndian.PutUint16(d[14:16], next)
}

// ErrFull is returned by Push when the queue has no free descriptor slot.
// There is no partial write: the caller's buffer reference is untouched.
var ErrFull = errors.New("virtio: queue full")

// Push adds buf to the queue. deviceReadable marks it as data the device
// reads (an outgoing/TX buffer); otherwise it is device-writable (an
// incoming/RX buffer). buf's reference is retained by the queue until the
// corresponding entry is popped. Push reports ErrFull, touching nothing,
// when AvailFreeSize is already zero.
func (q *VirtQueue) Push(buf *buffer.Buffer, deviceReadable bool) error {
	if q.AvailFreeSize() == 0 {
		return ErrFull
	}

	descIdx := q.freeHead
	mask := q.size - 1

	ringOff := q.availOff + 4 + int(q.availIdx()&mask)*2
	binary.LittleEndian.PutUint16(q.region[ringOff:], descIdx)
	q.setAvailIdx(q.availIdx() + 1)

	flags := uint16(descFWrite)
	if deviceReadable {
		flags = 0
	}
	next := (descIdx + 1) & mask
	handle := handleFor(buf)
	q.setDescriptor(descIdx, handle, uint32(buf.Size()), flags, next)

	q.buffers[descIdx] = buf.Retain()
	q.handles[descIdx] = handle
	q.freeHead = next
	return nil
}

// Pop drains every entry the device has returned on the used ring since the
// last call, returning the buffers in completion order. The reference Push
// retained for each descriptor transfers to the caller, who must Release it
// once done with the buffer.
func (q *VirtQueue) Pop() []*buffer.Buffer {
	var out []*buffer.Buffer
	mask := q.size - 1

	for q.lastUsedIdx != q.usedIdx() {
		elemOff := q.usedOff + 4 + int(q.lastUsedIdx&mask)*8
		descIdx := uint16(binary.LittleEndian.Uint32(q.region[elemOff:]))

		if buf := q.buffers[descIdx]; buf != nil {
			out = append(out, buf)
			q.buffers[descIdx] = nil
			releaseHandle(q.handles[descIdx])
		}
		q.lastUsedIdx++
	}
	return out
}
