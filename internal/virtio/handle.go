package virtio

import (
	"sync"
	"sync/atomic"

	"github.com/urchin-kernel/urchin/internal/buffer"
)

// The descriptor table stores a 64-bit address per buffer, the field the
// virtio device DMAs through. Since this driver never holds a real
// physical address for a buffer, each buffer pushed onto a queue is given
// an opaque monotonically increasing handle instead; a transport
// implementation bridging to a real device backend resolves handles back
// to buffers through handleBuffer.
var (
	handleCounter atomic.Uint64
	handleMu      sync.Mutex
	handleTable   = map[uint64]*buffer.Buffer{}
)

func handleFor(buf *buffer.Buffer) uint64 {
	h := handleCounter.Add(1)
	handleMu.Lock()
	handleTable[h] = buf
	handleMu.Unlock()
	return h
}

// handleBuffer resolves a descriptor's address field back to the buffer it
// was assigned to, for transports that need to locate the payload (e.g. a
// software virtio-net backend exercised in tests).
func handleBuffer(h uint64) (*buffer.Buffer, bool) {
	handleMu.Lock()
	defer handleMu.Unlock()
	buf, ok := handleTable[h]
	return buf, ok
}

// releaseHandle drops h's entry once its descriptor has been popped off the
// used ring; without this the table grows without bound over the life of a
// long-running queue.
func releaseHandle(h uint64) {
	handleMu.Lock()
	delete(handleTable, h)
	handleMu.Unlock()
}
