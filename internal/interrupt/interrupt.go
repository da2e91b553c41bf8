// Package interrupt implements the IRQ dispatch table: a fixed-size
// registry of handlers keyed by IRQ line, and the disable/enable bracket
// device drivers and task code use around structures shared with interrupt
// context.
package interrupt

import (
	"sync"

	"github.com/urchin-kernel/urchin/internal/cpu"
	"github.com/urchin-kernel/urchin/internal/intctl"
)

// Interruptable is implemented by anything that can own an IRQ line.
type Interruptable interface {
	IRQ() uint8
	HandleInterrupt()
}

const maxIRQ = 256

// Handler dispatches IRQs to registered Interruptable owners and mediates
// enable/disable against a Controller.
type Handler struct {
	mu       sync.Mutex
	handlers [maxIRQ]Interruptable
	ctrl     intctl.Controller
}

// NewHandler builds a Handler that enables/disables lines through ctrl.
func NewHandler(ctrl intctl.Controller) *Handler {
	return &Handler{ctrl: ctrl}
}

// SetHandler registers h for its own IRQ line and enables that line at the
// controller, replacing any previous owner.
func (d *Handler) SetHandler(h Interruptable) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[h.IRQ()] = h
	d.ctrl.EnableIRQ(h.IRQ())
}

// UnsetHandler removes the owner of irq and disables the line.
func (d *Handler) UnsetHandler(irq uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[irq] = nil
	d.ctrl.DisableIRQ(irq)
}

// Dispatch acks irq at the controller, disables interrupts for the
// duration of the handler call (handlers run with interrupts masked, the
// same discipline the spinlock depends on), then invokes the registered
// owner, if any.
func (d *Handler) Dispatch(irq uint8) {
	d.ctrl.AckIRQ(irq)

	restore := (cpu.InterruptGate{}).Disable()
	defer restore()

	d.mu.Lock()
	h := d.handlers[irq]
	d.mu.Unlock()

	if h != nil {
		h.HandleInterrupt()
	}
}
