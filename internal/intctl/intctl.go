// Package intctl defines the boundary to the platform interrupt controller
// (APIC/IOAPIC on x86_64). This module never programs the controller
// itself; it only describes the contract boot wiring needs against it.
package intctl

// Controller is implemented by the platform-specific interrupt controller
// driver. AckIRQ, EnableIRQ, and DisableIRQ are the only operations the
// interrupt dispatch and device drivers require.
type Controller interface {
	AckIRQ(irq uint8)
	EnableIRQ(irq uint8)
	DisableIRQ(irq uint8)
}

// Noop is a Controller that does nothing, useful for hosted-mode tests and
// demos where there is no real interrupt controller to program.
type Noop struct{}

func (Noop) AckIRQ(irq uint8)     {}
func (Noop) EnableIRQ(irq uint8)  {}
func (Noop) DisableIRQ(irq uint8) {}
