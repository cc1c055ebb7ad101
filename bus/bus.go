// Package bus defines the contract between a 6502/65C02 core and the
// embedder that supplies its memory map and interrupt lines.
//
// A core never owns memory, a clock, or an interrupt controller; all of
// that is the embedder's. The core only ever sees the narrow interface
// defined here, driven one bus access at a time.
package bus

// NMILength describes how long the NMI line has been observed asserted,
// in cycles. It is consulted only by the interrupt-hijack/short-NMI logic
// during a BRK/IRQ sequence (see the nmos and cmos packages).
type NMILength int

const (
	// NMIOne means the NMI pulse has been asserted for exactly one cycle.
	NMIOne NMILength = iota
	// NMITwo means the NMI pulse has been asserted for exactly two cycles.
	NMITwo
	// NMIPlenty means the NMI pulse has been asserted long enough that its
	// exact length no longer matters to the hijack/swallow logic.
	NMIPlenty
)

// Bus is the contract a core requires from its embedder. Every method may
// be called multiple times per instruction; Read and Write are the only
// ones that can signal a stall.
type Bus interface {
	// Read performs a bus read at addr. ready is false if the embedder
	// isn't ready to service this cycle (e.g. a slower peripheral still
	// busy); the core will retry the exact same read on its next step.
	// val is ignored when ready is false.
	Read(addr uint16) (val uint8, ready bool)

	// Write performs a bus write at addr. ready is false under the same
	// stall contract as Read; the core will retry the exact same write.
	Write(addr uint16, val uint8) (ready bool)

	// SetSync is asserted true for exactly the one cycle during which the
	// core is fetching an opcode (the real SYNC pin), and false otherwise.
	// Embedders that don't care about instruction-granularity breakpoints
	// may ignore it.
	SetSync(sync bool)

	// PollNMI reports whether an NMI edge has been observed since the last
	// call and clears it (consume-and-report).
	PollNMI() bool

	// PeekNMI reports whether an NMI edge is currently pending without
	// consuming it.
	PeekNMI() bool

	// NMILength reports how long the NMI line has been held, for the
	// short-NMI swallow logic during interrupt sequencing.
	NMILength() NMILength

	// IRQ reports the current level of the IRQ line.
	IRQ() bool
}

// Base is embeddable by a Bus implementation that only cares about Read
// and Write, picking up the documented defaults for everything else:
// SYNC ignored, no interrupts ever raised, NMI reported as a long pulse.
// This mirrors the reference's default trait-method behavior.
type Base struct{}

// SetSync implements Bus with a no-op default.
func (Base) SetSync(bool) {}

// PollNMI implements Bus, never reporting an NMI.
func (Base) PollNMI() bool { return false }

// PeekNMI implements Bus, never reporting a pending NMI.
func (Base) PeekNMI() bool { return false }

// NMILength implements Bus, reporting any NMI pulse as indefinitely long.
func (Base) NMILength() NMILength { return NMIPlenty }

// IRQ implements Bus, never asserting the IRQ line.
func (Base) IRQ() bool { return false }
