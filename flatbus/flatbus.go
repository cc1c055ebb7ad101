// Package flatbus provides a flat 64KiB bus.Bus implementation: one
// address space, an optional read-only ROM region, and software-driven
// IRQ/NMI lines. It is the reference embedder used by cmd/runprg; the
// nmos/cmos package tests use their own in-package RAM doubles built on
// bus.Base instead.
package flatbus

import (
	"math/rand"
	"time"

	"github.com/jchacon-labs/sixtyfiveo2/bus"
)

// Flat is a 64KiB memory map with one contiguous read-only ROM window.
// Writes inside the ROM window are silently dropped, mirroring the
// teacher's memory.Bank convention that ROM writes are a no-op rather
// than an error.
type Flat struct {
	mem         [65536]uint8
	romLo, romHi uint16
	hasROM      bool

	irqLine  bool
	nmiEdge  bool
	nmiLevel bool
	nmiLen   bus.NMILength
	syncSeen bool

	databusVal uint8
}

// New constructs an empty Flat bus. Call PowerOn to randomize RAM the way
// real hardware comes up, or load a program image directly via Load.
func New() *Flat {
	return &Flat{}
}

// PowerOn randomizes every byte of memory, matching real hardware's
// undefined-on-power-up RAM contents.
func (f *Flat) PowerOn() {
	rand.Seed(time.Now().UnixNano())
	for i := range f.mem {
		f.mem[i] = uint8(rand.Intn(256))
	}
}

// Load copies data into memory starting at addr, e.g. for installing a
// flat binary image before reset.
func (f *Flat) Load(addr uint16, data []byte) {
	for i, b := range data {
		f.mem[addr+uint16(i)] = b
	}
}

// SetROM marks [lo, hi] (inclusive) as read-only; writes in that range
// are dropped.
func (f *Flat) SetROM(lo, hi uint16) {
	f.romLo, f.romHi = lo, hi
	f.hasROM = true
}

func (f *Flat) inROM(addr uint16) bool {
	return f.hasROM && addr >= f.romLo && addr <= f.romHi
}

// Read implements bus.Bus. Flat memory never stalls.
func (f *Flat) Read(addr uint16) (uint8, bool) {
	v := f.mem[addr]
	f.databusVal = v
	return v, true
}

// Write implements bus.Bus. A write inside the ROM window is a no-op but
// still reports ready, since real ROM doesn't stall the bus either.
func (f *Flat) Write(addr uint16, val uint8) bool {
	f.databusVal = val
	if f.inROM(addr) {
		return true
	}
	f.mem[addr] = val
	return true
}

// SetSync implements bus.Bus, latching the most recent SYNC state for
// callers that want to track opcode-fetch boundaries.
func (f *Flat) SetSync(sync bool) { f.syncSeen = sync }

// SyncAsserted reports whether the last SetSync call asserted SYNC.
func (f *Flat) SyncAsserted() bool { return f.syncSeen }

// PollNMI implements bus.Bus: consume-and-report.
func (f *Flat) PollNMI() bool {
	v := f.nmiEdge
	f.nmiEdge = false
	return v
}

// PeekNMI implements bus.Bus: report without consuming.
func (f *Flat) PeekNMI() bool { return f.nmiEdge }

// NMILength implements bus.Bus.
func (f *Flat) NMILength() bus.NMILength { return f.nmiLen }

// IRQ implements bus.Bus.
func (f *Flat) IRQ() bool { return f.irqLine }

// AssertIRQ raises (or lowers) the level-triggered IRQ line.
func (f *Flat) AssertIRQ(asserted bool) { f.irqLine = asserted }

// PulseNMI latches an NMI edge of the given observed length, for testing
// the short-NMI-swallow behavior during an interrupt sequence.
func (f *Flat) PulseNMI(length bus.NMILength) {
	f.nmiEdge = true
	f.nmiLen = length
}

// DatabusVal returns the last value that crossed the bus, mirroring the
// teacher's memory.Bank.DatabusVal for implementations that depend on
// transient bus state (e.g. open-bus reads on some platforms).
func (f *Flat) DatabusVal() uint8 { return f.databusVal }
