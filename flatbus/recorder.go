package flatbus

import (
	"fmt"

	"github.com/jchacon-labs/sixtyfiveo2/bus"
)

// Recorder wraps a bus.Bus and keeps a log of every R/W cycle, for
// diagnosing or asserting that RunInstruction and StepCycle drive
// identical bus traces against real embedder implementations, not just
// the in-package test doubles.
type Recorder struct {
	bus.Bus
	Trace []string
}

// NewRecorder wraps an existing bus.Bus with cycle recording.
func NewRecorder(b bus.Bus) *Recorder {
	return &Recorder{Bus: b}
}

func (r *Recorder) Read(addr uint16) (uint8, bool) {
	v, ready := r.Bus.Read(addr)
	if ready {
		r.Trace = append(r.Trace, fmt.Sprintf("R %04X:%02X", addr, v))
	}
	return v, ready
}

func (r *Recorder) Write(addr uint16, val uint8) bool {
	ready := r.Bus.Write(addr, val)
	if ready {
		r.Trace = append(r.Trace, fmt.Sprintf("W %04X:%02X", addr, val))
	}
	return ready
}

// Reset clears the recorded trace without disturbing the wrapped bus.
func (r *Recorder) Reset() { r.Trace = nil }
