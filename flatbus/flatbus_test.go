package flatbus

import (
	"testing"

	"github.com/jchacon-labs/sixtyfiveo2/bus"
)

func TestReadWriteRoundTrip(t *testing.T) {
	f := New()
	if ok := f.Write(0x1234, 0x42); !ok {
		t.Fatal("write should always be ready on flat RAM")
	}
	v, ok := f.Read(0x1234)
	if !ok {
		t.Fatal("read should always be ready on flat RAM")
	}
	if v != 0x42 {
		t.Errorf("read back %02X, want 42", v)
	}
}

func TestROMWritesAreNoOps(t *testing.T) {
	f := New()
	f.SetROM(0xE000, 0xFFFF)
	f.Load(0xE000, []byte{0x11})
	if ok := f.Write(0xE000, 0x99); !ok {
		t.Fatal("write to ROM should report ready even though it's dropped")
	}
	v, _ := f.Read(0xE000)
	if v != 0x11 {
		t.Errorf("ROM byte changed to %02X, want unchanged 11", v)
	}
}

func TestLoad(t *testing.T) {
	f := New()
	f.Load(0x8000, []byte{0xA9, 0x00, 0x60})
	want := []uint8{0xA9, 0x00, 0x60}
	for i, w := range want {
		v, _ := f.Read(uint16(0x8000 + i))
		if v != w {
			t.Errorf("mem[%04X] = %02X, want %02X", 0x8000+i, v, w)
		}
	}
}

func TestPulseNMIAndPoll(t *testing.T) {
	f := New()
	if f.PeekNMI() {
		t.Fatal("no NMI should be pending initially")
	}
	f.PulseNMI(bus.NMIOne)
	if !f.PeekNMI() {
		t.Fatal("NMI should be pending after PulseNMI")
	}
	if f.NMILength() != bus.NMIOne {
		t.Errorf("NMILength = %v, want NMIOne", f.NMILength())
	}
	if !f.PollNMI() {
		t.Fatal("PollNMI should report the pending edge")
	}
	if f.PeekNMI() {
		t.Error("NMI edge should be consumed after PollNMI")
	}
}

func TestAssertIRQ(t *testing.T) {
	f := New()
	if f.IRQ() {
		t.Fatal("IRQ should start deasserted")
	}
	f.AssertIRQ(true)
	if !f.IRQ() {
		t.Error("IRQ should be asserted")
	}
	f.AssertIRQ(false)
	if f.IRQ() {
		t.Error("IRQ should be deasserted")
	}
}

func TestRecorderTracesCycles(t *testing.T) {
	f := New()
	r := NewRecorder(f)
	r.Write(0x10, 0x55)
	r.Read(0x10)
	want := []string{"W 0010:55", "R 0010:55"}
	if len(r.Trace) != len(want) {
		t.Fatalf("trace length = %d, want %d", len(r.Trace), len(want))
	}
	for i := range want {
		if r.Trace[i] != want[i] {
			t.Errorf("trace[%d] = %q, want %q", i, r.Trace[i], want[i])
		}
	}
}
