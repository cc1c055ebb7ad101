package cmos

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"
	"github.com/stretchr/testify/require"

	"github.com/jchacon-labs/sixtyfiveo2/bus"
)

// flatRAM mirrors the nmos package's test double: a minimal 64KiB
// bus.Bus recording a trace of every R/W cycle.
type flatRAM struct {
	bus.Base
	mem   [65536]uint8
	trace []string
}

func newFlatRAM() *flatRAM { return &flatRAM{} }

func (r *flatRAM) Read(addr uint16) (uint8, bool) {
	v := r.mem[addr]
	r.trace = append(r.trace, sprintfCycle('R', addr, v))
	return v, true
}

func (r *flatRAM) Write(addr uint16, v uint8) bool {
	r.mem[addr] = v
	r.trace = append(r.trace, sprintfCycle('W', addr, v))
	return true
}

func sprintfCycle(kind byte, addr uint16, v uint8) string {
	const hex = "0123456789ABCDEF"
	b := []byte{kind, ' ', '0', '0', '0', '0', ':', '0', '0'}
	b[2] = hex[(addr>>12)&0xF]
	b[3] = hex[(addr>>8)&0xF]
	b[4] = hex[(addr>>4)&0xF]
	b[5] = hex[addr&0xF]
	b[7] = hex[(v>>4)&0xF]
	b[8] = hex[v&0xF]
	return string(b)
}

func newTestEngine(r *flatRAM) *Engine {
	e := New()
	r.mem[0xFFFC] = 0x00
	r.mem[0xFFFD] = 0x80
	if err := e.RunInstruction(r); err != nil {
		panic(err)
	}
	r.trace = nil
	return e
}

func TestResetVectorsPC(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	if e.GetPC() != 0x8000 {
		t.Fatalf("PC after reset = %04X, want 8000", e.GetPC())
	}
}

// TestJMPIndirectFixed checks the 65C02's bug fix: JMP ($44FF) reads its
// high byte from $4500, unlike the NMOS page-wrap bug.
func TestJMPIndirectFixed(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	r.mem[0x8000] = 0x6C // JMP ($44FF)
	r.mem[0x8001] = 0xFF
	r.mem[0x8002] = 0x44
	r.mem[0x44FF] = 0x34
	r.mem[0x4500] = 0x12 // correct high byte, should be used
	r.mem[0x4400] = 0x56 // wrapped high byte, should be ignored
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if want := uint16(0x1234); e.GetPC() != want {
		t.Fatalf("PC after fixed JMP indirect = %04X, want %04X", e.GetPC(), want)
	}
}

func TestJMPIndirectIndexedX(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetX(0x02)
	r.mem[0x8000] = 0x7C // JMP ($9000,X)
	r.mem[0x8001] = 0x00
	r.mem[0x8002] = 0x90
	r.mem[0x9002] = 0x00
	r.mem[0x9003] = 0x81
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if want := uint16(0x8100); e.GetPC() != want {
		t.Fatalf("PC after JMP (abs,X) = %04X, want %04X", e.GetPC(), want)
	}
}

func TestBRAAlwaysTaken(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	r.mem[0x8000] = 0x80 // BRA +4
	r.mem[0x8001] = 0x04
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if want := uint16(0x8006); e.GetPC() != want {
		t.Fatalf("PC after BRA = %04X, want %04X", e.GetPC(), want)
	}
}

func TestSTZ(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	r.mem[0x0010] = 0xFF
	r.mem[0x8000] = 0x64 // STZ $10
	r.mem[0x8001] = 0x10
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if r.mem[0x0010] != 0 {
		t.Errorf("mem[$10] = %02X, want 00", r.mem[0x0010])
	}
}

func TestPHXPLX(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetSP(0xFD)
	e.SetX(0x42)
	r.mem[0x8000] = 0xDA // PHX
	r.mem[0x8001] = 0xA2 // LDX #$00
	r.mem[0x8002] = 0x00
	r.mem[0x8003] = 0xFA // PLX
	for i := 0; i < 3; i++ {
		if err := e.RunInstruction(r); err != nil {
			t.Fatal(err)
		}
	}
	if e.GetX() != 0x42 {
		t.Errorf("X after PHX;LDX #0;PLX = %02X, want 42", e.GetX())
	}
}

func TestTSBSetsBitsAndZ(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetA(0x0F)
	r.mem[0x0020] = 0xF0
	r.mem[0x8000] = 0x04 // TSB $20
	r.mem[0x8001] = 0x20
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if r.mem[0x0020] != 0xFF {
		t.Errorf("mem[$20] = %02X, want FF", r.mem[0x0020])
	}
	if !e.GetFlag(FlagZ) {
		t.Error("Z should be set: A & old value (0x0F & 0xF0) was zero")
	}
}

func TestTRBClearsBits(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetA(0x0F)
	r.mem[0x0020] = 0xFF
	r.mem[0x8000] = 0x14 // TRB $20
	r.mem[0x8001] = 0x20
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if r.mem[0x0020] != 0xF0 {
		t.Errorf("mem[$20] = %02X, want F0", r.mem[0x0020])
	}
}

// TestIndexedStoreNoSpuriousWrite checks that a non-crossing indexed
// store's forced dummy cycle is a read, not a write: the target address
// receives exactly one write.
func TestIndexedStoreNoSpuriousWrite(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetX(0x01)
	e.SetA(0x99)
	r.mem[0x8000] = 0x9D // STA $2000,X
	r.mem[0x8001] = 0x00
	r.mem[0x8002] = 0x20
	r.trace = nil
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	writes := 0
	for _, c := range r.trace {
		if c[0] == 'W' {
			writes++
			if c != "W 2001:99" {
				t.Errorf("unexpected write %q", c)
			}
		}
	}
	if writes != 1 {
		t.Errorf("got %d writes, want 1 (no spurious dummy write)", writes)
	}
}

// TestZPIndirect checks the new (zp) addressing mode added by the 65C02.
func TestZPIndirect(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	r.mem[0x0030] = 0x00
	r.mem[0x0031] = 0x90
	r.mem[0x9000] = 0x77
	r.mem[0x8000] = 0xB2 // LDA ($30)
	r.mem[0x8001] = 0x30
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if e.GetA() != 0x77 {
		t.Errorf("A = %02X, want 77", e.GetA())
	}
}

// TestADCDecimalModeFixedFlags checks the CMOS-corrected decimal flags:
// 0x79 + 0x00 + carry should set N/Z from the fully-corrected 0x80
// result (Z clear, since 0x80 != 0), unlike NMOS's intermediate quirk.
func TestADCDecimalModeFixedFlags(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetFlag(FlagD, true)
	e.SetFlag(FlagC, true)
	e.SetA(0x79)
	e.SetPC(0x8000)
	r.mem[0x8000] = 0x69 // ADC #$00
	r.mem[0x8001] = 0x00
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if e.GetA() != 0x80 {
		t.Errorf("A = %02X, want 80", e.GetA())
	}
	if e.GetFlag(FlagZ) {
		t.Error("Z should be clear: result is 0x80, not zero")
	}
}

// TestADCDecimalExtraCycle checks that decimal-mode ADC costs one more
// bus cycle than binary-mode ADC on the 65C02.
func TestADCDecimalExtraCycle(t *testing.T) {
	binCycles := func() int {
		r := newFlatRAM()
		e := newTestEngine(r)
		e.SetPC(0x8000)
		r.mem[0x8000] = 0x69 // ADC #$01
		r.mem[0x8001] = 0x01
		n := 0
		for {
			done, err := e.StepCycle(r)
			if err != nil {
				t.Fatal(err)
			}
			n++
			if done {
				return n
			}
		}
	}()
	decCycles := func() int {
		r := newFlatRAM()
		e := newTestEngine(r)
		e.SetFlag(FlagD, true)
		e.SetPC(0x8000)
		r.mem[0x8000] = 0x69 // ADC #$01
		r.mem[0x8001] = 0x01
		n := 0
		for {
			done, err := e.StepCycle(r)
			if err != nil {
				t.Fatal(err)
			}
			n++
			if done {
				return n
			}
		}
	}()
	if decCycles != binCycles+1 {
		t.Errorf("decimal ADC took %d cycles, binary took %d, want exactly one more", decCycles, binCycles)
	}
}

// TestCycleBusEquivalence mirrors the nmos package's check that
// RunInstruction and repeated StepCycle produce identical bus traces.
func TestCycleBusEquivalence(t *testing.T) {
	program := func(mem *[65536]uint8) {
		mem[0x8000] = 0xA9 // LDA #$42
		mem[0x8001] = 0x42
		mem[0x8002] = 0x85 // STA $10
		mem[0x8003] = 0x10
		mem[0x8004] = 0xE6 // INC $10
		mem[0x8005] = 0x10
		mem[0x8006] = 0x4C // JMP $8000
		mem[0x8007] = 0x00
		mem[0x8008] = 0x80
	}

	r1 := newFlatRAM()
	e1 := newTestEngine(r1)
	e1.SetPC(0x8000)
	program(&r1.mem)
	r1.trace = nil
	for i := 0; i < 4; i++ {
		if err := e1.RunInstruction(r1); err != nil {
			t.Fatal(err)
		}
	}

	r2 := newFlatRAM()
	e2 := newTestEngine(r2)
	e2.SetPC(0x8000)
	program(&r2.mem)
	r2.trace = nil
	for i := 0; i < 4; {
		done, err := e2.StepCycle(r2)
		if err != nil {
			t.Fatal(err)
		}
		if done {
			i++
		}
	}

	require.Equal(t, len(r1.trace), len(r2.trace), "trace length")
	if diff := deep.Equal(r1.trace, r2.trace); diff != nil {
		t.Fatalf("RunInstruction and StepCycle bus traces differ: %v\nRunInstruction trace:\n%sStepCycle trace:\n%s",
			diff, spew.Sdump(r1.trace), spew.Sdump(r2.trace))
	}
}

// TestDecimalClearedOnInterruptEntry checks the CMOS-only behavior: D is
// always cleared when an interrupt sequence completes.
func TestDecimalClearedOnInterruptEntry(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetFlag(FlagD, true)
	e.SetFlag(FlagI, false)
	e.SetPC(0x8000)
	r.mem[0xFFFE] = 0x00
	r.mem[0xFFFF] = 0x90
	r.mem[0x8000] = 0xEA // NOP, then force a BRK
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	r.mem[0x8001] = 0x00 // BRK
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if e.GetFlag(FlagD) {
		t.Error("D should be cleared after BRK sequence completes")
	}
	if e.GetPC() != 0x9000 {
		t.Fatalf("PC after BRK = %04X, want 9000", e.GetPC())
	}
}

// TestZPIndexedDummyReadTargetsPC checks the CMOS fix: the zp,X/zp,Y
// dummy cycle reads PC instead of the unindexed zero-page base address
// (the NMOS pattern).
func TestZPIndexedDummyReadTargetsPC(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetX(0x01)
	r.mem[0x8000] = 0xB5 // LDA $10,X
	r.mem[0x8001] = 0x10
	r.mem[0x0011] = 0x55
	r.trace = nil
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	want := []string{"R 8000:B5", "R 8001:10", "R 8002:00", "R 0011:55"}
	if diff := deep.Equal(want, r.trace); diff != nil {
		t.Fatalf("zp,X trace mismatch: %v\ngot:\n%s", diff, spew.Sdump(r.trace))
	}
}

// TestAbsIndexedPageCrossDummyReadTargetsPC checks the CMOS fix: on a
// page-crossing abs,X/abs,Y access, the dummy cycle reads PC instead of
// the NMOS wrong-page address.
func TestAbsIndexedPageCrossDummyReadTargetsPC(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetX(0x01)
	r.mem[0x8000] = 0xBD // LDA $20FF,X -> crosses to $2100
	r.mem[0x8001] = 0xFF
	r.mem[0x8002] = 0x20
	r.mem[0x2100] = 0x77
	r.trace = nil
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	want := []string{"R 8000:BD", "R 8001:FF", "R 8002:20", "R 8003:00", "R 2100:77"}
	if diff := deep.Equal(want, r.trace); diff != nil {
		t.Fatalf("abs,X page-cross trace mismatch: %v\ngot:\n%s", diff, spew.Sdump(r.trace))
	}
}

// TestImmediateNOPs42And62 checks that WDM ($42) and $62 are plain
// two-cycle immediate NOPs, not halts.
func TestImmediateNOPs42And62(t *testing.T) {
	for _, op := range []uint8{0x42, 0x62} {
		r := newFlatRAM()
		e := newTestEngine(r)
		e.SetPC(0x8000)
		r.mem[0x8000] = op
		r.mem[0x8001] = 0xFF
		r.trace = nil
		if err := e.RunInstruction(r); err != nil {
			t.Fatalf("opcode %#02x: %v", op, err)
		}
		if e.Halted() {
			t.Fatalf("opcode %#02x halted the CPU, want plain NOP", op)
		}
		if len(r.trace) != 2 {
			t.Errorf("opcode %#02x took %d cycles, want 2", op, len(r.trace))
		}
		if e.GetPC() != 0x8002 {
			t.Errorf("opcode %#02x: PC = %04X, want 8002", op, e.GetPC())
		}
	}
}

// TestZPNOP44 checks that $44 is a three-cycle zero-page NOP (fetch the
// zp operand, then read from it), not the two-cycle immediate shape.
func TestZPNOP44(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	r.mem[0x8000] = 0x44
	r.mem[0x8001] = 0x10
	r.mem[0x0010] = 0xAB
	r.trace = nil
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	want := []string{"R 8000:44", "R 8001:10", "R 0010:AB"}
	if diff := deep.Equal(want, r.trace); diff != nil {
		t.Fatalf("$44 trace mismatch: %v\ngot:\n%s", diff, spew.Sdump(r.trace))
	}
}

// TestNOP5CEightCycles checks $5C's documented eight-cycle bus shape: an
// absolute operand fetch (high byte discarded), a read with the high byte
// forced to $FF, then four reads of $FFFF.
func TestNOP5CEightCycles(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	r.mem[0x8000] = 0x5C
	r.mem[0x8001] = 0x34
	r.mem[0x8002] = 0x99
	r.trace = nil
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"R 8000:5C", "R 8001:34", "R 8002:99",
		"R 34FF:00", "R FFFF:00", "R FFFF:00", "R FFFF:00", "R FFFF:00",
	}
	if diff := deep.Equal(want, r.trace); diff != nil {
		t.Fatalf("$5C trace mismatch: %v\ngot:\n%s", diff, spew.Sdump(r.trace))
	}
}

// TestADCDecimalZPExtraCycleReadsPC checks the decimal-mode extra cycle
// for a memory operand: it reads PC, not the operand address again.
func TestADCDecimalZPExtraCycleReadsPC(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetFlag(FlagD, true)
	e.SetPC(0x8000)
	r.mem[0x8000] = 0x65 // ADC $10
	r.mem[0x8001] = 0x10
	r.mem[0x0010] = 0x01
	r.trace = nil
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	want := []string{"R 8000:65", "R 8001:10", "R 0010:01", "R 8002:00"}
	if diff := deep.Equal(want, r.trace); diff != nil {
		t.Fatalf("decimal ADC $10 trace mismatch: %v\ngot:\n%s", diff, spew.Sdump(r.trace))
	}
}
