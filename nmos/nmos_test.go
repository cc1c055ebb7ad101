package nmos

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"
	"github.com/stretchr/testify/require"

	"github.com/jchacon-labs/sixtyfiveo2/bus"
)

// flatRAM is a minimal 64KiB bus.Bus used only by these unit tests; the
// full embeddable implementation lives in package flatbus.
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
	if !e.GetFlag(FlagI) {
		t.Error("I flag should be set after reset")
	}
}

func TestLDAImmediateAndFlags(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	r.mem[0x8000] = 0xA9 // LDA #$00
	r.mem[0x8001] = 0x00
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if e.GetA() != 0 {
		t.Errorf("A = %02X, want 00", e.GetA())
	}
	if !e.GetFlag(FlagZ) {
		t.Error("Z should be set for LDA #$00")
	}
	if e.GetFlag(FlagN) {
		t.Error("N should be clear for LDA #$00")
	}
}

func TestJSRAndRTS(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetSP(0xFD)
	r.mem[0x8000] = 0x20 // JSR $9000
	r.mem[0x8001] = 0x00
	r.mem[0x8002] = 0x90
	r.mem[0x9000] = 0x60 // RTS
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if e.GetPC() != 0x9000 {
		t.Fatalf("PC after JSR = %04X, want 9000", e.GetPC())
	}
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if e.GetPC() != 0x8003 {
		t.Fatalf("PC after RTS = %04X, want 8003", e.GetPC())
	}
}

// TestJMPIndirectPageWrapBug reproduces the classic NMOS bug: JMP ($44FF)
// reads its target's high byte from $4400, not $4500.
func TestJMPIndirectPageWrapBug(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	r.mem[0x8000] = 0x6C // JMP ($44FF)
	r.mem[0x8001] = 0xFF
	r.mem[0x8002] = 0x44
	r.mem[0x44FF] = 0x34
	r.mem[0x4500] = 0x12 // correct high byte, should be ignored
	r.mem[0x4400] = 0x56 // wrapped high byte, should be used
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if want := uint16(0x5634); e.GetPC() != want {
		t.Fatalf("PC after buggy JMP indirect = %04X, want %04X", e.GetPC(), want)
	}
}

// TestBranchPageCrossExtraCycle checks that a taken, page-crossing branch
// costs one more bus cycle than a taken, non-crossing one.
func TestBranchPageCrossExtraCycle(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x80FD)
	e.SetFlag(FlagZ, true)
	r.mem[0x80FD] = 0xF0 // BEQ +4 -> crosses from page 80 to 81
	r.mem[0x80FE] = 0x04
	cycles := 0
	for {
		done, err := e.StepCycle(r)
		if err != nil {
			t.Fatal(err)
		}
		cycles++
		if done {
			break
		}
	}
	if cycles != 4 {
		t.Errorf("taken+crossing BEQ took %d cycles, want 4", cycles)
	}
	if want := uint16(0x8103); e.GetPC() != want {
		t.Errorf("PC after crossing branch = %04X, want %04X", e.GetPC(), want)
	}
}

// TestADCDecimalMode checks the classic 0x79 + 0x00 with carry set BCD
// case (Bruce Clark's test suite staple): result should be 0x80 with N
// set and V set, even though the binary-mode flags would disagree.
func TestADCDecimalMode(t *testing.T) {
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
	if !e.GetFlag(FlagN) {
		t.Error("N should be set (intermediate sum 0x80 has bit 7 set)")
	}
	if !e.GetFlag(FlagV) {
		t.Error("V should be set")
	}
	if e.GetFlag(FlagC) {
		t.Error("C should be clear (no decimal carry out of 0x79+0x00+1)")
	}
}

// TestCycleBusEquivalence runs the same program once via RunInstruction
// and once via repeated StepCycle calls against identical RAM contents,
// and checks the two produce byte-identical bus traces.
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

// TestNotReadyRetriesSameCycle checks that a bus stall leaves engine state
// untouched and the identical cycle is retried.
func TestNotReadyRetriesSameCycle(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	r.mem[0x8000] = 0xA9
	r.mem[0x8001] = 0x55
	stall := &stallOnceBus{flatRAM: r, stallAt: 0x8001}
	if _, err := e.StepCycle(stall); err != nil {
		t.Fatal(err)
	}
	_, err := e.StepCycle(stall)
	require.ErrorIs(t, err, ErrNotReady)
	if !e.PartialInst() {
		t.Error("instruction should still be partial after a stall")
	}
	done, err := e.StepCycle(stall)
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Error("instruction should complete once the stall clears")
	}
	if e.GetA() != 0x55 {
		t.Errorf("A = %02X, want 55", e.GetA())
	}
}

// TestXAAMagicConstant checks XAA #imm ($8B): A = (A|0xFF) & X & imm,
// which collapses to X & imm regardless of A's prior value given this
// engine's choice of magic constant 0xFF.
func TestXAAMagicConstant(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetA(0x00)
	e.SetX(0x0F)
	r.mem[0x8000] = 0x8B
	r.mem[0x8001] = 0xFF
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if e.GetA() != 0x0F {
		t.Errorf("A after XAA = %02X, want 0F", e.GetA())
	}
}

// TestLAXImmediateMagicConstant checks LAX #imm/OAL ($AB): with this
// engine's magic constant of 0, A = X = A & imm.
func TestLAXImmediateMagicConstant(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetA(0x0F)
	r.mem[0x8000] = 0xAB
	r.mem[0x8001] = 0x3C
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if e.GetA() != 0x0C || e.GetX() != 0x0C {
		t.Errorf("A/X after LAX #imm = %02X/%02X, want 0C/0C", e.GetA(), e.GetX())
	}
}

// TestLAS checks LAS $nnnn,Y ($BB): SP &= mem[addr]; A = X = SP.
func TestLAS(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetSP(0xFF)
	e.SetY(0x00)
	r.mem[0x8000] = 0xBB
	r.mem[0x8001] = 0x00
	r.mem[0x8002] = 0x90
	r.mem[0x9000] = 0x0F
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if e.GetSP() != 0x0F || e.GetA() != 0x0F || e.GetX() != 0x0F {
		t.Errorf("SP/A/X after LAS = %02X/%02X/%02X, want 0F/0F/0F", e.GetSP(), e.GetA(), e.GetX())
	}
}

// TestAHXZPIndirectYNoPageCross checks AHX ($nn),Y ($93) on a non-crossing
// access: the stored value is A & X & (addr.hi()+1) and the target address
// is the plain, uncorrupted one.
func TestAHXZPIndirectYNoPageCross(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetA(0xFF)
	e.SetX(0xFF)
	e.SetY(0x01)
	r.mem[0x8000] = 0x93 // AHX ($10),Y
	r.mem[0x8001] = 0x10
	r.mem[0x0010] = 0x00
	r.mem[0x0011] = 0x20
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if r.mem[0x2001] != 0x21 {
		t.Errorf("mem[$2001] after AHX (zp),Y = %02X, want 21", r.mem[0x2001])
	}
}

// TestAHXZPIndirectYPageCross checks AHX ($nn),Y ($93) on a crossing
// access: the target address's high byte is corrupted to the stored
// value instead of the real carried-out page.
func TestAHXZPIndirectYPageCross(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetA(0xFF)
	e.SetX(0xF0)
	e.SetY(0x01)
	r.mem[0x8000] = 0x93 // AHX ($10),Y
	r.mem[0x8001] = 0x10
	r.mem[0x0010] = 0xFF
	r.mem[0x0011] = 0x20 // vector $20FF; +Y(1) carries to $2100
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	// lo_byte = 0xFF & 0xF0 & (0x20+1) = 0x20; corrupted target is
	// (0x20FF+1).lo()=0x00 combined with lo_byte as the new high byte,
	// i.e. $2000.
	if r.mem[0x2100] != 0 {
		t.Errorf("mem[$2100] should be untouched (corrupted target used), got %02X", r.mem[0x2100])
	}
	if r.mem[0x2000] != 0x20 {
		t.Errorf("mem[$2000] after corrupted AHX store = %02X, want 20", r.mem[0x2000])
	}
}

// TestSHYAbsoluteXNoPageCross checks SHY $nnnn,X ($9C) on a non-crossing
// access: Y & (addr.hi()+1) stored at the plain target address.
func TestSHYAbsoluteXNoPageCross(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetY(0x12)
	e.SetX(0x01)
	r.mem[0x8000] = 0x9C // SHY $2000,X
	r.mem[0x8001] = 0x00
	r.mem[0x8002] = 0x20
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if want := uint8(0x12 & 0x21); r.mem[0x2001] != want {
		t.Errorf("mem[$2001] after SHY (no cross) = %02X, want %02X", r.mem[0x2001], want)
	}
}

// TestSHYAbsoluteXPageCross checks SHY $nnnn,X ($9C) on a crossing
// access: the store lands at the corrupted (wrong-page) address, not the
// real target, demonstrating the address-corruption quirk.
func TestSHYAbsoluteXPageCross(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetY(0x12)
	e.SetX(0x01)
	r.mem[0x8000] = 0x9C // SHY $21FF,X -> real target $2200, corrupted to $0200
	r.mem[0x8001] = 0xFF
	r.mem[0x8002] = 0x21
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if r.mem[0x2200] != 0 {
		t.Errorf("mem[$2200] should be untouched (corrupted target used), got %02X", r.mem[0x2200])
	}
	if want := uint8(0x12 & 0x22); r.mem[0x0200] != want {
		t.Errorf("mem[$0200] after corrupted SHY store = %02X, want %02X", r.mem[0x0200], want)
	}
}

// TestSHXAbsoluteY checks SHX $nnnn,Y ($9E): X & (addr.hi()+1) stored at
// the (here, non-crossing) target address.
func TestSHXAbsoluteY(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetX(0x34)
	e.SetY(0x01)
	r.mem[0x8000] = 0x9E // SHX $3000,Y
	r.mem[0x8001] = 0x00
	r.mem[0x8002] = 0x30
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if want := uint8(0x34 & 0x31); r.mem[0x3001] != want {
		t.Errorf("mem[$3001] after SHX = %02X, want %02X", r.mem[0x3001], want)
	}
}

// TestTAS checks TAS $nnnn,Y ($9B): SP is latched to A&X immediately (not
// masked by the address-corruption formula), and A&X&(addr.hi()+1) is
// stored at the target address.
func TestTAS(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetA(0xF0)
	e.SetX(0x0F)
	e.SetY(0x01)
	r.mem[0x8000] = 0x9B // TAS $4000,Y
	r.mem[0x8001] = 0x00
	r.mem[0x8002] = 0x40
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if e.GetSP() != 0xF0&0x0F {
		t.Errorf("SP after TAS = %02X, want %02X", e.GetSP(), 0xF0&0x0F)
	}
	if want := uint8(0xF0 & 0x0F & 0x41); r.mem[0x4001] != want {
		t.Errorf("mem[$4001] after TAS = %02X, want %02X", r.mem[0x4001], want)
	}
}

// TestAHXAbsoluteY checks AHX $nnnn,Y ($9F), the absolute-addressed
// sibling of $93: A&X&(addr.hi()+1) stored at the target address.
func TestAHXAbsoluteY(t *testing.T) {
	r := newFlatRAM()
	e := newTestEngine(r)
	e.SetPC(0x8000)
	e.SetA(0xFF)
	e.SetX(0x0F)
	e.SetY(0x01)
	r.mem[0x8000] = 0x9F // AHX $5000,Y
	r.mem[0x8001] = 0x00
	r.mem[0x8002] = 0x50
	if err := e.RunInstruction(r); err != nil {
		t.Fatal(err)
	}
	if want := uint8(0xFF & 0x0F & 0x51); r.mem[0x5001] != want {
		t.Errorf("mem[$5001] after AHX abs,Y = %02X, want %02X", r.mem[0x5001], want)
	}
}

type stallOnceBus struct {
	*flatRAM
	stallAt  uint16
	didStall bool
}

func (s *stallOnceBus) Read(addr uint16) (uint8, bool) {
	if addr == s.stallAt && !s.didStall {
		s.didStall = true
		return 0, false
	}
	return s.flatRAM.Read(addr)
}
