package value

import "testing"

func TestFromBytesHiLo(t *testing.T) {
	a := FromBytes(0x55, 0xAA)
	if got, want := a, Addr(0xAA55); got != want {
		t.Fatalf("FromBytes(0x55, 0xAA) = %04X, want %04X", got, want)
	}
	if got, want := a.Lo(), uint8(0x55); got != want {
		t.Errorf("Lo() = %02X, want %02X", got, want)
	}
	if got, want := a.Hi(), uint8(0xAA); got != want {
		t.Errorf("Hi() = %02X, want %02X", got, want)
	}
}

func TestZPAndStack(t *testing.T) {
	if got, want := ZP(0xFE), Addr(0x00FE); got != want {
		t.Errorf("ZP(0xFE) = %04X, want %04X", got, want)
	}
	if got, want := Stack(0xFD), Addr(0x01FD); got != want {
		t.Errorf("Stack(0xFD) = %04X, want %04X", got, want)
	}
}

func TestNoCarry(t *testing.T) {
	// 0x02FF + 0x01 would carry into the high byte on normal arithmetic,
	// but NoCarry must wrap within the same page, reproducing the wrong
	// address the 6502 actually drives onto the bus.
	a := Addr(0x02FF)
	if got, want := a.NoCarry(1), Addr(0x0200); got != want {
		t.Errorf("NoCarry(1) = %04X, want %04X", got, want)
	}
	if !a.CheckCarry(1) {
		t.Error("CheckCarry(1) = false, want true (crosses page)")
	}
	b := Addr(0x0200)
	if got, want := b.NoCarry(0x10), Addr(0x0210); got != want {
		t.Errorf("NoCarry(0x10) = %04X, want %04X", got, want)
	}
	if b.CheckCarry(0x10) {
		t.Error("CheckCarry(0x10) = true, want false (same page)")
	}
}

func TestAddSignedWrap(t *testing.T) {
	a := Addr(0x00F0)
	if got, want := a.AddSigned(BranchOffset(0x20)), Addr(0x0110); got != want {
		t.Errorf("AddSigned(+0x20) = %04X, want %04X", got, want)
	}
	b := Addr(0x0010)
	if got, want := b.AddSigned(BranchOffset(0xF0)), Addr(0x0000); got != want { // -16
		t.Errorf("AddSigned(-16) = %04X, want %04X", got, want)
	}
}
