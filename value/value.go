// Package value implements the small wrapping-arithmetic value layer shared
// by the nmos and cmos engines: 16-bit address composition and the
// no-carry/check-carry arithmetic that drives dummy-read emulation during
// indexed addressing, plus signed relative-branch math.
package value

// Addr is a 16-bit bus address with the composition helpers every indexed
// or indirect addressing mode needs.
type Addr uint16

// FromBytes composes a 16-bit address from its low and high bytes, the way
// absolute/indirect addressing modes assemble an effective address from two
// fetched operand bytes.
func FromBytes(lo, hi uint8) Addr {
	return Addr(uint16(hi)<<8 | uint16(lo))
}

// Hi returns the high byte of the address.
func (a Addr) Hi() uint8 { return uint8(a >> 8) }

// Lo returns the low byte of the address.
func (a Addr) Lo() uint8 { return uint8(a) }

// ZP builds a zero-page address (high byte forced to 0).
func ZP(lo uint8) Addr { return Addr(lo) }

// Stack builds a stack-page address (high byte forced to 1).
func Stack(lo uint8) Addr { return Addr(0x0100) | Addr(lo) }

// NoCarry adds offset to the address's low byte without propagating any
// carry into the high byte. This is the bus address the real chip reads
// from (wrongly) during indexed addressing before it has finished adding
// the carry, and the address the indirect-vector wrap quirk depends on.
func (a Addr) NoCarry(offset uint8) Addr {
	return (a & 0xFF00) | Addr(a.Lo()+offset)
}

// CheckCarry reports whether adding offset to the address would propagate
// into the high byte, i.e. whether this is a page-crossing access.
func (a Addr) CheckCarry(offset uint8) bool {
	return a.NoCarry(offset) != a+Addr(offset)
}

// BranchOffset sign-extends a raw relative-branch operand byte.
func BranchOffset(b uint8) int8 { return int8(b) }

// AddSigned adds a signed branch offset to the address, matching the final
// (carry-correct) PC the 6502 lands on after a taken branch.
func (a Addr) AddSigned(offset int8) Addr {
	return Addr(int32(a) + int32(offset))
}
