package nmos

// P_* are the bit positions of the packed status byte, used only when
// packing/unpacking for PHP/PLP/BRK/RTI. Internally flags are kept
// decomposed: n/z hold the last result byte (tested lazily), the rest are
// plain booleans.
const (
	pNegative = uint8(0x80)
	pOverflow = uint8(0x40)
	pAlways1  = uint8(0x20)
	pBreak    = uint8(0x10)
	pDecimal  = uint8(0x08)
	pInterrupt = uint8(0x04)
	pZero     = uint8(0x02)
	pCarry    = uint8(0x01)
)

// flags holds the six 6502 status bits in decomposed form so that N and Z
// can be derived from the last ALU/load result without a masking step on
// every operation; V, D, I and C are tracked directly since they aren't a
// simple function of a result byte.
type flags struct {
	n uint8 // bit 7 of the last result is the N flag
	z uint8 // last result is zero iff Z is set
	v bool
	d bool
	i bool
	c bool
}

func (f *flags) setNZ(val uint8) {
	f.n = val
	f.z = val
}

func (f *flags) nFlag() bool { return f.n&pNegative != 0 }
func (f *flags) zFlag() bool { return f.z == 0 }

func (f *flags) setCarry(set bool)    { f.c = set }
func (f *flags) carryBit() uint8 {
	if f.c {
		return 1
	}
	return 0
}

// toByte packs the decomposed flags into a status byte. Bits 4 (B) and 5
// are forced to 1, matching PHP/BRK push semantics; callers that need the
// hardware IRQ/NMI variant (B clear) mask it out themselves.
func (f *flags) toByte() uint8 {
	var b uint8
	b |= f.n & pNegative
	if f.v {
		b |= pOverflow
	}
	b |= pAlways1 | pBreak
	if f.d {
		b |= pDecimal
	}
	if f.i {
		b |= pInterrupt
	}
	if f.zFlag() {
		b |= pZero
	}
	if f.c {
		b |= pCarry
	}
	return b
}

// fromByte unpacks a status byte (from PLP/RTI) into decomposed form.
func (f *flags) fromByte(b uint8) {
	f.n = b
	f.v = b&pOverflow != 0
	f.d = b&pDecimal != 0
	f.i = b&pInterrupt != 0
	if b&pZero != 0 {
		f.z = 0
	} else {
		f.z = 1
	}
	f.c = b&pCarry != 0
}
