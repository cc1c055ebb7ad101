package cmos

import (
	"github.com/jchacon-labs/sixtyfiveo2/bus"
	"github.com/jchacon-labs/sixtyfiveo2/value"
)

type opFunc func(e *Engine, b bus.Bus) (bool, error)

func loadInstruction(addrFn addrFunc, apply func(e *Engine, v uint8)) opFunc {
	return func(e *Engine, b bus.Bus) (bool, error) {
		if !e.addrDone {
			addr, done, err := addrFn(e, b)
			if err != nil {
				return false, err
			}
			if done {
				e.opAddr = addr
				e.addrDone = true
			}
			return false, nil
		}
		v, err := e.load(b, e.opAddr)
		if err != nil {
			return false, err
		}
		apply(e, v)
		return true, nil
	}
}

// loadInstructionDecimal wraps loadInstruction for ADC/SBC: in decimal
// mode the 65C02 takes one extra cycle to perform the BCD correction in
// hardware, modeled here as a trailing dummy read of PC.
func loadInstructionDecimal(addrFn addrFunc, apply func(e *Engine, v uint8)) opFunc {
	return func(e *Engine, b bus.Bus) (bool, error) {
		if !e.addrDone {
			addr, done, err := addrFn(e, b)
			if err != nil {
				return false, err
			}
			if done {
				e.opAddr = addr
				e.addrDone = true
			}
			return false, nil
		}
		switch e.opPhase {
		case 0:
			if !e.f.d {
				e.pollSignals(b)
			}
			v, err := e.read(b, e.opAddr)
			if err != nil {
				return false, err
			}
			e.opVal = v
			if !e.f.d {
				apply(e, v)
				return true, nil
			}
			e.opPhase = 1
			return false, nil
		default:
			e.pollSignals(b)
			if _, err := e.read(b, value.Addr(e.PC)); err != nil {
				return false, err
			}
			apply(e, e.opVal)
			return true, nil
		}
	}
}

func storeInstruction(addrFn addrFunc, val func(e *Engine) uint8) opFunc {
	return func(e *Engine, b bus.Bus) (bool, error) {
		if !e.addrDone {
			addr, done, err := addrFn(e, b)
			if err != nil {
				return false, err
			}
			if done {
				e.opAddr = addr
				e.addrDone = true
			}
			return false, nil
		}
		if err := e.store(b, e.opAddr, val(e)); err != nil {
			return false, err
		}
		return true, nil
	}
}

// rmwInstruction reflects the CMOS fix: the dummy write-back of the old
// value is replaced by a second read, so RMW opcodes no longer write a
// memory-mapped I/O register twice.
func rmwInstruction(addrFn addrFunc, alu func(e *Engine, v uint8) uint8) opFunc {
	return func(e *Engine, b bus.Bus) (bool, error) {
		if !e.addrDone {
			addr, done, err := addrFn(e, b)
			if err != nil {
				return false, err
			}
			if done {
				e.opAddr = addr
				e.addrDone = true
			}
			return false, nil
		}
		switch e.opPhase {
		case 0:
			v, err := e.read(b, e.opAddr)
			if err != nil {
				return false, err
			}
			e.opVal = v
			e.opPhase = 1
			return false, nil
		case 1:
			if _, err := e.read(b, e.opAddr); err != nil {
				return false, err
			}
			e.opVal = alu(e, e.opVal)
			e.opPhase = 2
			return false, nil
		default:
			if err := e.store(b, e.opAddr, e.opVal); err != nil {
				return false, err
			}
			return true, nil
		}
	}
}

func immediateInstruction(apply func(e *Engine, v uint8)) opFunc {
	return func(e *Engine, b bus.Bus) (bool, error) {
		e.pollSignals(b)
		v, err := e.fetchOperand(b)
		if err != nil {
			return false, err
		}
		apply(e, v)
		return true, nil
	}
}

// immediateInstructionDecimal handles ADC #imm/SBC #imm's extra decimal
// cycle.
func immediateInstructionDecimal(apply func(e *Engine, v uint8)) opFunc {
	return func(e *Engine, b bus.Bus) (bool, error) {
		switch e.opPhase {
		case 0:
			v, err := e.fetchOperand(b)
			if err != nil {
				return false, err
			}
			e.opVal = v
			if !e.f.d {
				e.pollSignals(b)
				apply(e, v)
				return true, nil
			}
			e.opPhase = 1
			return false, nil
		default:
			e.pollSignals(b)
			if _, err := e.read(b, value.Addr(e.PC)); err != nil {
				return false, err
			}
			apply(e, e.opVal)
			return true, nil
		}
	}
}

func impliedInstruction(fn func(e *Engine)) opFunc {
	return func(e *Engine, b bus.Bus) (bool, error) {
		e.pollSignals(b)
		if _, err := e.read(b, value.Addr(e.PC)); err != nil {
			return false, err
		}
		fn(e)
		return true, nil
	}
}

func accumulatorInstruction(alu func(e *Engine, v uint8) uint8) opFunc {
	return func(e *Engine, b bus.Bus) (bool, error) {
		e.pollSignals(b)
		if _, err := e.read(b, value.Addr(e.PC)); err != nil {
			return false, err
		}
		e.A = alu(e, e.A)
		return true, nil
	}
}

func branchInstruction(cond func(e *Engine) bool) opFunc {
	return func(e *Engine, b bus.Bus) (bool, error) {
		switch e.opPhase {
		case 0:
			e.pollSignals(b)
			off, err := e.fetchOperand(b)
			if err != nil {
				return false, err
			}
			if !cond(e) {
				return true, nil
			}
			base := value.Addr(e.PC)
			target := base.AddSigned(value.BranchOffset(off))
			e.opAddr = target
			e.base1 = base
			e.crossed = base.Hi() != target.Hi()
			e.opPhase = 1
			return false, nil
		case 1:
			dummy := value.FromBytes(e.opAddr.Lo(), e.base1.Hi())
			if _, err := e.read(b, dummy); err != nil {
				return false, err
			}
			if !e.crossed {
				e.PC = uint16(e.opAddr)
				return true, nil
			}
			e.opPhase = 2
			return false, nil
		default:
			e.pollSignals(b)
			if _, err := e.read(b, e.opAddr); err != nil {
				return false, err
			}
			e.PC = uint16(e.opAddr)
			return true, nil
		}
	}
}

// opBRA is the unconditional branch the 65C02 adds; it always takes, so
// it never pays the non-taken short path, but still pays the page-cross
// cycle like any other branch.
func opBRA(e *Engine, b bus.Bus) (bool, error) {
	return branchInstruction(func(*Engine) bool { return true })(e, b)
}

func opJMPAbs(e *Engine, b bus.Bus) (bool, error) {
	switch e.opPhase {
	case 0:
		lo, err := e.fetchOperand(b)
		if err != nil {
			return false, err
		}
		e.lo = lo
		e.opPhase = 1
		return false, nil
	default:
		e.pollSignals(b)
		hi, err := e.fetchOperand(b)
		if err != nil {
			return false, err
		}
		e.PC = uint16(value.FromBytes(e.lo, hi))
		return true, nil
	}
}

// opJMPInd is the 65C02's bug-fixed indirect JMP: the pointer's high byte
// always comes from ptr+1 with a full 16-bit increment, never wrapping
// within the page, at the cost of one extra cycle versus the NMOS form.
func opJMPInd(e *Engine, b bus.Bus) (bool, error) {
	switch e.opPhase {
	case 0:
		lo, err := e.fetchOperand(b)
		if err != nil {
			return false, err
		}
		e.lo = lo
		e.opPhase = 1
		return false, nil
	case 1:
		hi, err := e.fetchOperand(b)
		if err != nil {
			return false, err
		}
		e.base1 = value.FromBytes(e.lo, hi)
		e.opPhase = 2
		return false, nil
	case 2:
		// Extra internal cycle the CMOS part spends recovering from the
		// fixed-up fetch; modeled as a dummy read of the pointer itself.
		if _, err := e.read(b, e.base1); err != nil {
			return false, err
		}
		e.opPhase = 3
		return false, nil
	case 3:
		lo2, err := e.read(b, e.base1)
		if err != nil {
			return false, err
		}
		e.opVal = lo2
		e.opPhase = 4
		return false, nil
	default:
		e.pollSignals(b)
		hi2, err := e.read(b, e.base1+1)
		if err != nil {
			return false, err
		}
		e.PC = uint16(value.FromBytes(e.opVal, hi2))
		return true, nil
	}
}

// opJMPIndX is the 65C02 addition JMP ($nnnn,X).
func opJMPIndX(e *Engine, b bus.Bus) (bool, error) {
	switch e.opPhase {
	case 0:
		lo, err := e.fetchOperand(b)
		if err != nil {
			return false, err
		}
		e.lo = lo
		e.opPhase = 1
		return false, nil
	case 1:
		hi, err := e.fetchOperand(b)
		if err != nil {
			return false, err
		}
		e.base1 = value.FromBytes(e.lo, hi) + value.Addr(e.X)
		e.opPhase = 2
		return false, nil
	case 2:
		if _, err := e.read(b, value.Addr(e.PC)); err != nil {
			return false, err
		}
		e.opPhase = 3
		return false, nil
	case 3:
		lo2, err := e.read(b, e.base1)
		if err != nil {
			return false, err
		}
		e.opVal = lo2
		e.opPhase = 4
		return false, nil
	default:
		e.pollSignals(b)
		hi2, err := e.read(b, e.base1+1)
		if err != nil {
			return false, err
		}
		e.PC = uint16(value.FromBytes(e.opVal, hi2))
		return true, nil
	}
}

func opJSR(e *Engine, b bus.Bus) (bool, error) {
	switch e.opPhase {
	case 0:
		lo, err := e.fetchOperand(b)
		if err != nil {
			return false, err
		}
		e.lo = lo
		e.base1 = value.Addr(e.PC)
		e.opPhase = 1
		return false, nil
	case 1:
		if _, err := e.read(b, value.Stack(e.SP)); err != nil {
			return false, err
		}
		e.opPhase = 2
		return false, nil
	case 2:
		if err := e.pushStack(b, e.base1.Hi()); err != nil {
			return false, err
		}
		e.opPhase = 3
		return false, nil
	case 3:
		if err := e.pushStack(b, e.base1.Lo()); err != nil {
			return false, err
		}
		e.opPhase = 4
		return false, nil
	default:
		e.pollSignals(b)
		hi, err := e.fetchOperand(b)
		if err != nil {
			return false, err
		}
		e.PC = uint16(value.FromBytes(e.lo, hi))
		return true, nil
	}
}

func opRTS(e *Engine, b bus.Bus) (bool, error) {
	switch e.opPhase {
	case 0:
		if _, err := e.read(b, value.Addr(e.PC)); err != nil {
			return false, err
		}
		e.opPhase = 1
		return false, nil
	case 1:
		if _, err := e.read(b, value.Stack(e.SP)); err != nil {
			return false, err
		}
		e.opPhase = 2
		return false, nil
	case 2:
		lo, err := e.popStackRead(b)
		if err != nil {
			return false, err
		}
		e.lo = lo
		e.opPhase = 3
		return false, nil
	case 3:
		hi, err := e.popStackRead(b)
		if err != nil {
			return false, err
		}
		e.base1 = value.FromBytes(e.lo, hi)
		e.opPhase = 4
		return false, nil
	default:
		e.pollSignals(b)
		if _, err := e.read(b, e.base1); err != nil {
			return false, err
		}
		e.PC = uint16(e.base1) + 1
		return true, nil
	}
}

func opRTI(e *Engine, b bus.Bus) (bool, error) {
	switch e.opPhase {
	case 0:
		if _, err := e.read(b, value.Addr(e.PC)); err != nil {
			return false, err
		}
		e.opPhase = 1
		return false, nil
	case 1:
		if _, err := e.read(b, value.Stack(e.SP)); err != nil {
			return false, err
		}
		e.opPhase = 2
		return false, nil
	case 2:
		status, err := e.popStackRead(b)
		if err != nil {
			return false, err
		}
		e.f.fromByte(status)
		e.opPhase = 3
		return false, nil
	case 3:
		lo, err := e.popStackRead(b)
		if err != nil {
			return false, err
		}
		e.lo = lo
		e.opPhase = 4
		return false, nil
	default:
		e.pollSignals(b)
		hi, err := e.popStackRead(b)
		if err != nil {
			return false, err
		}
		e.PC = uint16(value.FromBytes(e.lo, hi))
		return true, nil
	}
}

func pushInstruction(val func(e *Engine) uint8) opFunc {
	return func(e *Engine, b bus.Bus) (bool, error) {
		switch e.opPhase {
		case 0:
			if _, err := e.read(b, value.Addr(e.PC)); err != nil {
				return false, err
			}
			e.opPhase = 1
			return false, nil
		default:
			e.pollSignals(b)
			if err := e.pushStack(b, val(e)); err != nil {
				return false, err
			}
			return true, nil
		}
	}
}

func pullInstruction(apply func(e *Engine, v uint8)) opFunc {
	return func(e *Engine, b bus.Bus) (bool, error) {
		switch e.opPhase {
		case 0:
			if _, err := e.read(b, value.Addr(e.PC)); err != nil {
				return false, err
			}
			e.opPhase = 1
			return false, nil
		case 1:
			if _, err := e.read(b, value.Stack(e.SP)); err != nil {
				return false, err
			}
			e.opPhase = 2
			return false, nil
		default:
			e.pollSignals(b)
			v, err := e.popStackRead(b)
			if err != nil {
				return false, err
			}
			apply(e, v)
			return true, nil
		}
	}
}

// opBRK drives the shared interrupt/BRK/reset sequence. The one CMOS
// delta from the NMOS version: D is always cleared when the sequence
// completes, whether entered via BRK, IRQ, NMI or reset, so a pending
// interrupt handler is never surprised by a stale decimal mode.
func opBRK(e *Engine, b bus.Bus) (bool, error) {
	switch e.opPhase {
	case 0:
		if _, err := e.read(b, value.Addr(e.PC)); err != nil {
			return false, err
		}
		if !e.forcedInterrupt {
			e.PC++
		}
		e.opPhase = 1
		return false, nil
	case 1:
		pch := value.Addr(e.PC).Hi()
		if e.pendingReset {
			if err := e.popStackDummy(b); err != nil {
				return false, err
			}
		} else if err := e.pushStack(b, pch); err != nil {
			return false, err
		}
		e.opPhase = 2
		return false, nil
	case 2:
		pcl := value.Addr(e.PC).Lo()
		if e.pendingReset {
			if err := e.popStackDummy(b); err != nil {
				return false, err
			}
		} else if err := e.pushStack(b, pcl); err != nil {
			return false, err
		}
		e.opPhase = 3
		return false, nil
	case 3:
		switch {
		case e.pendingReset:
			e.vector = resetVector
		case e.nmiEdge:
			e.nmiEdge = false
			if b.NMILength() == bus.NMIPlenty {
				e.vector = nmiVector
			} else {
				e.vector = irqVector
			}
		default:
			e.vector = irqVector
		}
		status := e.f.toByte()
		if e.forcedInterrupt {
			status &^= pBreak
		}
		if e.pendingReset {
			if err := e.popStackDummy(b); err != nil {
				return false, err
			}
		} else if err := e.pushStack(b, status); err != nil {
			return false, err
		}
		e.opPhase = 4
		return false, nil
	case 4:
		lo, err := e.read(b, e.vector)
		if err != nil {
			return false, err
		}
		e.lo = lo
		e.opPhase = 5
		return false, nil
	default:
		if b.PollNMI() {
			e.nmiEdge = true
		}
		hi, err := e.read(b, e.vector+1)
		if err != nil {
			return false, err
		}
		e.PC = uint16(value.FromBytes(e.lo, hi))
		e.f.i = true
		e.f.d = false
		e.pendingReset = false
		e.forcedInterrupt = false
		e.hijack = false
		return true, nil
	}
}

func nop1() opFunc { return impliedInstruction(func(*Engine) {}) }

// opNOP5C is the eight-cycle NOP at 0x5C: it fetches an absolute operand
// like a real instruction, forces the high byte of the first dummy read to
// 0xFF, then reads $FFFF three more times before the final polling read.
func opNOP5C(e *Engine, b bus.Bus) (bool, error) {
	switch e.opPhase {
	case 0:
		lo, err := e.fetchOperand(b)
		if err != nil {
			return false, err
		}
		e.lo = lo
		e.opPhase = 1
		return false, nil
	case 1:
		if _, err := e.fetchOperand(b); err != nil {
			return false, err
		}
		e.base1 = value.FromBytes(e.lo, 0xFF)
		e.opPhase = 2
		return false, nil
	case 2:
		if _, err := e.read(b, e.base1); err != nil {
			return false, err
		}
		e.opPhase = 3
		return false, nil
	case 3:
		if _, err := e.read(b, value.Addr(0xFFFF)); err != nil {
			return false, err
		}
		e.opPhase = 4
		return false, nil
	case 4:
		if _, err := e.read(b, value.Addr(0xFFFF)); err != nil {
			return false, err
		}
		e.opPhase = 5
		return false, nil
	case 5:
		if _, err := e.read(b, value.Addr(0xFFFF)); err != nil {
			return false, err
		}
		e.opPhase = 6
		return false, nil
	default:
		if _, err := e.load(b, value.Addr(0xFFFF)); err != nil {
			return false, err
		}
		return true, nil
	}
}

var cmosDispatch [256]opFunc

func init() {
	// Every illegal NMOS opcode is a well-defined NOP on the 65C02,
	// costing anywhere from two to eight bus cycles (opcode fetch
	// included) depending on its row; defaulting the whole table to an
	// implied NOP (fetch plus one dummy read of PC) and only overriding
	// the 2-/3-byte NOP rows below reproduces that without hand-listing
	// all 256 slots.
	for i := range cmosDispatch {
		cmosDispatch[i] = nop1()
	}

	regX := func(e *Engine) uint8 { return e.X }
	regY := func(e *Engine) uint8 { return e.Y }

	lda := func(e *Engine, v uint8) { e.A = v; e.f.setNZ(v) }
	ldx := func(e *Engine, v uint8) { e.X = v; e.f.setNZ(v) }
	ldy := func(e *Engine, v uint8) { e.Y = v; e.f.setNZ(v) }
	sta := func(e *Engine) uint8 { return e.A }
	stx := func(e *Engine) uint8 { return e.X }
	sty := func(e *Engine) uint8 { return e.Y }
	stz := func(e *Engine) uint8 { return 0 }

	cmosDispatch[0xA9] = immediateInstruction(lda)
	cmosDispatch[0xA5] = loadInstruction(addrZP, lda)
	cmosDispatch[0xB5] = loadInstruction(addrZPIndexed(regX), lda)
	cmosDispatch[0xAD] = loadInstruction(addrAbsolute, lda)
	cmosDispatch[0xBD] = loadInstruction(addrAbsoluteIndexed(regX, false), lda)
	cmosDispatch[0xB9] = loadInstruction(addrAbsoluteIndexed(regY, false), lda)
	cmosDispatch[0xA1] = loadInstruction(addrIndirectX, lda)
	cmosDispatch[0xB1] = loadInstruction(addrIndirectY(false), lda)
	cmosDispatch[0xB2] = loadInstruction(addrZPIndirect, lda)

	cmosDispatch[0xA2] = immediateInstruction(ldx)
	cmosDispatch[0xA6] = loadInstruction(addrZP, ldx)
	cmosDispatch[0xB6] = loadInstruction(addrZPIndexed(regY), ldx)
	cmosDispatch[0xAE] = loadInstruction(addrAbsolute, ldx)
	cmosDispatch[0xBE] = loadInstruction(addrAbsoluteIndexed(regY, false), ldx)

	cmosDispatch[0xA0] = immediateInstruction(ldy)
	cmosDispatch[0xA4] = loadInstruction(addrZP, ldy)
	cmosDispatch[0xB4] = loadInstruction(addrZPIndexed(regX), ldy)
	cmosDispatch[0xAC] = loadInstruction(addrAbsolute, ldy)
	cmosDispatch[0xBC] = loadInstruction(addrAbsoluteIndexed(regX, false), ldy)

	cmosDispatch[0x85] = storeInstruction(addrZP, sta)
	cmosDispatch[0x95] = storeInstruction(addrZPIndexed(regX), sta)
	cmosDispatch[0x8D] = storeInstruction(addrAbsolute, sta)
	cmosDispatch[0x9D] = storeInstruction(addrAbsoluteIndexed(regX, true), sta)
	cmosDispatch[0x99] = storeInstruction(addrAbsoluteIndexed(regY, true), sta)
	cmosDispatch[0x81] = storeInstruction(addrIndirectX, sta)
	cmosDispatch[0x91] = storeInstruction(addrIndirectY(true), sta)
	cmosDispatch[0x92] = storeInstruction(addrZPIndirect, sta)

	cmosDispatch[0x86] = storeInstruction(addrZP, stx)
	cmosDispatch[0x96] = storeInstruction(addrZPIndexed(regY), stx)
	cmosDispatch[0x8E] = storeInstruction(addrAbsolute, stx)

	cmosDispatch[0x84] = storeInstruction(addrZP, sty)
	cmosDispatch[0x94] = storeInstruction(addrZPIndexed(regX), sty)
	cmosDispatch[0x8C] = storeInstruction(addrAbsolute, sty)

	// STZ: the 65C02 addition for zeroing memory without an accumulator
	// round trip.
	cmosDispatch[0x64] = storeInstruction(addrZP, stz)
	cmosDispatch[0x74] = storeInstruction(addrZPIndexed(regX), stz)
	cmosDispatch[0x9C] = storeInstruction(addrAbsolute, stz)
	cmosDispatch[0x9E] = storeInstruction(addrAbsoluteIndexed(regX, true), stz)

	cmosDispatch[0xAA] = impliedInstruction(func(e *Engine) { e.X = e.A; e.f.setNZ(e.X) })
	cmosDispatch[0xA8] = impliedInstruction(func(e *Engine) { e.Y = e.A; e.f.setNZ(e.Y) })
	cmosDispatch[0x8A] = impliedInstruction(func(e *Engine) { e.A = e.X; e.f.setNZ(e.A) })
	cmosDispatch[0x98] = impliedInstruction(func(e *Engine) { e.A = e.Y; e.f.setNZ(e.A) })
	cmosDispatch[0xBA] = impliedInstruction(func(e *Engine) { e.X = e.SP; e.f.setNZ(e.X) })
	cmosDispatch[0x9A] = impliedInstruction(func(e *Engine) { e.SP = e.X })
	cmosDispatch[0xE8] = impliedInstruction(func(e *Engine) { e.X++; e.f.setNZ(e.X) })
	cmosDispatch[0xCA] = impliedInstruction(func(e *Engine) { e.X--; e.f.setNZ(e.X) })
	cmosDispatch[0xC8] = impliedInstruction(func(e *Engine) { e.Y++; e.f.setNZ(e.Y) })
	cmosDispatch[0x88] = impliedInstruction(func(e *Engine) { e.Y--; e.f.setNZ(e.Y) })
	cmosDispatch[0x18] = impliedInstruction(func(e *Engine) { e.f.setCarry(false) })
	cmosDispatch[0x38] = impliedInstruction(func(e *Engine) { e.f.setCarry(true) })
	cmosDispatch[0x58] = impliedInstruction(func(e *Engine) { e.f.i = false })
	cmosDispatch[0x78] = impliedInstruction(func(e *Engine) { e.f.i = true })
	cmosDispatch[0xB8] = impliedInstruction(func(e *Engine) { e.f.v = false })
	cmosDispatch[0xD8] = impliedInstruction(func(e *Engine) { e.f.d = false })
	cmosDispatch[0xF8] = impliedInstruction(func(e *Engine) { e.f.d = true })
	cmosDispatch[0xEA] = nop1()

	// 65C02 accumulator INC/DEC.
	cmosDispatch[0x1A] = impliedInstruction(func(e *Engine) { e.A++; e.f.setNZ(e.A) })
	cmosDispatch[0x3A] = impliedInstruction(func(e *Engine) { e.A--; e.f.setNZ(e.A) })

	// Stack: PHX/PHY/PLX/PLY additions alongside PHA/PHP/PLA/PLP.
	cmosDispatch[0x48] = pushInstruction(func(e *Engine) uint8 { return e.A })
	cmosDispatch[0x08] = pushInstruction(func(e *Engine) uint8 { return e.f.toByte() })
	cmosDispatch[0xDA] = pushInstruction(func(e *Engine) uint8 { return e.X })
	cmosDispatch[0x5A] = pushInstruction(func(e *Engine) uint8 { return e.Y })
	cmosDispatch[0x68] = pullInstruction(func(e *Engine, v uint8) { e.A = v; e.f.setNZ(v) })
	cmosDispatch[0x28] = pullInstruction(func(e *Engine, v uint8) { e.f.fromByte(v) })
	cmosDispatch[0xFA] = pullInstruction(func(e *Engine, v uint8) { e.X = v; e.f.setNZ(v) })
	cmosDispatch[0x7A] = pullInstruction(func(e *Engine, v uint8) { e.Y = v; e.f.setNZ(v) })

	type aluRow struct {
		imm, zp, zpx, abs, absx, absy, izx, izy, izp uint8
		apply                                        func(e *Engine, v uint8)
		decimal                                       bool
	}
	aluRows := []aluRow{
		{0x29, 0x25, 0x35, 0x2D, 0x3D, 0x39, 0x21, 0x31, 0x32, func(e *Engine, v uint8) { e.aluAND(v) }, false},
		{0x09, 0x05, 0x15, 0x0D, 0x1D, 0x19, 0x01, 0x11, 0x12, func(e *Engine, v uint8) { e.aluORA(v) }, false},
		{0x49, 0x45, 0x55, 0x4D, 0x5D, 0x59, 0x41, 0x51, 0x52, func(e *Engine, v uint8) { e.aluEOR(v) }, false},
		{0x69, 0x65, 0x75, 0x6D, 0x7D, 0x79, 0x61, 0x71, 0x72, func(e *Engine, v uint8) { e.aluADC(v) }, true},
		{0xE9, 0xE5, 0xF5, 0xED, 0xFD, 0xF9, 0xE1, 0xF1, 0xF2, func(e *Engine, v uint8) { e.aluSBC(v) }, true},
		{0xC9, 0xC5, 0xD5, 0xCD, 0xDD, 0xD9, 0xC1, 0xD1, 0xD2, func(e *Engine, v uint8) { e.aluCompare(e.A, v) }, false},
	}
	for _, r := range aluRows {
		apply := r.apply
		if r.decimal {
			cmosDispatch[r.imm] = immediateInstructionDecimal(apply)
			cmosDispatch[r.zp] = loadInstructionDecimal(addrZP, apply)
			cmosDispatch[r.zpx] = loadInstructionDecimal(addrZPIndexed(regX), apply)
			cmosDispatch[r.abs] = loadInstructionDecimal(addrAbsolute, apply)
			cmosDispatch[r.absx] = loadInstructionDecimal(addrAbsoluteIndexed(regX, false), apply)
			cmosDispatch[r.absy] = loadInstructionDecimal(addrAbsoluteIndexed(regY, false), apply)
			cmosDispatch[r.izx] = loadInstructionDecimal(addrIndirectX, apply)
			cmosDispatch[r.izy] = loadInstructionDecimal(addrIndirectY(false), apply)
			cmosDispatch[r.izp] = loadInstructionDecimal(addrZPIndirect, apply)
			continue
		}
		cmosDispatch[r.imm] = immediateInstruction(apply)
		cmosDispatch[r.zp] = loadInstruction(addrZP, apply)
		cmosDispatch[r.zpx] = loadInstruction(addrZPIndexed(regX), apply)
		cmosDispatch[r.abs] = loadInstruction(addrAbsolute, apply)
		cmosDispatch[r.absx] = loadInstruction(addrAbsoluteIndexed(regX, false), apply)
		cmosDispatch[r.absy] = loadInstruction(addrAbsoluteIndexed(regY, false), apply)
		cmosDispatch[r.izx] = loadInstruction(addrIndirectX, apply)
		cmosDispatch[r.izy] = loadInstruction(addrIndirectY(false), apply)
		cmosDispatch[r.izp] = loadInstruction(addrZPIndirect, apply)
	}

	cmosDispatch[0xE0] = immediateInstruction(func(e *Engine, v uint8) { e.aluCompare(e.X, v) })
	cmosDispatch[0xE4] = loadInstruction(addrZP, func(e *Engine, v uint8) { e.aluCompare(e.X, v) })
	cmosDispatch[0xEC] = loadInstruction(addrAbsolute, func(e *Engine, v uint8) { e.aluCompare(e.X, v) })
	cmosDispatch[0xC0] = immediateInstruction(func(e *Engine, v uint8) { e.aluCompare(e.Y, v) })
	cmosDispatch[0xC4] = loadInstruction(addrZP, func(e *Engine, v uint8) { e.aluCompare(e.Y, v) })
	cmosDispatch[0xCC] = loadInstruction(addrAbsolute, func(e *Engine, v uint8) { e.aluCompare(e.Y, v) })

	cmosDispatch[0x24] = loadInstruction(addrZP, func(e *Engine, v uint8) { e.aluBIT(v) })
	cmosDispatch[0x2C] = loadInstruction(addrAbsolute, func(e *Engine, v uint8) { e.aluBIT(v) })
	// 65C02 BIT additions: zp,X / abs,X memory forms plus the #imm form
	// (which only ever touches Z).
	cmosDispatch[0x34] = loadInstruction(addrZPIndexed(regX), func(e *Engine, v uint8) { e.aluBIT(v) })
	cmosDispatch[0x3C] = loadInstruction(addrAbsoluteIndexed(regX, false), func(e *Engine, v uint8) { e.aluBIT(v) })
	cmosDispatch[0x89] = immediateInstruction(func(e *Engine, v uint8) { e.aluBITImmediate(v) })

	type shiftRow struct {
		acc, zp, zpx, abs, absx uint8
		alu                     func(e *Engine, v uint8) uint8
	}
	shiftRows := []shiftRow{
		{0x0A, 0x06, 0x16, 0x0E, 0x1E, func(e *Engine, v uint8) uint8 { return e.aluASL(v) }},
		{0x4A, 0x46, 0x56, 0x4E, 0x5E, func(e *Engine, v uint8) uint8 { return e.aluLSR(v) }},
		{0x2A, 0x26, 0x36, 0x2E, 0x3E, func(e *Engine, v uint8) uint8 { return e.aluROL(v) }},
		{0x6A, 0x66, 0x76, 0x6E, 0x7E, func(e *Engine, v uint8) uint8 { return e.aluROR(v) }},
	}
	for _, r := range shiftRows {
		alu := r.alu
		cmosDispatch[r.acc] = accumulatorInstruction(alu)
		cmosDispatch[r.zp] = rmwInstruction(addrZP, alu)
		cmosDispatch[r.zpx] = rmwInstruction(addrZPIndexed(regX), alu)
		cmosDispatch[r.abs] = rmwInstruction(addrAbsolute, alu)
		cmosDispatch[r.absx] = rmwInstruction(addrAbsoluteIndexed(regX, true), alu)
	}

	incAlu := func(e *Engine, v uint8) uint8 { return e.aluINC(v) }
	decAlu := func(e *Engine, v uint8) uint8 { return e.aluDEC(v) }
	cmosDispatch[0xE6] = rmwInstruction(addrZP, incAlu)
	cmosDispatch[0xF6] = rmwInstruction(addrZPIndexed(regX), incAlu)
	cmosDispatch[0xEE] = rmwInstruction(addrAbsolute, incAlu)
	cmosDispatch[0xFE] = rmwInstruction(addrAbsoluteIndexed(regX, true), incAlu)
	cmosDispatch[0xC6] = rmwInstruction(addrZP, decAlu)
	cmosDispatch[0xD6] = rmwInstruction(addrZPIndexed(regX), decAlu)
	cmosDispatch[0xCE] = rmwInstruction(addrAbsolute, decAlu)
	cmosDispatch[0xDE] = rmwInstruction(addrAbsoluteIndexed(regX, true), decAlu)

	// TRB/TSB: the 65C02 additions for clearing/setting memory bits
	// under an accumulator mask without disturbing A.
	trbAlu := func(e *Engine, v uint8) uint8 { return e.aluTRB(v) }
	tsbAlu := func(e *Engine, v uint8) uint8 { return e.aluTSB(v) }
	cmosDispatch[0x14] = rmwInstruction(addrZP, trbAlu)
	cmosDispatch[0x1C] = rmwInstruction(addrAbsolute, trbAlu)
	cmosDispatch[0x04] = rmwInstruction(addrZP, tsbAlu)
	cmosDispatch[0x0C] = rmwInstruction(addrAbsolute, tsbAlu)

	cmosDispatch[0x10] = branchInstruction(func(e *Engine) bool { return !e.f.nFlag() })
	cmosDispatch[0x30] = branchInstruction(func(e *Engine) bool { return e.f.nFlag() })
	cmosDispatch[0x50] = branchInstruction(func(e *Engine) bool { return !e.f.v })
	cmosDispatch[0x70] = branchInstruction(func(e *Engine) bool { return e.f.v })
	cmosDispatch[0x90] = branchInstruction(func(e *Engine) bool { return !e.f.c })
	cmosDispatch[0xB0] = branchInstruction(func(e *Engine) bool { return e.f.c })
	cmosDispatch[0xD0] = branchInstruction(func(e *Engine) bool { return !e.f.zFlag() })
	cmosDispatch[0xF0] = branchInstruction(func(e *Engine) bool { return e.f.zFlag() })
	cmosDispatch[0x80] = opBRA

	cmosDispatch[0x4C] = opJMPAbs
	cmosDispatch[0x6C] = opJMPInd
	cmosDispatch[0x7C] = opJMPIndX
	cmosDispatch[0x20] = opJSR
	cmosDispatch[0x60] = opRTS
	cmosDispatch[0x40] = opRTI
	cmosDispatch[0x00] = opBRK

	// Remaining illegal-on-NMOS rows that the 65C02 defines as multi-byte
	// NOPs rather than one-cycle implied ones. WDM (0x42) is the reserved
	// two-byte expansion opcode; real 65C02s just fetch and discard the
	// second byte like any other two-cycle immediate NOP.
	discard := func(*Engine, uint8) {}
	for _, op := range []uint8{0x02, 0x22, 0x42, 0x62, 0x82, 0xC2, 0xE2} {
		cmosDispatch[op] = immediateInstruction(discard)
	}
	cmosDispatch[0x44] = loadInstruction(addrZP, discard)
	for _, op := range []uint8{0x54, 0xD4, 0xF4} {
		cmosDispatch[op] = loadInstruction(addrZPIndexed(regX), discard)
	}
	for _, op := range []uint8{0xDC, 0xFC} {
		cmosDispatch[op] = loadInstruction(addrAbsoluteIndexed(regX, false), discard)
	}
	cmosDispatch[0x5C] = opNOP5C
}
