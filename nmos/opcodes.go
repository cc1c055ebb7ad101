package nmos

import (
	"github.com/jchacon-labs/sixtyfiveo2/bus"
	"github.com/jchacon-labs/sixtyfiveo2/value"
)

// opFunc is one opcode's resumable cycle function: given the bus, perform
// exactly the next unconsumed cycle of this instruction and report done
// once the instruction has fully retired.
type opFunc func(e *Engine, b bus.Bus) (bool, error)

// loadInstruction builds an opFunc for any addressing mode that ends by
// reading a value and feeding it to apply (LDA, ADC, CMP, ...). This and
// its store/rmw siblings are the same combinator the addressing-mode
// functions were designed to plug into: one generic per-instruction-shape
// function, reused across every addressing mode an opcode supports.
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

// storeInstruction builds an opFunc for STA/STX/STY/SAX and friends.
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

// rmwInstruction builds an opFunc for read-modify-write opcodes (INC, ASL
// memory form, and the undocumented combined RMW+ALU opcodes): a read of
// the old value, a dummy write-back of that same value while the ALU op
// computes the new one, then the real write.
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
			if err := e.write(b, e.opAddr, e.opVal); err != nil {
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

// immediateInstruction builds an opFunc for #imm addressing: the operand
// fetch is the instruction's only (and therefore final) cycle.
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

// impliedInstruction builds an opFunc for single-byte register/flag
// opcodes: one dummy read of the next instruction byte (not consumed,
// PC not advanced) while fn runs.
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

// accumulatorInstruction builds an opFunc for the accumulator form of a
// shift/rotate opcode (ASL A, ROR A, ...).
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

// branchInstruction builds an opFunc for the eight conditional branches.
// Interrupt polling on a branch has famously subtle timing: it happens
// before the offset is even fetched (so an untaken 2-cycle branch still
// polls in time), and on a taken, page-crossing branch it is repeated one
// cycle later so that anything pending by the true final cycle is still
// caught.
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

// opJMPInd reproduces the infamous NMOS bug: if the pointer's low byte is
// 0xFF, the high byte of the target is fetched from the start of the same
// page rather than the next one.
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
		lo2, err := e.read(b, e.base1)
		if err != nil {
			return false, err
		}
		e.opVal = lo2
		e.opPhase = 3
		return false, nil
	default:
		e.pollSignals(b)
		wrapped := e.base1.NoCarry(1)
		hi2, err := e.read(b, wrapped)
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

// opBRK drives the shared six-cycle interrupt/BRK/reset sequence that
// follows the opcode-fetch cycle. It is reached either because the CPU
// actually fetched a 0x00 opcode (forcedInterrupt false: PC is advanced,
// status pushed with B set) or because fetch() hijacked the fetch on
// behalf of a pending reset/NMI/IRQ (forcedInterrupt true: PC untouched,
// B cleared). A pending reset outranks everything and demotes the three
// push cycles to dummy reads of the same stack addresses, matching how
// real silicon walks S down without asserting the write line.
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
				// A short NMI pulse is swallowed: it consumed the edge but
				// does not get to hijack this sequence's vector.
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
		e.pendingReset = false
		e.forcedInterrupt = false
		e.hijack = false
		return true, nil
	}
}

func nop1() opFunc {
	return impliedInstruction(func(*Engine) {})
}

// unstableIndexedStore builds the AHX/TAS/SHX/SHY family: an absolute,idx
// store whose dummy read address and stored value both corrupt whenever
// the index addition carries, because the value being stored is ANDed
// against the address's own high byte as it's computed. pre, if non-nil,
// runs once the base address is known but before the dummy read (TAS
// additionally latches SP at that point).
func unstableIndexedStore(idxFn func(e *Engine) uint8, formula func(e *Engine, hiPlus1 uint8) uint8, pre func(e *Engine)) opFunc {
	return func(e *Engine, b bus.Bus) (bool, error) {
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
			if pre != nil {
				pre(e)
			}
			e.opPhase = 2
			return false, nil
		case 2:
			idx := idxFn(e)
			if _, err := e.read(b, e.base1.NoCarry(idx)); err != nil {
				return false, err
			}
			e.opVal = formula(e, e.base1.Hi()+1)
			if e.base1.CheckCarry(idx) {
				e.base1 = value.FromBytes((e.base1 + value.Addr(idx)).Lo(), e.opVal)
			} else {
				e.base1 += value.Addr(idx)
			}
			e.opPhase = 3
			return false, nil
		default:
			if err := e.store(b, e.base1, e.opVal); err != nil {
				return false, err
			}
			return true, nil
		}
	}
}

// opAHXZPIndirectY is AHX ($nn),Y ($93): the same unstable high-byte-AND
// corruption as unstableIndexedStore, but reached through a zero-page
// indirect vector instead of a plain absolute operand.
func opAHXZPIndirectY(e *Engine, b bus.Bus) (bool, error) {
	switch e.opPhase {
	case 0:
		zp, err := e.fetchOperand(b)
		if err != nil {
			return false, err
		}
		e.lo = zp
		e.opPhase = 1
		return false, nil
	case 1:
		lo, err := e.read(b, value.ZP(e.lo))
		if err != nil {
			return false, err
		}
		e.opVal = lo
		e.opPhase = 2
		return false, nil
	case 2:
		hi, err := e.read(b, value.ZP(e.lo+1))
		if err != nil {
			return false, err
		}
		e.base1 = value.FromBytes(e.opVal, hi)
		e.opPhase = 3
		return false, nil
	case 3:
		if _, err := e.read(b, e.base1.NoCarry(e.Y)); err != nil {
			return false, err
		}
		e.opVal = e.A & e.X & (e.base1.Hi() + 1)
		if e.base1.CheckCarry(e.Y) {
			e.base1 = value.FromBytes((e.base1 + value.Addr(e.Y)).Lo(), e.opVal)
		} else {
			e.base1 += value.Addr(e.Y)
		}
		e.opPhase = 4
		return false, nil
	default:
		if err := e.store(b, e.base1, e.opVal); err != nil {
			return false, err
		}
		return true, nil
	}
}

// nmosDispatch is the 256-entry opcode table. Every entry is built from
// the shared addressing-mode resolvers and instruction-shape combinators
// above; unassigned slots default to a documented undefined-opcode
// behavior (a one-cycle implied NOP).
var nmosDispatch [256]opFunc

func init() {
	for i := range nmosDispatch {
		nmosDispatch[i] = nop1()
	}

	regX := func(e *Engine) uint8 { return e.X }
	regY := func(e *Engine) uint8 { return e.Y }

	// Load/store family.
	lda := func(e *Engine, v uint8) { e.A = v; e.f.setNZ(v) }
	ldx := func(e *Engine, v uint8) { e.X = v; e.f.setNZ(v) }
	ldy := func(e *Engine, v uint8) { e.Y = v; e.f.setNZ(v) }
	sta := func(e *Engine) uint8 { return e.A }
	stx := func(e *Engine) uint8 { return e.X }
	sty := func(e *Engine) uint8 { return e.Y }
	sax := func(e *Engine) uint8 { return e.A & e.X }
	lax := func(e *Engine, v uint8) { e.A = v; e.X = v; e.f.setNZ(v) }

	nmosDispatch[0xA9] = immediateInstruction(lda)
	nmosDispatch[0xA5] = loadInstruction(addrZP, lda)
	nmosDispatch[0xB5] = loadInstruction(addrZPIndexed(regX), lda)
	nmosDispatch[0xAD] = loadInstruction(addrAbsolute, lda)
	nmosDispatch[0xBD] = loadInstruction(addrAbsoluteIndexed(regX, false), lda)
	nmosDispatch[0xB9] = loadInstruction(addrAbsoluteIndexed(regY, false), lda)
	nmosDispatch[0xA1] = loadInstruction(addrIndirectX, lda)
	nmosDispatch[0xB1] = loadInstruction(addrIndirectY(false), lda)

	nmosDispatch[0xA2] = immediateInstruction(ldx)
	nmosDispatch[0xA6] = loadInstruction(addrZP, ldx)
	nmosDispatch[0xB6] = loadInstruction(addrZPIndexed(regY), ldx)
	nmosDispatch[0xAE] = loadInstruction(addrAbsolute, ldx)
	nmosDispatch[0xBE] = loadInstruction(addrAbsoluteIndexed(regY, false), ldx)

	nmosDispatch[0xA0] = immediateInstruction(ldy)
	nmosDispatch[0xA4] = loadInstruction(addrZP, ldy)
	nmosDispatch[0xB4] = loadInstruction(addrZPIndexed(regX), ldy)
	nmosDispatch[0xAC] = loadInstruction(addrAbsolute, ldy)
	nmosDispatch[0xBC] = loadInstruction(addrAbsoluteIndexed(regX, false), ldy)

	nmosDispatch[0x85] = storeInstruction(addrZP, sta)
	nmosDispatch[0x95] = storeInstruction(addrZPIndexed(regX), sta)
	nmosDispatch[0x8D] = storeInstruction(addrAbsolute, sta)
	nmosDispatch[0x9D] = storeInstruction(addrAbsoluteIndexed(regX, true), sta)
	nmosDispatch[0x99] = storeInstruction(addrAbsoluteIndexed(regY, true), sta)
	nmosDispatch[0x81] = storeInstruction(addrIndirectX, sta)
	nmosDispatch[0x91] = storeInstruction(addrIndirectY(true), sta)

	nmosDispatch[0x86] = storeInstruction(addrZP, stx)
	nmosDispatch[0x96] = storeInstruction(addrZPIndexed(regY), stx)
	nmosDispatch[0x8E] = storeInstruction(addrAbsolute, stx)

	nmosDispatch[0x84] = storeInstruction(addrZP, sty)
	nmosDispatch[0x94] = storeInstruction(addrZPIndexed(regX), sty)
	nmosDispatch[0x8C] = storeInstruction(addrAbsolute, sty)

	nmosDispatch[0x87] = storeInstruction(addrZP, sax)
	nmosDispatch[0x97] = storeInstruction(addrZPIndexed(regY), sax)
	nmosDispatch[0x8F] = storeInstruction(addrAbsolute, sax)
	nmosDispatch[0x83] = storeInstruction(addrIndirectX, sax)

	nmosDispatch[0xA7] = loadInstruction(addrZP, lax)
	nmosDispatch[0xB7] = loadInstruction(addrZPIndexed(regY), lax)
	nmosDispatch[0xAF] = loadInstruction(addrAbsolute, lax)
	nmosDispatch[0xBF] = loadInstruction(addrAbsoluteIndexed(regY, false), lax)
	nmosDispatch[0xA3] = loadInstruction(addrIndirectX, lax)
	nmosDispatch[0xB3] = loadInstruction(addrIndirectY(false), lax)

	// Transfers, increments, flag ops (implied).
	nmosDispatch[0xAA] = impliedInstruction(func(e *Engine) { e.X = e.A; e.f.setNZ(e.X) })
	nmosDispatch[0xA8] = impliedInstruction(func(e *Engine) { e.Y = e.A; e.f.setNZ(e.Y) })
	nmosDispatch[0x8A] = impliedInstruction(func(e *Engine) { e.A = e.X; e.f.setNZ(e.A) })
	nmosDispatch[0x98] = impliedInstruction(func(e *Engine) { e.A = e.Y; e.f.setNZ(e.A) })
	nmosDispatch[0xBA] = impliedInstruction(func(e *Engine) { e.X = e.SP; e.f.setNZ(e.X) })
	nmosDispatch[0x9A] = impliedInstruction(func(e *Engine) { e.SP = e.X })
	nmosDispatch[0xE8] = impliedInstruction(func(e *Engine) { e.X++; e.f.setNZ(e.X) })
	nmosDispatch[0xCA] = impliedInstruction(func(e *Engine) { e.X--; e.f.setNZ(e.X) })
	nmosDispatch[0xC8] = impliedInstruction(func(e *Engine) { e.Y++; e.f.setNZ(e.Y) })
	nmosDispatch[0x88] = impliedInstruction(func(e *Engine) { e.Y--; e.f.setNZ(e.Y) })
	nmosDispatch[0x18] = impliedInstruction(func(e *Engine) { e.f.setCarry(false) })
	nmosDispatch[0x38] = impliedInstruction(func(e *Engine) { e.f.setCarry(true) })
	nmosDispatch[0x58] = impliedInstruction(func(e *Engine) { e.f.i = false })
	nmosDispatch[0x78] = impliedInstruction(func(e *Engine) { e.f.i = true })
	nmosDispatch[0xB8] = impliedInstruction(func(e *Engine) { e.f.v = false })
	nmosDispatch[0xD8] = impliedInstruction(func(e *Engine) { e.f.d = false })
	nmosDispatch[0xF8] = impliedInstruction(func(e *Engine) { e.f.d = true })
	nmosDispatch[0xEA] = nop1()

	// ALU (AND/ORA/EOR/ADC/SBC/CMP/CPX/CPY) across all eight addressing
	// shapes, built from one table of (opcode-base-row -> apply) pairs.
	type aluRow struct {
		imm, zp, zpx, abs, absx, absy, izx, izy uint8
		apply                                   func(e *Engine, v uint8)
	}
	aluRows := []aluRow{
		{0x29, 0x25, 0x35, 0x2D, 0x3D, 0x39, 0x21, 0x31, func(e *Engine, v uint8) { e.aluAND(v) }},
		{0x09, 0x05, 0x15, 0x0D, 0x1D, 0x19, 0x01, 0x11, func(e *Engine, v uint8) { e.aluORA(v) }},
		{0x49, 0x45, 0x55, 0x4D, 0x5D, 0x59, 0x41, 0x51, func(e *Engine, v uint8) { e.aluEOR(v) }},
		{0x69, 0x65, 0x75, 0x6D, 0x7D, 0x79, 0x61, 0x71, func(e *Engine, v uint8) { e.aluADC(v) }},
		{0xE9, 0xE5, 0xF5, 0xED, 0xFD, 0xF9, 0xE1, 0xF1, func(e *Engine, v uint8) { e.aluSBC(v) }},
		{0xC9, 0xC5, 0xD5, 0xCD, 0xDD, 0xD9, 0xC1, 0xD1, func(e *Engine, v uint8) { e.aluCompare(e.A, v) }},
	}
	for _, r := range aluRows {
		apply := r.apply
		nmosDispatch[r.imm] = immediateInstruction(apply)
		nmosDispatch[r.zp] = loadInstruction(addrZP, apply)
		nmosDispatch[r.zpx] = loadInstruction(addrZPIndexed(regX), apply)
		nmosDispatch[r.abs] = loadInstruction(addrAbsolute, apply)
		nmosDispatch[r.absx] = loadInstruction(addrAbsoluteIndexed(regX, false), apply)
		nmosDispatch[r.absy] = loadInstruction(addrAbsoluteIndexed(regY, false), apply)
		nmosDispatch[r.izx] = loadInstruction(addrIndirectX, apply)
		nmosDispatch[r.izy] = loadInstruction(addrIndirectY(false), apply)
	}

	nmosDispatch[0xE0] = immediateInstruction(func(e *Engine, v uint8) { e.aluCompare(e.X, v) })
	nmosDispatch[0xE4] = loadInstruction(addrZP, func(e *Engine, v uint8) { e.aluCompare(e.X, v) })
	nmosDispatch[0xEC] = loadInstruction(addrAbsolute, func(e *Engine, v uint8) { e.aluCompare(e.X, v) })
	nmosDispatch[0xC0] = immediateInstruction(func(e *Engine, v uint8) { e.aluCompare(e.Y, v) })
	nmosDispatch[0xC4] = loadInstruction(addrZP, func(e *Engine, v uint8) { e.aluCompare(e.Y, v) })
	nmosDispatch[0xCC] = loadInstruction(addrAbsolute, func(e *Engine, v uint8) { e.aluCompare(e.Y, v) })

	nmosDispatch[0x24] = loadInstruction(addrZP, func(e *Engine, v uint8) { e.aluBIT(v) })
	nmosDispatch[0x2C] = loadInstruction(addrAbsolute, func(e *Engine, v uint8) { e.aluBIT(v) })

	// Shift/rotate/inc/dec: accumulator form plus the four memory shapes.
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
		nmosDispatch[r.acc] = accumulatorInstruction(alu)
		nmosDispatch[r.zp] = rmwInstruction(addrZP, alu)
		nmosDispatch[r.zpx] = rmwInstruction(addrZPIndexed(regX), alu)
		nmosDispatch[r.abs] = rmwInstruction(addrAbsolute, alu)
		nmosDispatch[r.absx] = rmwInstruction(addrAbsoluteIndexed(regX, true), alu)
	}

	incAlu := func(e *Engine, v uint8) uint8 { return e.aluINC(v) }
	decAlu := func(e *Engine, v uint8) uint8 { return e.aluDEC(v) }
	nmosDispatch[0xE6] = rmwInstruction(addrZP, incAlu)
	nmosDispatch[0xF6] = rmwInstruction(addrZPIndexed(regX), incAlu)
	nmosDispatch[0xEE] = rmwInstruction(addrAbsolute, incAlu)
	nmosDispatch[0xFE] = rmwInstruction(addrAbsoluteIndexed(regX, true), incAlu)
	nmosDispatch[0xC6] = rmwInstruction(addrZP, decAlu)
	nmosDispatch[0xD6] = rmwInstruction(addrZPIndexed(regX), decAlu)
	nmosDispatch[0xCE] = rmwInstruction(addrAbsolute, decAlu)
	nmosDispatch[0xDE] = rmwInstruction(addrAbsoluteIndexed(regX, true), decAlu)

	// Undocumented combined RMW+ALU opcodes (SLO/RLA/SRE/RRA/DCP/ISC).
	type undocRow struct {
		zp, zpx, abs, absx, absy, izx, izy uint8
		alu                                func(e *Engine, v uint8) uint8
	}
	undocRows := []undocRow{
		{0x07, 0x17, 0x0F, 0x1F, 0x1B, 0x03, 0x13, func(e *Engine, v uint8) uint8 { return e.aluSLO(v) }},
		{0x27, 0x37, 0x2F, 0x3F, 0x3B, 0x23, 0x33, func(e *Engine, v uint8) uint8 { return e.aluRLA(v) }},
		{0x47, 0x57, 0x4F, 0x5F, 0x5B, 0x43, 0x53, func(e *Engine, v uint8) uint8 { return e.aluSRE(v) }},
		{0x67, 0x77, 0x6F, 0x7F, 0x7B, 0x63, 0x73, func(e *Engine, v uint8) uint8 { return e.aluRRA(v) }},
		{0xC7, 0xD7, 0xCF, 0xDF, 0xDB, 0xC3, 0xD3, func(e *Engine, v uint8) uint8 { return e.aluDCP(v) }},
		{0xE7, 0xF7, 0xEF, 0xFF, 0xFB, 0xE3, 0xF3, func(e *Engine, v uint8) uint8 { return e.aluISC(v) }},
	}
	for _, r := range undocRows {
		alu := r.alu
		nmosDispatch[r.zp] = rmwInstruction(addrZP, alu)
		nmosDispatch[r.zpx] = rmwInstruction(addrZPIndexed(regX), alu)
		nmosDispatch[r.abs] = rmwInstruction(addrAbsolute, alu)
		nmosDispatch[r.absx] = rmwInstruction(addrAbsoluteIndexed(regX, true), alu)
		nmosDispatch[r.absy] = rmwInstruction(addrAbsoluteIndexed(regY, true), alu)
		nmosDispatch[r.izx] = rmwInstruction(addrIndirectX, alu)
		nmosDispatch[r.izy] = rmwInstruction(addrIndirectY(true), alu)
	}

	nmosDispatch[0x0B] = immediateInstruction(func(e *Engine, v uint8) { e.aluANC(v) })
	nmosDispatch[0x2B] = immediateInstruction(func(e *Engine, v uint8) { e.aluANC(v) })
	nmosDispatch[0x4B] = immediateInstruction(func(e *Engine, v uint8) { e.aluALR(v) })
	nmosDispatch[0x6B] = immediateInstruction(func(e *Engine, v uint8) { e.aluARR(v) })
	nmosDispatch[0xCB] = immediateInstruction(func(e *Engine, v uint8) { e.aluAXS(v) })

	// Branches.
	nmosDispatch[0x10] = branchInstruction(func(e *Engine) bool { return !e.f.nFlag() })
	nmosDispatch[0x30] = branchInstruction(func(e *Engine) bool { return e.f.nFlag() })
	nmosDispatch[0x50] = branchInstruction(func(e *Engine) bool { return !e.f.v })
	nmosDispatch[0x70] = branchInstruction(func(e *Engine) bool { return e.f.v })
	nmosDispatch[0x90] = branchInstruction(func(e *Engine) bool { return !e.f.c })
	nmosDispatch[0xB0] = branchInstruction(func(e *Engine) bool { return e.f.c })
	nmosDispatch[0xD0] = branchInstruction(func(e *Engine) bool { return !e.f.zFlag() })
	nmosDispatch[0xF0] = branchInstruction(func(e *Engine) bool { return e.f.zFlag() })

	// Jumps, subroutine linkage, stack, BRK/RTI.
	nmosDispatch[0x4C] = opJMPAbs
	nmosDispatch[0x6C] = opJMPInd
	nmosDispatch[0x20] = opJSR
	nmosDispatch[0x60] = opRTS
	nmosDispatch[0x40] = opRTI
	nmosDispatch[0x00] = opBRK

	nmosDispatch[0x48] = pushInstruction(func(e *Engine) uint8 { return e.A })
	nmosDispatch[0x08] = pushInstruction(func(e *Engine) uint8 { return e.f.toByte() })
	nmosDispatch[0x68] = pullInstruction(func(e *Engine, v uint8) { e.A = v; e.f.setNZ(v) })
	nmosDispatch[0x28] = pullInstruction(func(e *Engine, v uint8) { e.f.fromByte(v) })

	// Unstable undocumented opcodes: each ANDs a register combination
	// against a fixed "magic" constant (this implementation follows the
	// reference's choice of 0xFF for XAA and 0x00 for LAX #imm/OAL), or
	// else corrupts its own target address by ANDing the stored value
	// against the address's high byte plus one whenever the index
	// addition carries (AHX/TAS/SHX/SHY).
	nmosDispatch[0x8B] = immediateInstruction(func(e *Engine, v uint8) {
		val := (e.A | 0xFF) & e.X & v
		e.A = val
		e.f.setNZ(val)
	})
	nmosDispatch[0xAB] = immediateInstruction(func(e *Engine, v uint8) {
		val := e.A & v
		e.A = val
		e.X = val
		e.f.setNZ(val)
	})
	nmosDispatch[0xBB] = loadInstruction(addrAbsoluteIndexed(regY, false), func(e *Engine, v uint8) {
		e.SP &= v
		e.A = e.SP
		e.X = e.SP
	})
	nmosDispatch[0x93] = opAHXZPIndirectY
	nmosDispatch[0x9F] = unstableIndexedStore(regY, func(e *Engine, hiPlus1 uint8) uint8 {
		return e.A & e.X & hiPlus1
	}, nil)
	nmosDispatch[0x9B] = unstableIndexedStore(regY, func(e *Engine, hiPlus1 uint8) uint8 {
		return e.A & e.X & hiPlus1
	}, func(e *Engine) { e.SP = e.A & e.X })
	nmosDispatch[0x9C] = unstableIndexedStore(regX, func(e *Engine, hiPlus1 uint8) uint8 {
		return e.Y & hiPlus1
	}, nil)
	nmosDispatch[0x9E] = unstableIndexedStore(regY, func(e *Engine, hiPlus1 uint8) uint8 {
		return e.X & hiPlus1
	}, nil)

	// KIL/JAM: the processor halts and stops fetching.
	for _, op := range []uint8{0x02, 0x12, 0x22, 0x32, 0x42, 0x52, 0x62, 0x72, 0x92, 0xB2, 0xD2, 0xF2} {
		nmosDispatch[op] = func(e *Engine, b bus.Bus) (bool, error) {
			e.halted = true
			e.haltOpcode = e.op
			return false, HaltedError{e.op}
		}
	}

	// Multi-byte undocumented NOPs: same bus shape as a real load of the
	// given addressing mode, but the fetched value is discarded.
	discard := func(*Engine, uint8) {}
	for _, op := range []uint8{0x80, 0x82, 0x89, 0xC2, 0xE2} {
		nmosDispatch[op] = immediateInstruction(discard)
	}
	for _, op := range []uint8{0x04, 0x44, 0x64} {
		nmosDispatch[op] = loadInstruction(addrZP, discard)
	}
	for _, op := range []uint8{0x14, 0x34, 0x54, 0x74, 0xD4, 0xF4} {
		nmosDispatch[op] = loadInstruction(addrZPIndexed(regX), discard)
	}
	nmosDispatch[0x0C] = loadInstruction(addrAbsolute, discard)
	for _, op := range []uint8{0x1C, 0x3C, 0x5C, 0x7C, 0xDC, 0xFC} {
		nmosDispatch[op] = loadInstruction(addrAbsoluteIndexed(regX, false), discard)
	}
	for _, op := range []uint8{0x1A, 0x3A, 0x5A, 0x7A, 0xDA, 0xFA} {
		nmosDispatch[op] = nop1()
	}
}
