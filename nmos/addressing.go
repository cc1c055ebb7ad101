package nmos

import (
	"github.com/jchacon-labs/sixtyfiveo2/bus"
	"github.com/jchacon-labs/sixtyfiveo2/value"
)

// addrFunc is one addressing mode's resumable address-computation state
// machine. It performs exactly one bus cycle per call (tracked via
// e.addrStep, reset at the start of every instruction) and reports done
// once the effective address is fully resolved — before the final
// load/store/read-modify-write cycle, which the caller performs.
type addrFunc func(e *Engine, b bus.Bus) (value.Addr, bool, error)

// addrZP resolves a zero-page address: one cycle, the operand byte itself.
func addrZP(e *Engine, b bus.Bus) (value.Addr, bool, error) {
	lo, err := e.fetchOperand(b)
	if err != nil {
		return 0, false, err
	}
	return value.ZP(lo), true, nil
}

// addrZPIndexed builds a zero-page,X or zero-page,Y resolver: the operand
// fetch, then a dummy read at the unindexed zero-page address while the
// index is added (the add never carries out of the zero page). reg
// selects which register of the engine passed at call time to index
// with — it must not capture a register from any particular Engine
// instance, since one addrFunc value is shared by every Engine using
// this dispatch table.
func addrZPIndexed(reg func(e *Engine) uint8) addrFunc {
	return func(e *Engine, b bus.Bus) (value.Addr, bool, error) {
		switch e.addrStep {
		case 0:
			lo, err := e.fetchOperand(b)
			if err != nil {
				return 0, false, err
			}
			e.lo = lo
			e.addrStep = 1
			return 0, false, nil
		default:
			if _, err := e.read(b, value.ZP(e.lo)); err != nil {
				return 0, false, err
			}
			e.addrStep = 0
			return value.ZP(e.lo + reg(e)), true, nil
		}
	}
}

// addrAbsolute resolves a plain absolute address: two operand-byte cycles.
func addrAbsolute(e *Engine, b bus.Bus) (value.Addr, bool, error) {
	switch e.addrStep {
	case 0:
		lo, err := e.fetchOperand(b)
		if err != nil {
			return 0, false, err
		}
		e.lo = lo
		e.addrStep = 1
		return 0, false, nil
	default:
		hi, err := e.fetchOperand(b)
		if err != nil {
			return 0, false, err
		}
		e.addrStep = 0
		return value.FromBytes(e.lo, hi), true, nil
	}
}

// addrAbsoluteIndexed builds an absolute,X or absolute,Y resolver.
// forceExtra is true for store and read-modify-write instructions, which
// always take the extra dummy-read cycle regardless of whether the index
// actually crosses a page; load instructions only pay it on an actual
// page cross.
func addrAbsoluteIndexed(reg func(e *Engine) uint8, forceExtra bool) addrFunc {
	return func(e *Engine, b bus.Bus) (value.Addr, bool, error) {
		switch e.addrStep {
		case 0:
			lo, err := e.fetchOperand(b)
			if err != nil {
				return 0, false, err
			}
			e.lo = lo
			e.addrStep = 1
			return 0, false, nil
		case 1:
			hi, err := e.fetchOperand(b)
			if err != nil {
				return 0, false, err
			}
			e.base1 = value.FromBytes(e.lo, hi)
			idx := reg(e)
			e.crossed = e.base1.CheckCarry(idx)
			if !e.crossed && !forceExtra {
				e.addrStep = 0
				return e.base1 + value.Addr(idx), true, nil
			}
			e.addrStep = 2
			return 0, false, nil
		default:
			idx := reg(e)
			if _, err := e.read(b, e.base1.NoCarry(idx)); err != nil {
				return 0, false, err
			}
			e.addrStep = 0
			return e.base1 + value.Addr(idx), true, nil
		}
	}
}

// addrIndirectX resolves (zp,X): operand fetch, a dummy read at the
// unindexed zero-page pointer, then the two pointer bytes from zp+X and
// zp+X+1 (both wrapping within the zero page).
func addrIndirectX(e *Engine, b bus.Bus) (value.Addr, bool, error) {
	switch e.addrStep {
	case 0:
		zp, err := e.fetchOperand(b)
		if err != nil {
			return 0, false, err
		}
		e.lo = zp
		e.addrStep = 1
		return 0, false, nil
	case 1:
		if _, err := e.read(b, value.ZP(e.lo)); err != nil {
			return 0, false, err
		}
		e.addrStep = 2
		return 0, false, nil
	case 2:
		lo, err := e.read(b, value.ZP(e.lo+e.X))
		if err != nil {
			return 0, false, err
		}
		e.opVal = lo
		e.addrStep = 3
		return 0, false, nil
	default:
		hi, err := e.read(b, value.ZP(e.lo+e.X+1))
		if err != nil {
			return 0, false, err
		}
		e.addrStep = 0
		return value.FromBytes(e.opVal, hi), true, nil
	}
}

// addrIndirectY resolves (zp),Y: operand fetch, the two pointer bytes from
// zp and zp+1, then — on a page cross, or unconditionally for
// forceExtra — a dummy read at the wrong (unindexed-carry) address.
func addrIndirectY(forceExtra bool) addrFunc {
	return func(e *Engine, b bus.Bus) (value.Addr, bool, error) {
		switch e.addrStep {
		case 0:
			zp, err := e.fetchOperand(b)
			if err != nil {
				return 0, false, err
			}
			e.lo = zp
			e.addrStep = 1
			return 0, false, nil
		case 1:
			lo, err := e.read(b, value.ZP(e.lo))
			if err != nil {
				return 0, false, err
			}
			e.opVal = lo
			e.addrStep = 2
			return 0, false, nil
		case 2:
			hi, err := e.read(b, value.ZP(e.lo+1))
			if err != nil {
				return 0, false, err
			}
			e.base1 = value.FromBytes(e.opVal, hi)
			e.crossed = e.base1.CheckCarry(e.Y)
			if !e.crossed && !forceExtra {
				e.addrStep = 0
				return e.base1 + value.Addr(e.Y), true, nil
			}
			e.addrStep = 3
			return 0, false, nil
		default:
			if _, err := e.read(b, e.base1.NoCarry(e.Y)); err != nil {
				return 0, false, err
			}
			e.addrStep = 0
			return e.base1 + value.Addr(e.Y), true, nil
		}
	}
}
