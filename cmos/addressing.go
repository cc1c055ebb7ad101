package cmos

import (
	"github.com/jchacon-labs/sixtyfiveo2/bus"
	"github.com/jchacon-labs/sixtyfiveo2/value"
)

// addrFunc mirrors the nmos package's resumable addressing-mode state
// machine: one bus cycle per call, reporting the effective address once
// resolved.
type addrFunc func(e *Engine, b bus.Bus) (value.Addr, bool, error)

func addrZP(e *Engine, b bus.Bus) (value.Addr, bool, error) {
	lo, err := e.fetchOperand(b)
	if err != nil {
		return 0, false, err
	}
	return value.ZP(lo), true, nil
}

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
			// CMOS fix: the dummy read targets PC instead of the unindexed
			// zero-page base address.
			if _, err := e.read(b, value.Addr(e.PC)); err != nil {
				return 0, false, err
			}
			e.addrStep = 0
			return value.ZP(e.lo + reg(e)), true, nil
		}
	}
}

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

// addrAbsoluteIndexed differs from the NMOS version on a page cross: the
// dummy access reads PC instead of the wrong-page (no-carry) address.
// When the extra cycle is forced (store/RMW) but no page was crossed, the
// dummy access reads the final address, which without a carry is the
// same address the NMOS no-carry read uses; the target therefore sees
// that dummy read before the instruction's real access.
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
			target := e.base1 + value.Addr(idx)
			dummy := target
			if e.crossed {
				// CMOS fix: on page-cross, read PC instead of the
				// NMOS wrong-page address.
				dummy = value.Addr(e.PC)
			}
			if _, err := e.read(b, dummy); err != nil {
				return 0, false, err
			}
			e.addrStep = 0
			return target, true, nil
		}
	}
}

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
			target := e.base1 + value.Addr(e.Y)
			dummy := target
			if e.crossed {
				dummy = e.base1.NoCarry(e.Y)
			}
			if _, err := e.read(b, dummy); err != nil {
				return 0, false, err
			}
			e.addrStep = 0
			return target, true, nil
		}
	}
}

// addrZPIndirect resolves (zp) with no index — the 65C02 addition that
// lets the documented ORA/AND/EOR/ADC/STA/LDA/CMP/SBC family reach an
// indirect zero-page pointer without burning a register on indexing.
func addrZPIndirect(e *Engine, b bus.Bus) (value.Addr, bool, error) {
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
	default:
		hi, err := e.read(b, value.ZP(e.lo+1))
		if err != nil {
			return 0, false, err
		}
		e.addrStep = 0
		return value.FromBytes(e.opVal, hi), true, nil
	}
}
