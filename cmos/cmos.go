// Package cmos implements a cycle-accurate emulation core for the 65C02,
// the CMOS redesign of the 6502 family: its bug fixes (the JMP indirect
// page-wrap, indexed-write side effects on I/O), its new addressing mode
// and instructions (BRA, PHX/PHY/PLX/PLY, STZ, TRB/TSB, zero-page
// indirect without index, accumulator INC/DEC), and its well-defined
// decimal-mode arithmetic (one extra cycle, and N/Z computed from the
// actual decimal result rather than NMOS's binary-sum quirk).
package cmos

import (
	"errors"
	"fmt"

	"github.com/jchacon-labs/sixtyfiveo2/bus"
	"github.com/jchacon-labs/sixtyfiveo2/value"
)

const (
	nmiVector   = value.Addr(0xFFFA)
	resetVector = value.Addr(0xFFFC)
	irqVector   = value.Addr(0xFFFE)
)

// ErrNotReady mirrors the nmos package's bus-stall sentinel.
var ErrNotReady = errors.New("cmos: bus not ready")

// HaltedError reports an unrecoverable engine fault. Unlike the NMOS core,
// the 65C02 defines every opcode byte as a real (if sometimes useless)
// instruction — including WDM, which this core treats as a plain two-cycle
// NOP — so nothing in the dispatch table raises this; it exists as the
// generic fallback step() reaches for if an opFunc ever returns an error
// other than ErrNotReady.
type HaltedError struct {
	Opcode uint8
}

func (e HaltedError) Error() string {
	return fmt.Sprintf("cmos: halted on opcode 0x%02X", e.Opcode)
}

// InvalidStateError reports an internal sequencing bug.
type InvalidStateError struct{ Reason string }

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("cmos: invalid CPU state: %s", e.Reason)
}

// Engine is one 65C02 core instance.
type Engine struct {
	PC uint16
	A  uint8
	X  uint8
	Y  uint8
	SP uint8
	f  flags

	op       uint8
	opStep   int
	opPhase  int
	opVal    uint8
	opAddr   value.Addr
	addrStep int
	addrDone bool
	lo       uint8
	base1    value.Addr
	crossed  bool

	hijack          bool
	nmiEdge         bool
	pendingReset    bool
	vector          value.Addr
	forcedInterrupt bool

	halted     bool
	haltOpcode uint8
}

// New constructs a 65C02 core.
func New() *Engine {
	e := &Engine{}
	e.Reset()
	return e
}

func (e *Engine) IsNMOS() bool       { return false }
func (e *Engine) Halted() bool       { return e.halted }
func (e *Engine) PartialInst() bool  { return e.opStep != 0 }

func (e *Engine) Reset() {
	e.pendingReset = true
	e.hijack = true
	e.halted = false
	e.haltOpcode = 0
	e.opStep = 0
}

func (e *Engine) GetPC() uint16  { return e.PC }
func (e *Engine) SetPC(v uint16) { e.PC = v }
func (e *Engine) GetSP() uint8   { return e.SP }
func (e *Engine) SetSP(v uint8)  { e.SP = v }
func (e *Engine) GetA() uint8    { return e.A }
func (e *Engine) SetA(v uint8)   { e.A = v }
func (e *Engine) GetX() uint8    { return e.X }
func (e *Engine) SetX(v uint8)   { e.X = v }
func (e *Engine) GetY() uint8    { return e.Y }
func (e *Engine) SetY(v uint8)   { e.Y = v }

func (e *Engine) Status() uint8     { return e.f.toByte() }
func (e *Engine) SetStatus(v uint8) { e.f.fromByte(v) }

// Flag enumerates the six status bits, mirroring nmos.Flag.
type Flag int

const (
	FlagN Flag = iota
	FlagV
	FlagD
	FlagI
	FlagZ
	FlagC
)

func (e *Engine) GetFlag(f Flag) bool {
	switch f {
	case FlagN:
		return e.f.nFlag()
	case FlagV:
		return e.f.v
	case FlagD:
		return e.f.d
	case FlagI:
		return e.f.i
	case FlagZ:
		return e.f.zFlag()
	case FlagC:
		return e.f.c
	}
	return false
}

func (e *Engine) SetFlag(f Flag, set bool) {
	switch f {
	case FlagN:
		if set {
			e.f.n = 0x80
		} else {
			e.f.n = 0
		}
	case FlagV:
		e.f.v = set
	case FlagD:
		e.f.d = set
	case FlagI:
		e.f.i = set
	case FlagZ:
		if set {
			e.f.z = 0
		} else {
			e.f.z = 1
		}
	case FlagC:
		e.f.c = set
	}
}

func (e *Engine) RunInstruction(b bus.Bus) error {
	for {
		done, err := e.step(b)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (e *Engine) StepCycle(b bus.Bus) (bool, error) {
	return e.step(b)
}

func (e *Engine) step(b bus.Bus) (bool, error) {
	if e.halted {
		return false, HaltedError{e.haltOpcode}
	}
	if e.opStep == 0 {
		return e.fetch(b)
	}
	fn := cmosDispatch[e.op]
	done, err := fn(e, b)
	if err != nil {
		if !errors.Is(err, ErrNotReady) {
			e.halted = true
			e.haltOpcode = e.op
		}
		return false, err
	}
	if done {
		e.opStep = 0
	}
	return done, nil
}

func (e *Engine) fetch(b bus.Bus) (bool, error) {
	b.SetSync(true)
	if e.hijack {
		if _, err := e.read(b, value.Addr(e.PC)); err != nil {
			return false, err
		}
		e.op = 0x00
		e.forcedInterrupt = true
	} else {
		v, err := e.read(b, value.Addr(e.PC))
		if err != nil {
			return false, err
		}
		e.PC++
		e.op = v
		e.forcedInterrupt = false
	}
	b.SetSync(false)
	e.addrStep = 0
	e.addrDone = false
	e.opPhase = 0
	return false, nil
}

func (e *Engine) read(b bus.Bus, addr value.Addr) (uint8, error) {
	v, ready := b.Read(uint16(addr))
	if !ready {
		return 0, ErrNotReady
	}
	e.opStep++
	return v, nil
}

func (e *Engine) write(b bus.Bus, addr value.Addr, v uint8) error {
	if ready := b.Write(uint16(addr), v); !ready {
		return ErrNotReady
	}
	e.opStep++
	return nil
}

func (e *Engine) load(b bus.Bus, addr value.Addr) (uint8, error) {
	e.pollSignals(b)
	return e.read(b, addr)
}

func (e *Engine) store(b bus.Bus, addr value.Addr, v uint8) error {
	e.pollSignals(b)
	return e.write(b, addr, v)
}

func (e *Engine) fetchOperand(b bus.Bus) (uint8, error) {
	v, err := e.read(b, value.Addr(e.PC))
	if err != nil {
		return 0, err
	}
	e.PC++
	return v, nil
}

func (e *Engine) pollSignals(b bus.Bus) {
	if b.PollNMI() {
		e.nmiEdge = true
	}
	irq := !e.f.i && b.IRQ()
	e.hijack = e.nmiEdge || irq || e.pendingReset
}

func (e *Engine) pushStack(b bus.Bus, v uint8) error {
	if err := e.write(b, value.Stack(e.SP), v); err != nil {
		return err
	}
	e.SP--
	return nil
}

func (e *Engine) popStackRead(b bus.Bus) (uint8, error) {
	e.SP++
	return e.read(b, value.Stack(e.SP))
}

func (e *Engine) popStackDummy(b bus.Bus) error {
	if _, err := e.read(b, value.Stack(e.SP)); err != nil {
		return err
	}
	e.SP--
	return nil
}
