// Package nmos implements a cycle-accurate emulation core for the original
// NMOS 6502, including the stable undocumented opcodes and a
// construction-time choice to disable decimal mode for NES-style (Ricoh)
// parts.
//
// The engine exposes both whole-instruction stepping (RunInstruction) and
// single-cycle stepping (StepCycle); both drive the exact same per-opcode
// cycle functions, so the two modes are guaranteed to produce identical bus
// traces for the same program by construction rather than by separately
// maintaining two implementations of every opcode.
package nmos

import (
	"errors"
	"fmt"

	"github.com/jchacon-labs/sixtyfiveo2/bus"
	"github.com/jchacon-labs/sixtyfiveo2/value"
)

// Vector addresses.
const (
	nmiVector   = value.Addr(0xFFFA)
	resetVector = value.Addr(0xFFFC)
	irqVector   = value.Addr(0xFFFE)
)

// ErrNotReady is returned by RunInstruction/StepCycle when the embedder's
// bus signaled it wasn't ready to service the current cycle. It is not an
// error in the Go sense so much as a sentinel: the engine's internal state
// is untouched and the exact same bus operation will be retried on the next
// call.
var ErrNotReady = errors.New("nmos: bus not ready")

// InvalidStateError reports an internal sequencing precondition failure
// (a bug in the engine, not a user error); it also halts the CPU since
// there's no sensible way to keep going.
type InvalidStateError struct {
	Reason string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("nmos: invalid CPU state: %s", e.Reason)
}

// HaltedError reports that a KIL/JAM opcode has executed; the CPU can no
// longer make forward progress until Reset is called.
type HaltedError struct {
	Opcode uint8
}

func (e HaltedError) Error() string {
	return fmt.Sprintf("nmos: halted on opcode 0x%02X", e.Opcode)
}

// Engine is one instance of an NMOS 6502 core. The zero value is not
// usable; construct with New or NewNES.
type Engine struct {
	PC uint16
	A  uint8
	X  uint8
	Y  uint8
	SP uint8
	f  flags

	op       uint8
	opStep   int // 0 == no instruction in progress
	opPhase  int // sub-phase counter for the post-addressing part of an instruction (load/store/rmw final cycles, branch/JMP/JSR/RTS/RTI/BRK internals)
	opVal    uint8
	opAddr   value.Addr
	addrStep int // sub-phase counter within the current addressing mode's state machine
	addrDone bool
	lo       uint8
	base1    value.Addr
	crossed  bool

	hijack          bool // latched: next fetch must be replaced by a dummy read + forced BRK
	nmiEdge         bool // sticky: an NMI has been observed and not yet serviced
	pendingReset    bool
	vector          value.Addr
	forcedInterrupt bool // true if the in-progress BRK-shaped sequence was entered via hardware IRQ/NMI/reset rather than the BRK opcode

	halted     bool
	haltOpcode uint8

	hasDecimal bool
}

// New constructs a standard NMOS 6502 with decimal mode enabled.
func New() *Engine {
	e := &Engine{hasDecimal: true}
	e.Reset()
	return e
}

// NewNES constructs the Ricoh NMOS variant used in the NES, which is
// identical to the standard part except that decimal mode is unimplemented.
func NewNES() *Engine {
	e := &Engine{hasDecimal: false}
	e.Reset()
	return e
}

// IsNMOS reports whether this is an NMOS-family engine; always true here,
// provided so callers holding either engine type through a common
// reflection/logging path can tell them apart without a type switch.
func (e *Engine) IsNMOS() bool { return true }

// Halted reports whether a KIL opcode has halted the CPU.
func (e *Engine) Halted() bool { return e.halted }

// PartialInst reports whether an instruction is currently suspended
// mid-sequence (i.e. a prior StepCycle call ended before the instruction
// completed).
func (e *Engine) PartialInst() bool { return e.opStep != 0 }

// Reset raises the reset latch; the next instruction boundary performs the
// (BRK-shaped, writes-demoted-to-reads) reset sequence described in the
// core's interrupt model. Registers are left untouched — on real silicon
// reset does not zero A/X/Y/SP, only redirects PC and forces I=1.
func (e *Engine) Reset() {
	e.pendingReset = true
	e.hijack = true
	e.halted = false
	e.haltOpcode = 0
	e.opStep = 0
}

// Register accessors.

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

// Status returns the packed status byte (bits 4 and 5 read back as 1).
func (e *Engine) Status() uint8 { return e.f.toByte() }

// SetStatus unpacks a status byte into the decomposed flags.
func (e *Engine) SetStatus(v uint8) { e.f.fromByte(v) }

// Flag is the enumeration of the six 6502 status bits for single-flag
// access.
type Flag int

const (
	FlagN Flag = iota
	FlagV
	FlagD
	FlagI
	FlagZ
	FlagC
)

// GetFlag reads a single status flag.
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

// SetFlag writes a single status flag.
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

// RunInstruction advances the engine through one complete instruction,
// starting a new one if none is in progress or resuming a suspended one.
// It returns ErrNotReady (without otherwise changing observable state) if
// the bus stalls mid-instruction; the caller should simply call
// RunInstruction again once the bus is ready, which re-issues the exact
// same bus operation.
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

// StepCycle advances the engine by at most one bus cycle: either starting
// a new instruction's first cycle or continuing a suspended one. done is
// true once the instruction completes on this call.
func (e *Engine) StepCycle(b bus.Bus) (done bool, err error) {
	return e.step(b)
}

// step executes exactly one bus-touching cycle of the current instruction
// (or the opcode fetch that starts the next one), returning (true, nil)
// once the instruction is fully complete.
func (e *Engine) step(b bus.Bus) (bool, error) {
	if e.halted {
		return false, HaltedError{e.haltOpcode}
	}
	if e.opStep == 0 {
		return e.fetch(b)
	}
	fn := nmosDispatch[e.op]
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

// fetch performs the opcode-fetch cycle: a real fetch that advances PC, or
// — if an interrupt/reset is latched from the previous instruction — a
// dummy read of PC with the opcode forced to BRK (0x00), per invariant 3.
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

// read performs one bus read, advancing opStep only on success so a
// not-ready cycle is retried verbatim on the next call.
func (e *Engine) read(b bus.Bus, addr value.Addr) (uint8, error) {
	v, ready := b.Read(uint16(addr))
	if !ready {
		return 0, ErrNotReady
	}
	e.opStep++
	return v, nil
}

// write performs one bus write under the same stall contract as read.
func (e *Engine) write(b bus.Bus, addr value.Addr, v uint8) error {
	if ready := b.Write(uint16(addr), v); !ready {
		return ErrNotReady
	}
	e.opStep++
	return nil
}

// load performs the final read of a load/RMW addressing sequence, polling
// interrupt signals immediately beforehand: on real silicon, polling
// happens in parallel with an instruction's last bus cycle.
func (e *Engine) load(b bus.Bus, addr value.Addr) (uint8, error) {
	e.pollSignals(b)
	return e.read(b, addr)
}

// store performs the final write of a store/RMW sequence, polling
// beforehand for the same reason as load.
func (e *Engine) store(b bus.Bus, addr value.Addr, v uint8) error {
	e.pollSignals(b)
	return e.write(b, addr, v)
}

// fetchOperand reads the byte at PC and advances PC, without polling (used
// for non-final operand/address bytes).
func (e *Engine) fetchOperand(b bus.Bus) (uint8, error) {
	v, err := e.read(b, value.Addr(e.PC))
	if err != nil {
		return 0, err
	}
	e.PC++
	return v, nil
}

// pollSignals samples the NMI/IRQ lines and latches hijack for the next
// opcode fetch.
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

// popStackDummy performs a dummy read at the current (pre-increment) stack
// location, used by the reset sequence in place of a push.
func (e *Engine) popStackDummy(b bus.Bus) error {
	if _, err := e.read(b, value.Stack(e.SP)); err != nil {
		return err
	}
	e.SP--
	return nil
}
