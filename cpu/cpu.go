// Package cpu implements an Intel 8080 instruction-set interpreter:
// the register file, the flag/arithmetic kernel (see alu.go), and the
// opcode dispatch loop (see exec.go).
package cpu

import (
	"fmt"

	"github.com/jmchacon/i8080/irq"
	"github.com/jmchacon/i8080/memory"
)

// Bus is the memory-read/write callback pair every Processor requires.
type Bus = memory.Bus

// IOHandler is the optional IN/OUT callback pair. A Processor built
// without one fails IN/OUT with a NoHandlerError rather than treating
// the port as open bus.
type IOHandler interface {
	ReadPort(port uint8) uint8
	WritePort(port uint8, val uint8)
}

// InterruptSource supplies the one-byte opcode to execute when the
// interrupt latch indicates a pending, enabled request. A Processor
// built without one fails interrupt service with a NoHandlerError.
type InterruptSource interface {
	InterruptAck() uint8
}

// NoHandlerError reports an IN/OUT or interrupt-service attempt
// against a callback the Processor was never given.
type NoHandlerError struct {
	Reason string
}

func (e NoHandlerError) Error() string {
	return fmt.Sprintf("i8080: no handler installed: %s", e.Reason)
}

// BadOpcodeError reports an opcode value outside 0..=255. Unreachable
// for a correctly sized byte type; kept for parity with the EOPCODE
// condition the original draws out as a distinct case.
type BadOpcodeError struct {
	Opcode int
}

func (e BadOpcodeError) Error() string {
	return fmt.Sprintf("i8080: opcode %d out of range", e.Opcode)
}

// InvalidDefError reports a ProcessorDef missing a required field.
type InvalidDefError struct {
	Reason string
}

func (e InvalidDefError) Error() string {
	return fmt.Sprintf("i8080: invalid ProcessorDef: %s", e.Reason)
}

// ProcessorDef configures a Processor at construction time. Bus is
// the only mandatory field; IO and Interrupts are optional
// capabilities, left nil when a caller has no use for them.
type ProcessorDef struct {
	// Bus provides guest memory read/write. Required.
	Bus Bus
	// IO services IN/OUT. Optional; IN/OUT fail with NoHandlerError
	// if nil.
	IO IOHandler
	// Interrupts supplies the RST/CALL opcode to run on a serviced
	// interrupt. Optional; interrupt service fails with
	// NoHandlerError if nil.
	Interrupts InterruptSource
	// Latch is the interrupt enable/request pair this Processor
	// polls once per Next(). Required.
	Latch *irq.Latch
	// Debug enables Debug() trace output. Off by default.
	Debug bool
}

// Processor is the 8080 register file plus the interpreter loop
// driving it. All fields are exported for debug/test inspection;
// production callers should only touch them through Reset and the
// register-pair accessors below, since PUSH PSW/POP PSW and DAA
// expect the flags to be live single-bit fields, not a stale packed
// byte cached somewhere else.
type Processor struct {
	A, B, C, D, E, H, L uint8
	SP, PC              uint16

	S, Z, AC, CY, P bool

	Halted bool
	// debug gates whether Next() populates lastTrace at all.
	debug bool
	// lastTrace holds the most recent Debug() line; cleared by
	// Debug() so a no-op step (HLT with nothing pending) reports
	// nothing the next time it isn't refreshed.
	lastTrace string

	// Cycles is the running total of per-instruction cycle costs
	// (opcodeCycles plus the 6-cycle taken-branch penalty). It
	// never decreases except across Reset.
	Cycles uint64

	bus   Bus
	io    IOHandler
	intr  InterruptSource
	latch *irq.Latch
}

// Init validates def and returns a ready Processor. PC, SP, the
// working registers and flags all start zeroed; callers that need a
// particular reset vector behavior load it themselves, since the
// 8080 (unlike the 6502) has no fixed reset vector to fetch.
func Init(def *ProcessorDef) (*Processor, error) {
	if def == nil {
		return nil, InvalidDefError{Reason: "nil ProcessorDef"}
	}
	if def.Bus == nil {
		return nil, InvalidDefError{Reason: "Bus is required"}
	}
	if def.Latch == nil {
		return nil, InvalidDefError{Reason: "Latch is required"}
	}
	return &Processor{
		bus:   def.Bus,
		io:    def.IO,
		intr:  def.Interrupts,
		latch: def.Latch,
		debug: def.Debug,
	}, nil
}

// Reset clears PC, halt, interrupt-enable and interrupt-request, and
// resets the cycle counter to zero. Working registers, SP and flags
// are intentionally left undisturbed.
func (p *Processor) Reset() {
	p.PC = 0
	p.Halted = false
	p.Cycles = 0
	p.latch.Reset()
}

// Debug returns a one-line trace of the most recently executed
// instruction, or the empty string if Next has not been called since
// the last call to Debug.
func (p *Processor) Debug() string {
	s := p.lastTrace
	p.lastTrace = ""
	return s
}

// packFlags returns the flag word in the layout PUSH PSW observes:
// bit0=CY, bit1=1, bit2=P, bit3=0, bit4=AC, bit5=0, bit6=Z, bit7=S.
func (p *Processor) packFlags() uint8 {
	var f uint8 = 0x02
	if p.CY {
		f |= 0x01
	}
	if p.P {
		f |= 0x04
	}
	if p.AC {
		f |= 0x10
	}
	if p.Z {
		f |= 0x40
	}
	if p.S {
		f |= 0x80
	}
	return f
}

// unpackFlags loads S/Z/AC/P/CY from a packed flag byte, as POP PSW
// requires. Bits 1, 3 and 5 are ignored on the way in: a round-trip
// through pack/unpack always yields bit 1 set again regardless of
// what the guest wrote there.
func (p *Processor) unpackFlags(f uint8) {
	p.CY = f&0x01 != 0
	p.P = f&0x04 != 0
	p.AC = f&0x10 != 0
	p.Z = f&0x40 != 0
	p.S = f&0x80 != 0
}

// setZSP updates Z, S and P from a result byte, leaving CY and AC
// untouched; nearly every arithmetic and logic opcode ends this way.
func (p *Processor) setZSP(result uint8) {
	z, s, pa := zsp(result)
	p.Z = z == 1
	p.S = s == 1
	p.P = pa == 1
}

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// bc, de, hl read and write the named register pair as a big-endian
// 16-bit value (high register first).
func (p *Processor) bc() uint16     { return uint16(p.B)<<8 | uint16(p.C) }
func (p *Processor) setBC(v uint16) { p.B, p.C = uint8(v>>8), uint8(v) }
func (p *Processor) de() uint16     { return uint16(p.D)<<8 | uint16(p.E) }
func (p *Processor) setDE(v uint16) { p.D, p.E = uint8(v>>8), uint8(v) }
func (p *Processor) hl() uint16     { return uint16(p.H)<<8 | uint16(p.L) }
func (p *Processor) setHL(v uint16) { p.H, p.L = uint8(v>>8), uint8(v) }

// fetch reads the byte at PC and advances PC by one, wrapping modulo
// 2^16.
func (p *Processor) fetch() uint8 {
	v := p.bus.Read(p.PC)
	p.PC++
	return v
}

// fetch16 reads a little-endian 16-bit immediate (low byte first in
// the instruction stream) and advances PC by two.
func (p *Processor) fetch16() uint16 {
	lo := p.fetch()
	hi := p.fetch()
	return uint16(hi)<<8 | uint16(lo)
}

// push writes a 16-bit value to the guest stack: high byte at SP-1,
// low byte at SP-2, then SP -= 2. Address arithmetic wraps modulo
// 2^16.
func (p *Processor) push(v uint16) {
	p.SP--
	p.bus.Write(p.SP, uint8(v>>8))
	p.SP--
	p.bus.Write(p.SP, uint8(v))
}

// pop reads a 16-bit value off the guest stack and advances SP by 2.
func (p *Processor) pop() uint16 {
	lo := p.bus.Read(p.SP)
	p.SP++
	hi := p.bus.Read(p.SP)
	p.SP++
	return uint16(hi)<<8 | uint16(lo)
}

// readReg8 and writeReg8 decode the 3-bit register field used
// throughout the opcode map: 0=B 1=C 2=D 3=E 4=H 5=L 6=M(=(HL)) 7=A.
func (p *Processor) readReg8(code uint8) uint8 {
	switch code & 0x07 {
	case 0:
		return p.B
	case 1:
		return p.C
	case 2:
		return p.D
	case 3:
		return p.E
	case 4:
		return p.H
	case 5:
		return p.L
	case 6:
		return p.bus.Read(p.hl())
	default:
		return p.A
	}
}

func (p *Processor) writeReg8(code uint8, v uint8) {
	switch code & 0x07 {
	case 0:
		p.B = v
	case 1:
		p.C = v
	case 2:
		p.D = v
	case 3:
		p.E = v
	case 4:
		p.H = v
	case 5:
		p.L = v
	case 6:
		p.bus.Write(p.hl(), v)
	default:
		p.A = v
	}
}

// readRP and writeRP decode the 2-bit register-pair field used by
// LXI/DAD/INX/DCX/PUSH/POP: 0=BC 1=DE 2=HL 3=SP (or PSW for
// PUSH/POP, handled separately by the caller).
func (p *Processor) readRP(code uint8) uint16 {
	switch code & 0x03 {
	case 0:
		return p.bc()
	case 1:
		return p.de()
	case 2:
		return p.hl()
	default:
		return p.SP
	}
}

func (p *Processor) writeRP(code uint8, v uint16) {
	switch code & 0x03 {
	case 0:
		p.setBC(v)
	case 1:
		p.setDE(v)
	case 2:
		p.setHL(v)
	default:
		p.SP = v
	}
}

// GetA, SetA, GetC, GetDE, SetSP and SetPC give the cpm package (and
// anything else that needs a minimal register view) direct access
// without exposing the full Processor struct. Go's structural typing
// means a *Processor already satisfies cpm.Registers through these
// alone.
func (p *Processor) GetA() uint8    { return p.A }
func (p *Processor) SetA(v uint8)   { p.A = v }
func (p *Processor) GetC() uint8    { return p.C }
func (p *Processor) GetDE() uint16  { return p.de() }
func (p *Processor) SetSP(v uint16) { p.SP = v }
func (p *Processor) SetPC(v uint16) { p.PC = v }

// condTaken evaluates one of the eight 3-bit condition codes used by
// conditional JMP/CALL/RET against the current flags.
func (p *Processor) condTaken(code uint8) bool {
	switch code & 0x07 {
	case 0:
		return !p.Z
	case 1:
		return p.Z
	case 2:
		return !p.CY
	case 3:
		return p.CY
	case 4:
		return !p.P
	case 5:
		return p.P
	case 6:
		return !p.S
	default:
		return p.S
	}
}
