// Package cpm implements the minimal CP/M-2.2 environment shim: the
// BIOS/BDOS jump-table layout, the low-memory entry trampolines, and
// the host-call dispatch that lets unmodified CP/M .COM programs run
// and terminate cleanly against a host console, without a real CP/M
// BIOS binary resident in guest memory.
package cpm

import "fmt"

// tpaOrigin is the transient program area origin, where a loaded
// .COM file's first byte lands and where PC is set on warm boot.
const tpaOrigin = 0x0100

// hostCall is the three-byte trap the shim writes at every service
// address: OUT 0xFF; RET. The port value is unused; services are
// identified purely by the address of the OUT byte.
var hostCall = [3]byte{0xD3, 0xFF, 0xC9}

const hostCallPCOffset = 2

const numBIOSCalls = 17

// Console is the host side of BIOS calls 2-4: console status/input/
// output. The CLI supplies a stdin/stdout implementation; tests
// supply an in-memory buffer.
type Console interface {
	ReadByte() (byte, error)
	WriteByte(b byte) error
}

// Bus is the guest memory read/write capability the shim needs to
// install its trampolines and service BDOS function 9.
type Bus interface {
	Read(addr uint16) uint8
	Write(addr uint16, val uint8)
}

// UnimplementedCallError reports a BIOS or BDOS function number the
// shim does not implement.
type UnimplementedCallError struct {
	Kind   string // "BIOS" or "BDOS"
	Number int
}

func (e UnimplementedCallError) Error() string {
	return fmt.Sprintf("cpm: %s call %d not implemented", e.Kind, e.Number)
}

// ExitCode classifies why HostCall stopped being able to make
// progress.
type ExitCode int

const (
	// Success means the VM is still running.
	Success ExitCode = iota
	// ProgramExit means the guest program performed its second
	// warm-boot (returned control to CP/M after running).
	ProgramExit
	// UnimplementedSyscall means an unhandled BIOS/BDOS function was
	// invoked.
	UnimplementedSyscall
)

// ShimDef configures a Shim at construction time.
type ShimDef struct {
	// MemSizeKB is the guest RAM size in KiB, 1..=64. The CCP base,
	// BDOS entry, and BIOS table addresses all scale from it.
	MemSizeKB int
	// Bus is the guest memory the shim installs its trampolines
	// into. Required.
	Bus Bus
	// Console services BIOS calls 2-4. May be nil; CONIN then
	// returns 0x1A (EOF) and console output is discarded.
	Console Console
}

// Shim computes the CP/M-2.2 memory layout for a given machine size
// and dispatches the BIOS/BDOS host calls the CPU traps into via the
// OUT/RET sentinel (cpu's IOHandler.WritePort, routed here by
// vm.Machine).
type Shim struct {
	bus     Bus
	console Console

	ccpAddr       uint16
	bdosAddr      uint16
	biosTableAddr uint16
	biosImplAddr  uint16

	numWarmBoots int
}

// Install validates def, computes the CP/M memory layout, and writes
// the cold-boot vector, the BIOS jump table, and every OUT/RET host
// trap into guest memory.
func Install(def *ShimDef) (*Shim, error) {
	if def == nil {
		return nil, InvalidDefError{Reason: "nil ShimDef"}
	}
	if def.Bus == nil {
		return nil, InvalidDefError{Reason: "Bus is required"}
	}
	if def.MemSizeKB < 1 || def.MemSizeKB > 64 {
		return nil, InvalidDefError{Reason: fmt.Sprintf("MemSizeKB %d out of range 1..64", def.MemSizeKB)}
	}

	ccpAddr := uint16(1024 * (def.MemSizeKB - 7))
	s := &Shim{
		bus:           def.Bus,
		console:       def.Console,
		ccpAddr:       ccpAddr,
		bdosAddr:      ccpAddr + 0x0806,
		biosTableAddr: ccpAddr + 0x1600,
		biosImplAddr:  uint16(1024*def.MemSizeKB - numBIOSCalls*len(hostCall)),
	}

	tablePtr := s.biosTableAddr
	implPtr := s.biosImplAddr
	for i := 0; i < numBIOSCalls; i++ {
		s.writeJMP(tablePtr, implPtr)
		s.writeHostCall(implPtr)
		tablePtr += 3
		implPtr += uint16(len(hostCall))
	}

	s.writeHostCall(s.bdosAddr)
	s.writeJMP(0x0000, s.biosTableAddr)

	return s, nil
}

// InvalidDefError reports a ShimDef missing or out of range.
type InvalidDefError struct {
	Reason string
}

func (e InvalidDefError) Error() string {
	return fmt.Sprintf("cpm: invalid ShimDef: %s", e.Reason)
}

func (s *Shim) writeJMP(at, target uint16) {
	s.bus.Write(at, 0xC3) // JMP
	s.bus.Write(at+1, uint8(target))
	s.bus.Write(at+2, uint8(target>>8))
}

func (s *Shim) writeHostCall(at uint16) {
	for i, b := range hostCall {
		s.bus.Write(at+uint16(i), b)
	}
}

// CCPAddr, BDOSAddr and TPAOrigin expose the computed layout so
// vm.Machine can validate Load ranges and seed the stack pointer.
func (s *Shim) CCPAddr() uint16   { return s.ccpAddr }
func (s *Shim) BDOSAddr() uint16  { return s.bdosAddr }
func (s *Shim) TPAOrigin() uint16 { return tpaOrigin }

// IsHostCall reports whether pc (the return address of an OUT
// instruction, i.e. cpu.PC after the OUT's two bytes) points at one
// of this shim's installed traps.
func (s *Shim) IsHostCall(pc uint16) bool {
	addr := pc - hostCallPCOffset
	return addr >= s.biosImplAddr || addr == s.bdosAddr
}

// HostCall services the trap at the OUT instruction whose address is
// pc-2 against the register state regs provides. It returns the exit
// code resulting from the call (Success unless the call terminated or
// failed the program).
func (s *Shim) HostCall(pc uint16, regs Registers) ExitCode {
	addr := pc - hostCallPCOffset

	if addr >= s.biosImplAddr {
		callNo := int((addr - s.biosImplAddr) / uint16(len(hostCall)))
		return s.bios(callNo, regs)
	}
	return s.bdos(regs)
}

// Registers is the minimal slice of CPU state the host calls read or
// write: A for return values, {B,C} for the BDOS function selector
// and character/BIOS argument, {D,E} for BDOS function 9's string
// pointer, and SP/PC for the warm-boot trampoline rewrite.
type Registers interface {
	GetA() uint8
	SetA(uint8)
	GetC() uint8
	GetDE() uint16
	SetSP(uint16)
	SetPC(uint16)
}

func (s *Shim) bios(callNo int, regs Registers) ExitCode {
	switch callNo {
	case 0, 1: // BOOT, WBOOT
		return s.warmBoot(regs)
	case 2: // CONST
		regs.SetA(0x00)
		return Success
	case 3: // CONIN
		regs.SetA(s.consoleIn())
		return Success
	case 4: // CONOUT
		s.consoleOut(regs.GetC())
		return Success
	default:
		return UnimplementedSyscall
	}
}

func (s *Shim) bdos(regs Registers) ExitCode {
	switch regs.GetC() {
	case 0: // system reset
		return s.warmBoot(regs)
	case 2: // print char in E
		s.consoleOut(uint8(regs.GetDE()))
		return Success
	case 9: // print $-terminated string at (D<<8)|E
		addr := regs.GetDE()
		for {
			c := s.bus.Read(addr)
			if c == '$' {
				break
			}
			s.consoleOut(c)
			addr++
		}
		return Success
	default:
		return UnimplementedSyscall
	}
}

// warmBoot implements CP/M's two-stage boot behavior: the first entry
// sets up the BDOS/WBOOT trampolines at 0x0000/0x0005 and starts the
// guest program at the TPA origin; the second entry (the program
// returning control to CP/M) signals exit.
func (s *Shim) warmBoot(regs Registers) ExitCode {
	s.numWarmBoots++
	switch s.numWarmBoots {
	case 1:
		s.writeJMP(0x0005, s.bdosAddr)
		s.writeJMP(0x0000, s.biosTableAddr+3)

		sp := s.ccpAddr + 0x07aa
		s.bus.Write(sp, uint8((s.biosTableAddr+3)>>8))
		sp--
		s.bus.Write(sp, uint8(s.biosTableAddr+3))
		regs.SetSP(sp)

		regs.SetPC(tpaOrigin)
		return Success
	default:
		return ProgramExit
	}
}

// consoleIn reads one byte from the console. If the console is
// exhausted or absent it returns CP/M's conventional EOF marker
// (Ctrl-Z, 0x1A) rather than blocking.
func (s *Shim) consoleIn() uint8 {
	if s.console == nil {
		return 0x1A
	}
	b, err := s.console.ReadByte()
	if err != nil {
		return 0x1A
	}
	return b
}

func (s *Shim) consoleOut(b uint8) {
	if s.console == nil {
		return
	}
	_ = s.console.WriteByte(b)
}

// Reset zeroes the warm-boot counter so a restarted program boots
// from scratch.
func (s *Shim) Reset() {
	s.numWarmBoots = 0
}
