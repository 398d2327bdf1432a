package cpm

import (
	"bytes"
	"testing"

	"github.com/jmchacon/i8080/memory"
)

// fakeRegisters is a minimal Registers implementation for exercising
// HostCall without a real cpu.Processor.
type fakeRegisters struct {
	a, c   uint8
	d, e   uint8
	sp, pc uint16
}

func (r *fakeRegisters) GetA() uint8    { return r.a }
func (r *fakeRegisters) SetA(v uint8)   { r.a = v }
func (r *fakeRegisters) GetC() uint8    { return r.c }
func (r *fakeRegisters) GetDE() uint16  { return uint16(r.d)<<8 | uint16(r.e) }
func (r *fakeRegisters) SetSP(v uint16) { r.sp = v }
func (r *fakeRegisters) SetPC(v uint16) { r.pc = v }

type bufConsole struct {
	out bytes.Buffer
	in  *bytes.Reader
}

func (c *bufConsole) ReadByte() (byte, error) { return c.in.ReadByte() }
func (c *bufConsole) WriteByte(b byte) error  { return c.out.WriteByte(b) }

func TestInstallLayout(t *testing.T) {
	mem := memory.NewRAM()
	s, err := Install(&ShimDef{MemSizeKB: 64, Bus: mem})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if s.CCPAddr() != 1024*(64-7) {
		t.Errorf("CCPAddr = %#x, want %#x", s.CCPAddr(), 1024*(64-7))
	}
	if s.BDOSAddr() != s.CCPAddr()+0x0806 {
		t.Errorf("BDOSAddr = %#x, want CCPAddr+0x0806", s.BDOSAddr())
	}
	// Cold boot vector at 0x0000 must be a JMP to the BIOS table.
	if mem.Read(0) != 0xC3 {
		t.Errorf("mem[0] = %#x, want 0xC3 (JMP)", mem.Read(0))
	}
}

func TestInstallRejectsBadMemSize(t *testing.T) {
	mem := memory.NewRAM()
	if _, err := Install(&ShimDef{MemSizeKB: 0, Bus: mem}); err == nil {
		t.Error("expected error for MemSizeKB=0")
	}
	if _, err := Install(&ShimDef{MemSizeKB: 65, Bus: mem}); err == nil {
		t.Error("expected error for MemSizeKB=65")
	}
}

func TestBDOSPrintChar(t *testing.T) {
	mem := memory.NewRAM()
	con := &bufConsole{in: bytes.NewReader(nil)}
	s, _ := Install(&ShimDef{MemSizeKB: 64, Bus: mem, Console: con})

	regs := &fakeRegisters{c: 2, e: 'X'}
	code := s.HostCall(s.BDOSAddr()+hostCallPCOffset, regs)
	if code != Success {
		t.Errorf("HostCall = %v, want Success", code)
	}
	if con.out.String() != "X" {
		t.Errorf("console output = %q, want %q", con.out.String(), "X")
	}
}

func TestBDOSPrintString(t *testing.T) {
	mem := memory.NewRAM()
	con := &bufConsole{in: bytes.NewReader(nil)}
	s, _ := Install(&ShimDef{MemSizeKB: 64, Bus: mem, Console: con})

	msg := "HELLO$"
	for i, c := range []byte(msg) {
		mem.Write(0x2000+uint16(i), c)
	}
	regs := &fakeRegisters{c: 9, d: 0x20, e: 0x00}
	s.HostCall(s.BDOSAddr()+hostCallPCOffset, regs)
	if con.out.String() != "HELLO" {
		t.Errorf("console output = %q, want %q", con.out.String(), "HELLO")
	}
}

func TestBIOSConsoleInEOF(t *testing.T) {
	mem := memory.NewRAM()
	s, _ := Install(&ShimDef{MemSizeKB: 64, Bus: mem}) // no console installed
	regs := &fakeRegisters{}
	addr := s.biosImplAddr + hostCallPCOffset // CONIN is BIOS call 3
	s.HostCall(addr+3*uint16(len(hostCall)), regs)
	if regs.a != 0x1A {
		t.Errorf("A after CONIN with no console = %#x, want 0x1A (EOF)", regs.a)
	}
}

func TestWarmBootTwoStage(t *testing.T) {
	mem := memory.NewRAM()
	s, _ := Install(&ShimDef{MemSizeKB: 64, Bus: mem})
	regs := &fakeRegisters{}

	code := s.bios(1, regs) // WBOOT, first entry
	if code != Success {
		t.Fatalf("first warm boot = %v, want Success", code)
	}
	if regs.pc != tpaOrigin {
		t.Errorf("PC after first warm boot = %#x, want %#x", regs.pc, tpaOrigin)
	}

	code = s.bios(1, regs) // second entry: program returned to CP/M
	if code != ProgramExit {
		t.Errorf("second warm boot = %v, want ProgramExit", code)
	}
}

func TestUnimplementedBIOSCall(t *testing.T) {
	mem := memory.NewRAM()
	s, _ := Install(&ShimDef{MemSizeKB: 64, Bus: mem})
	regs := &fakeRegisters{}
	if code := s.bios(5, regs); code != UnimplementedSyscall {
		t.Errorf("bios(5) = %v, want UnimplementedSyscall", code)
	}
}
