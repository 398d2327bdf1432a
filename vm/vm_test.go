package vm

import (
	"bytes"
	"testing"

	"github.com/jmchacon/i8080/cpm"
)

type bufConsole struct {
	out bytes.Buffer
}

func (c *bufConsole) ReadByte() (byte, error) { return 0, nil }
func (c *bufConsole) WriteByte(b byte) error {
	return c.out.WriteByte(b)
}

func TestLoadRejectsOutOfRange(t *testing.T) {
	m, err := Init(&MachineDef{MemSizeKB: 64})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := m.Load([]byte{1, 2, 3}, 0x0000); err == nil {
		t.Error("expected LoadRangeError for origin below TPA")
	}
	if err := m.Load([]byte{1, 2, 3}, m.Shim.CCPAddr()); err == nil {
		t.Error("expected LoadRangeError for origin at CCP base")
	}
	if err := m.Load([]byte{1, 2, 3}, 0x0100); err != nil {
		t.Errorf("Load at TPA origin: unexpected error %v", err)
	}
}

func TestRunPrintsViaBDOS(t *testing.T) {
	con := &bufConsole{}
	m, err := Init(&MachineDef{MemSizeKB: 64, Console: con})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	// MVI E,'H' ; MVI C,2 ; CALL BDOS (print char) ; JMP 0
	bdos := m.Shim.BDOSAddr()
	prog := []byte{
		0x1E, 'H', // MVI E,'H'
		0x0E, 0x02, // MVI C,2
		0xCD, byte(bdos), byte(bdos >> 8), // CALL BDOS
		0xC3, 0x00, 0x00, // JMP 0x0000 (cold boot -> warm boot -> exit)
	}
	if err := m.Load(prog, 0x0100); err != nil {
		t.Fatalf("Load: %v", err)
	}
	// m.CPU.PC starts at 0 (Reset default), which is the cold-boot
	// vector; Run drives the boot trampoline through to the TPA
	// before the loaded program's first instruction executes.

	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if con.out.String() != "H" {
		t.Errorf("console output = %q, want %q", con.out.String(), "H")
	}
	if m.ExitCode() != cpm.ProgramExit {
		t.Errorf("ExitCode = %v, want ProgramExit", m.ExitCode())
	}
}

func TestResetClearsExitCode(t *testing.T) {
	m, err := Init(&MachineDef{MemSizeKB: 64})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	m.exitCode = cpm.UnimplementedSyscall
	m.Reset()
	if m.ExitCode() != cpm.Success {
		t.Errorf("ExitCode after Reset = %v, want Success", m.ExitCode())
	}
}

func TestInterruptWithoutSourceFails(t *testing.T) {
	m, err := Init(&MachineDef{MemSizeKB: 64})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	m.Latch.SetEnabled(true)
	m.RequestInterrupt()
	if _, err := m.Step(); err == nil {
		t.Error("expected an error stepping with a pending interrupt and no InterruptSource")
	}
}
