// Package vm composes the flag/arithmetic kernel, register file,
// interrupt latch, memory bus and CP/M environment shim into a
// runnable machine: it installs the host-trap routing between the
// CPU's OUT callback and the shim's BIOS/BDOS dispatch, and exposes
// the load/step/run surface a CLI front end drives.
package vm

import (
	"fmt"
	"log"

	"github.com/jmchacon/i8080/cpm"
	"github.com/jmchacon/i8080/cpu"
	"github.com/jmchacon/i8080/io"
	"github.com/jmchacon/i8080/irq"
	"github.com/jmchacon/i8080/memory"
)

// LoadRangeError reports a Load call whose range overlaps system
// memory.
type LoadRangeError struct {
	Origin, End, CCPAddr uint16
}

func (e LoadRangeError) Error() string {
	return fmt.Sprintf("vm: load range [0x%.4X,0x%.4X) overlaps system memory (CCP at 0x%.4X)", e.Origin, e.End, e.CCPAddr)
}

// MachineDef configures a Machine at construction time.
type MachineDef struct {
	// MemSizeKB is the guest RAM size in KiB, 1..=64.
	MemSizeKB int
	// Console services the CP/M BIOS console calls. Optional.
	Console cpm.Console
	// IO services any OUT/IN that isn't a CP/M host-trap. Optional.
	IO interface {
		io.Reader
		io.Writer
	}
	// Interrupts supplies the RST/NOP opcode for serviced
	// interrupts. Optional.
	Interrupts cpu.InterruptSource
	// Debug enables cpu.Processor trace output, routed through the
	// standard log package.
	Debug bool
}

// Machine is a complete CP/M-capable 8080 virtual machine.
type Machine struct {
	CPU    *cpu.Processor
	Mem    *memory.RAM
	Latch  *irq.Latch
	Shim   *cpm.Shim
	userIO interface {
		io.Reader
		io.Writer
	}
	debug    bool
	exitCode cpm.ExitCode
}

// Init validates def, builds the memory/latch/shim/CPU stack, and
// installs the CP/M trampolines into guest memory, ready to Load a
// program and Run.
func Init(def *MachineDef) (*Machine, error) {
	if def == nil {
		return nil, fmt.Errorf("vm: nil MachineDef")
	}
	memSize := def.MemSizeKB
	if memSize == 0 {
		memSize = 64
	}

	mem := memory.NewRAM()
	latch := irq.NewLatch()

	shim, err := cpm.Install(&cpm.ShimDef{
		MemSizeKB: memSize,
		Bus:       mem,
		Console:   def.Console,
	})
	if err != nil {
		return nil, err
	}

	m := &Machine{
		Mem:    mem,
		Latch:  latch,
		Shim:   shim,
		userIO: def.IO,
		debug:  def.Debug,
	}

	proc, err := cpu.Init(&cpu.ProcessorDef{
		Bus:        mem,
		IO:         m,
		Interrupts: def.Interrupts,
		Latch:      latch,
		Debug:      def.Debug,
	})
	if err != nil {
		return nil, err
	}
	m.CPU = proc

	return m, nil
}

// ReadPort implements cpu.IOHandler for IN. CP/M host calls never
// read; this simply forwards to the user-supplied IO handler, if
// any, and logs (never silently drops) an unhandled read otherwise.
func (m *Machine) ReadPort(port uint8) uint8 {
	if m.userIO != nil {
		return m.userIO.ReadPort(port)
	}
	log.Printf("vm: ignored read from port %d at PC=0x%.4X", port, m.CPU.PC)
	return 0
}

// WritePort implements cpu.IOHandler for OUT. It first checks whether
// PC-2 lands on one of the shim's installed host-call traps; if so
// the call is serviced against the shim and the machine's exit code
// is updated. Otherwise it forwards to the user-supplied IO handler,
// logging an unhandled write if none is installed.
func (m *Machine) WritePort(port uint8, val uint8) {
	if m.Shim.IsHostCall(m.CPU.PC) {
		code := m.Shim.HostCall(m.CPU.PC, m.CPU)
		if code != cpm.Success {
			m.exitCode = code
		}
		return
	}
	if m.userIO != nil {
		m.userIO.WritePort(port, val)
		return
	}
	log.Printf("vm: ignored write to port %d w/ data %d at PC=0x%.4X", port, val, m.CPU.PC)
}

// RequestInterrupt posts an interrupt request, safe to call from any
// goroutine (the producer side of the interrupt latch contract).
func (m *Machine) RequestInterrupt() {
	m.Latch.RequestInterrupt()
}

// Load places data into guest memory starting at origin, rejecting
// ranges that overlap system memory: below the TPA origin or at or
// beyond the CCP base.
func (m *Machine) Load(data []byte, origin uint16) error {
	end := origin + uint16(len(data))
	if origin < m.Shim.TPAOrigin() || uint32(origin)+uint32(len(data)) > uint32(m.Shim.CCPAddr()) {
		return LoadRangeError{Origin: origin, End: end, CCPAddr: m.Shim.CCPAddr()}
	}
	for i, b := range data {
		m.Mem.Write(origin+uint16(i), b)
	}
	return nil
}

// ExitCode reports why Step/Run last stopped making progress.
func (m *Machine) ExitCode() cpm.ExitCode {
	return m.exitCode
}

// Step runs exactly one instruction if the machine hasn't already
// exited, returning the current exit code.
func (m *Machine) Step() (cpm.ExitCode, error) {
	if m.exitCode != cpm.Success {
		return m.exitCode, nil
	}
	if err := m.CPU.Next(); err != nil {
		return m.exitCode, err
	}
	if m.debug {
		if line := m.CPU.Debug(); line != "" {
			log.Print(line)
		}
	}
	return m.exitCode, nil
}

// Run steps until the machine exits or an instruction fails.
func (m *Machine) Run() error {
	for m.exitCode == cpm.Success {
		if _, err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Reset restores the CPU's reset contract, clears the shim's
// warm-boot counter, and clears the latched exit code so the machine
// can Run again from the TPA.
func (m *Machine) Reset() {
	m.CPU.Reset()
	m.Shim.Reset()
	m.exitCode = cpm.Success
}
