// i8080run loads a CP/M .COM file at 0x0100 and runs it against an
// emulated Intel 8080 with stdin/stdout wired up as the CP/M console.
//
// None of the argument parsing, file loading, or console wiring below
// is part of the emulator core; it is a thin external collaborator
// built on top of vm.Machine's fixed interfaces.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"os/signal"

	"github.com/jmchacon/i8080/cpm"
	"github.com/jmchacon/i8080/disasm"
	"github.com/jmchacon/i8080/vm"
)

var (
	memSizeKB      = flag.Int("mem_kb", 64, "guest RAM size in KiB, 1-64")
	debug          = flag.Bool("debug", false, "log a trace line per executed instruction")
	disasmTrace    = flag.Bool("disasm", false, "log a disassembled line per executed instruction")
	sigintAsInterr = flag.Bool("sigint_interrupt", false, "translate host SIGINT into a CPU interrupt instead of quitting")
)

// stdConsole implements cpm.Console against the process's stdin/stdout.
type stdConsole struct {
	r *bufio.Reader
	w *bufio.Writer
}

func (c *stdConsole) ReadByte() (byte, error) {
	return c.r.ReadByte()
}

func (c *stdConsole) WriteByte(b byte) error {
	if err := c.w.WriteByte(b); err != nil {
		return err
	}
	return c.w.Flush()
}

func main() {
	flag.Parse()
	if len(flag.Args()) != 1 {
		log.Fatalf("usage: %s [flags] <file.com>", os.Args[0])
	}

	data, err := ioutil.ReadFile(flag.Args()[0])
	if err != nil {
		log.Fatalf("can't open %s: %v", flag.Args()[0], err)
	}

	console := &stdConsole{r: bufio.NewReader(os.Stdin), w: bufio.NewWriter(os.Stdout)}

	m, err := vm.Init(&vm.MachineDef{
		MemSizeKB: *memSizeKB,
		Console:   console,
		Debug:     *debug,
	})
	if err != nil {
		log.Fatalf("can't initialize machine: %v", err)
	}

	if err := m.Load(data, 0x0100); err != nil {
		log.Fatalf("can't load %s: %v", flag.Args()[0], err)
	}

	if *sigintAsInterr {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		go func() {
			for range sig {
				m.RequestInterrupt()
			}
		}()
	}

	for {
		if *disasmTrace {
			mem := make([]byte, 3)
			for i := range mem {
				mem[i] = m.Mem.Read(m.CPU.PC + uint16(i))
			}
			text, _ := disasm.Disassemble(mem, 0)
			fmt.Printf("%.4X: %s\n", m.CPU.PC, text)
		}
		code, err := m.Step()
		if err != nil {
			log.Fatalf("execution error: %v", err)
		}
		if code != cpm.Success {
			break
		}
	}
}
