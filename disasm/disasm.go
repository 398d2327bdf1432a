// Package disasm implements a one-instruction-at-a-time disassembler
// for the Intel 8080 instruction set: given memory and a program
// counter it returns mnemonic text and the byte count to advance by.
package disasm

import "fmt"

var regNames = [8]string{"B", "C", "D", "E", "H", "L", "M", "A"}
var rpNames = [4]string{"B", "D", "H", "SP"}
var pushNames = [4]string{"B", "D", "H", "PSW"}
var condNames = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
var aluNames = [8]string{"ADD", "ADC", "SUB", "SBB", "ANA", "XRA", "ORA", "CMP"}
var aluImmNames = [8]string{"ADI", "ACI", "SUI", "SBI", "ANI", "XRI", "ORI", "CPI"}

// Disassemble decodes the single instruction at mem[pc] and returns
// its mnemonic text plus the number of bytes the caller should
// advance pc by to reach the next instruction. mem must have at
// least 3 bytes available from pc onward; callers that can't
// guarantee that (end of a loaded binary) should pad with NOPs.
func Disassemble(mem []byte, pc uint16) (string, int) {
	op := mem[pc]
	imm8 := func() uint8 {
		if int(pc)+1 < len(mem) {
			return mem[pc+1]
		}
		return 0
	}
	imm16 := func() uint16 {
		lo, hi := uint16(0), uint16(0)
		if int(pc)+1 < len(mem) {
			lo = uint16(mem[pc+1])
		}
		if int(pc)+2 < len(mem) {
			hi = uint16(mem[pc+2])
		}
		return hi<<8 | lo
	}

	switch {
	case op == 0x76:
		return "HLT", 1

	case op&0xC0 == 0x40:
		src, dst := op&0x07, (op>>3)&0x07
		return fmt.Sprintf("MOV  %s,%s", regNames[dst], regNames[src]), 1

	case op&0xC7 == 0x06:
		dst := (op >> 3) & 0x07
		return fmt.Sprintf("MVI  %s,0x%.2X", regNames[dst], imm8()), 2

	case op&0xCF == 0x01:
		rp := (op >> 4) & 0x03
		return fmt.Sprintf("LXI  %s,0x%.4X", rpNames[rp], imm16()), 3

	case op&0xC7 == 0x04:
		return fmt.Sprintf("INR  %s", regNames[(op>>3)&0x07]), 1

	case op&0xC7 == 0x05:
		return fmt.Sprintf("DCR  %s", regNames[(op>>3)&0x07]), 1

	case op&0xCF == 0x03:
		return fmt.Sprintf("INX  %s", rpNames[(op>>4)&0x03]), 1

	case op&0xCF == 0x0B:
		return fmt.Sprintf("DCX  %s", rpNames[(op>>4)&0x03]), 1

	case op&0xCF == 0x09:
		return fmt.Sprintf("DAD  %s", rpNames[(op>>4)&0x03]), 1

	case op >= 0x80 && op <= 0xBF:
		return fmt.Sprintf("%s  %s", aluNames[(op>>3)&0x07], regNames[op&0x07]), 1

	case op&0xC7 == 0xC6:
		return fmt.Sprintf("%s  0x%.2X", aluImmNames[(op>>3)&0x07], imm8()), 2

	case op&0xC7 == 0xC2:
		return fmt.Sprintf("J%s  0x%.4X", condNames[(op>>3)&0x07], imm16()), 3

	case op == 0xC3 || op == 0xCB:
		return fmt.Sprintf("JMP  0x%.4X", imm16()), 3

	case op&0xC7 == 0xC4:
		return fmt.Sprintf("C%s  0x%.4X", condNames[(op>>3)&0x07], imm16()), 3

	case op == 0xCD || op == 0xDD || op == 0xED || op == 0xFD:
		return fmt.Sprintf("CALL 0x%.4X", imm16()), 3

	case op&0xC7 == 0xC0:
		return fmt.Sprintf("R%s", condNames[(op>>3)&0x07]), 1

	case op == 0xC9 || op == 0xD9:
		return "RET", 1

	case op&0xC7 == 0xC7:
		return fmt.Sprintf("RST  %d", (op>>3)&0x07), 1

	case op == 0xE9:
		return "PCHL", 1

	case op&0xCF == 0xC5:
		return fmt.Sprintf("PUSH %s", pushNames[(op>>4)&0x03]), 1

	case op&0xCF == 0xC1:
		return fmt.Sprintf("POP  %s", pushNames[(op>>4)&0x03]), 1

	case op == 0xE3:
		return "XTHL", 1

	case op == 0xF9:
		return "SPHL", 1

	case op == 0xEB:
		return "XCHG", 1

	case op == 0x32:
		return fmt.Sprintf("STA  0x%.4X", imm16()), 3

	case op == 0x3A:
		return fmt.Sprintf("LDA  0x%.4X", imm16()), 3

	case op == 0x22:
		return fmt.Sprintf("SHLD 0x%.4X", imm16()), 3

	case op == 0x2A:
		return fmt.Sprintf("LHLD 0x%.4X", imm16()), 3

	case op == 0x02:
		return "STAX B", 1

	case op == 0x12:
		return "STAX D", 1

	case op == 0x0A:
		return "LDAX B", 1

	case op == 0x1A:
		return "LDAX D", 1

	case op == 0x07:
		return "RLC", 1

	case op == 0x0F:
		return "RRC", 1

	case op == 0x17:
		return "RAL", 1

	case op == 0x1F:
		return "RAR", 1

	case op == 0x27:
		return "DAA", 1

	case op == 0x37:
		return "STC", 1

	case op == 0x3F:
		return "CMC", 1

	case op == 0x2F:
		return "CMA", 1

	case op == 0xF3:
		return "DI", 1

	case op == 0xFB:
		return "EI", 1

	case op == 0xDB:
		return fmt.Sprintf("IN   0x%.2X", imm8()), 2

	case op == 0xD3:
		return fmt.Sprintf("OUT  0x%.2X", imm8()), 2

	default: // 0x00, 0x08, 0x10, 0x18, 0x20, 0x28, 0x30, 0x38
		return "NOP", 1
	}
}
