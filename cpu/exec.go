package cpu

import "fmt"

// opcodeCycles is the base cycle cost of each of the 256 opcode
// encodings, transcribed from the Intel 8080 Programmer's Manual pg
// 77-79. Conditional CALL/RET add 6 more when the branch is taken;
// that penalty is applied in Next(), not here.
var opcodeCycles = [256]uint8{
	//  0   1   2   3   4   5   6   7   8   9   A   B   C   D   E   F
	4, 10, 7, 5, 5, 5, 7, 4, 4, 10, 7, 5, 5, 5, 7, 4, // 0
	4, 10, 7, 5, 5, 5, 7, 4, 4, 10, 7, 5, 5, 5, 7, 4, // 1
	4, 10, 16, 5, 5, 5, 7, 4, 4, 10, 16, 5, 5, 5, 7, 4, // 2
	4, 10, 13, 5, 10, 10, 10, 4, 4, 10, 13, 5, 5, 5, 7, 4, // 3
	5, 5, 5, 5, 5, 5, 7, 5, 5, 5, 5, 5, 5, 5, 7, 5, // 4
	5, 5, 5, 5, 5, 5, 7, 5, 5, 5, 5, 5, 5, 5, 7, 5, // 5
	5, 5, 5, 5, 5, 5, 7, 5, 5, 5, 5, 5, 5, 5, 7, 5, // 6
	7, 7, 7, 7, 7, 7, 7, 7, 5, 5, 5, 5, 5, 5, 7, 5, // 7
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4, // 8
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4, // 9
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4, // A
	4, 4, 4, 4, 4, 4, 7, 4, 4, 4, 4, 4, 4, 4, 7, 4, // B
	5, 10, 10, 10, 11, 11, 7, 11, 5, 10, 10, 10, 11, 17, 7, 11, // C
	5, 10, 10, 10, 11, 11, 7, 11, 5, 10, 10, 10, 11, 17, 7, 11, // D
	5, 10, 10, 18, 11, 11, 7, 11, 5, 5, 10, 5, 11, 17, 7, 11, // E
	5, 10, 10, 4, 11, 11, 7, 11, 5, 5, 10, 4, 11, 17, 7, 11, // F
}

// Next performs exactly one of three actions, in priority order:
// service a pending interrupt, stay halted, or fetch-decode-execute
// the next instruction. It returns
// nil on success. When an opcode fails for lack of a callback, the
// opcode has already been fetched (or acknowledged from the
// InterruptSource) and its base cycle cost added to Cycles.
func (p *Processor) Next() error {
	if p.latch.TestAndClear() {
		if p.intr == nil {
			return NoHandlerError{Reason: "interrupt pending but no InterruptSource installed"}
		}
		p.Halted = false
		op := p.intr.InterruptAck()
		p.Cycles += uint64(opcodeCycles[op])
		taken, err := p.execute(op)
		if err != nil {
			return err
		}
		if taken {
			p.Cycles += 6
		}
		if p.debug {
			p.lastTrace = traceLine("INT", op, p.PC)
		}
		return nil
	}

	if p.Halted {
		return nil
	}

	pc := p.PC
	op := p.fetch()
	p.Cycles += uint64(opcodeCycles[op])
	taken, err := p.execute(op)
	if err != nil {
		return err
	}
	if taken {
		p.Cycles += 6
	}
	if p.debug {
		p.lastTrace = traceLine("", op, pc)
	}
	return nil
}

func traceLine(prefix string, op uint8, pc uint16) string {
	if prefix != "" {
		return fmt.Sprintf("%s: op=%.2X serviced at PC=%.4X", prefix, op, pc)
	}
	return fmt.Sprintf("%.4X: op=%.2X", pc, op)
}

// execute runs one opcode. It returns whether a conditional
// CALL/RET's branch was taken (the caller adds the 6-cycle penalty),
// and an error if the opcode required a callback that was not
// installed.
//
// Grouped by the register/register-pair/condition-code fields common
// across the 8080 encoding: most of the 256 cases collapse into a
// handful of decode-by-bit-pattern branches rather than 256 literal
// case labels, but the semantics of every documented and undocumented
// opcode (including the NOP/CALL/JMP/RET aliases) are preserved
// exactly.
func (p *Processor) execute(op uint8) (takenBranch bool, err error) {
	switch {
	case op == 0x76: // HLT
		p.Halted = true
		return false, nil

	case op&0xC0 == 0x40: // MOV r1,r2 (0x40-0x7F except 0x76)
		src := op & 0x07
		dst := (op >> 3) & 0x07
		p.writeReg8(dst, p.readReg8(src))
		return false, nil

	case op&0xC7 == 0x06: // MVI r,imm (and MVI M,imm)
		dst := (op >> 3) & 0x07
		p.writeReg8(dst, p.fetch())
		return false, nil

	case op&0xCF == 0x01: // LXI rp,imm16
		p.writeRP((op>>4)&0x03, p.fetch16())
		return false, nil

	case op&0xC7 == 0x04: // INR r|M
		dst := (op >> 3) & 0x07
		v := p.readReg8(dst)
		r, _, ac := addWithCarry(v, 1, 0)
		p.writeReg8(dst, r)
		p.setZSP(r)
		p.AC = ac == 1
		return false, nil

	case op&0xC7 == 0x05: // DCR r|M
		dst := (op >> 3) & 0x07
		v := p.readReg8(dst)
		r, _, ac := subWithBorrow(v, 1, 0)
		p.writeReg8(dst, r)
		p.setZSP(r)
		p.AC = ac == 1
		return false, nil

	case op&0xCF == 0x03: // INX rp
		p.writeRP((op>>4)&0x03, p.readRP((op>>4)&0x03)+1)
		return false, nil

	case op&0xCF == 0x0B: // DCX rp
		p.writeRP((op>>4)&0x03, p.readRP((op>>4)&0x03)-1)
		return false, nil

	case op&0xCF == 0x09: // DAD rp
		hl := p.hl()
		rp := p.readRP((op >> 4) & 0x03)
		sum := uint32(hl) + uint32(rp)
		p.setHL(uint16(sum))
		p.CY = sum > 0xFFFF
		return false, nil

	case op >= 0x80 && op <= 0xBF: // ADD/ADC/SUB/SBB/ANA/XRA/ORA/CMP r|M
		return false, p.aluGroup(op)

	case op&0xC7 == 0xC6: // ALU imm8 group (ADI,ACI,SUI,SBI,ANI,XRI,ORI,CPI)
		return false, p.aluImmGroup(op)

	case op&0xC7 == 0xC2: // JMP cond,addr
		addr := p.fetch16()
		if p.condTaken((op >> 3) & 0x07) {
			p.PC = addr
		}
		return false, nil

	case op == 0xC3 || op == 0xCB: // JMP addr (0xCB undocumented alias)
		p.PC = p.fetch16()
		return false, nil

	case op&0xC7 == 0xC4: // CALL cond,addr
		addr := p.fetch16()
		if p.condTaken((op >> 3) & 0x07) {
			p.push(p.PC)
			p.PC = addr
			return true, nil
		}
		return false, nil

	case op == 0xCD || op == 0xDD || op == 0xED || op == 0xFD: // CALL addr (+ undocumented aliases)
		addr := p.fetch16()
		p.push(p.PC)
		p.PC = addr
		return false, nil

	case op&0xC7 == 0xC0: // RET cond
		if p.condTaken((op >> 3) & 0x07) {
			p.PC = p.pop()
			return true, nil
		}
		return false, nil

	case op == 0xC9 || op == 0xD9: // RET (0xD9 undocumented alias)
		p.PC = p.pop()
		return false, nil

	case op&0xC7 == 0xC7: // RST n
		n := (op >> 3) & 0x07
		p.push(p.PC)
		p.PC = uint16(n) * 8
		return false, nil

	case op == 0xE9: // PCHL
		p.PC = p.hl()
		return false, nil

	case op&0xCF == 0xC5: // PUSH rp/PSW
		if op&0x30 == 0x30 {
			p.push(uint16(p.A)<<8 | uint16(p.packFlags()))
		} else {
			p.push(p.readRP((op >> 4) & 0x03))
		}
		return false, nil

	case op&0xCF == 0xC1: // POP rp/PSW
		v := p.pop()
		if op&0x30 == 0x30 {
			p.A = uint8(v >> 8)
			p.unpackFlags(uint8(v))
		} else {
			p.writeRP((op>>4)&0x03, v)
		}
		return false, nil

	case op == 0xE3: // XTHL
		lo := p.bus.Read(p.SP)
		hi := p.bus.Read(p.SP + 1)
		p.bus.Write(p.SP, p.L)
		p.bus.Write(p.SP+1, p.H)
		p.L, p.H = lo, hi
		return false, nil

	case op == 0xF9: // SPHL
		p.SP = p.hl()
		return false, nil

	case op == 0xEB: // XCHG
		hl := p.hl()
		p.setHL(p.de())
		p.setDE(hl)
		return false, nil

	case op == 0x32: // STA addr
		p.bus.Write(p.fetch16(), p.A)
		return false, nil

	case op == 0x3A: // LDA addr
		p.A = p.bus.Read(p.fetch16())
		return false, nil

	case op == 0x22: // SHLD addr
		addr := p.fetch16()
		p.bus.Write(addr, p.L)
		p.bus.Write(addr+1, p.H)
		return false, nil

	case op == 0x2A: // LHLD addr
		addr := p.fetch16()
		p.L = p.bus.Read(addr)
		p.H = p.bus.Read(addr + 1)
		return false, nil

	case op == 0x02: // STAX B
		p.bus.Write(p.bc(), p.A)
		return false, nil

	case op == 0x12: // STAX D
		p.bus.Write(p.de(), p.A)
		return false, nil

	case op == 0x0A: // LDAX B
		p.A = p.bus.Read(p.bc())
		return false, nil

	case op == 0x1A: // LDAX D
		p.A = p.bus.Read(p.de())
		return false, nil

	case op == 0x07: // RLC
		r, cy := rlc(p.A)
		p.A, p.CY = r, cy == 1
		return false, nil

	case op == 0x0F: // RRC
		r, cy := rrc(p.A)
		p.A, p.CY = r, cy == 1
		return false, nil

	case op == 0x17: // RAL
		r, cy := ral(p.A, b2u(p.CY))
		p.A, p.CY = r, cy == 1
		return false, nil

	case op == 0x1F: // RAR
		r, cy := rar(p.A, b2u(p.CY))
		p.A, p.CY = r, cy == 1
		return false, nil

	case op == 0x27: // DAA
		r, ac, cy, z, s, pa := daa(p.A, b2u(p.AC), b2u(p.CY))
		p.A, p.AC, p.CY = r, ac == 1, cy == 1
		p.Z, p.S, p.P = z == 1, s == 1, pa == 1
		return false, nil

	case op == 0x37: // STC
		p.CY = true
		return false, nil

	case op == 0x3F: // CMC
		p.CY = !p.CY
		return false, nil

	case op == 0x2F: // CMA
		p.A = ^p.A
		return false, nil

	case op == 0xF3: // DI
		p.latch.SetEnabled(false)
		return false, nil

	case op == 0xFB: // EI
		p.latch.SetEnabled(true)
		return false, nil

	case op == 0xDB: // IN port
		if p.io == nil {
			return false, NoHandlerError{Reason: "IN executed with no IOHandler installed"}
		}
		port := p.fetch()
		p.A = p.io.ReadPort(port)
		return false, nil

	case op == 0xD3: // OUT port
		if p.io == nil {
			return false, NoHandlerError{Reason: "OUT executed with no IOHandler installed"}
		}
		port := p.fetch()
		p.io.WritePort(port, p.A)
		return false, nil

	case op == 0x00 || op == 0x08 || op == 0x10 || op == 0x18 ||
		op == 0x20 || op == 0x28 || op == 0x30 || op == 0x38: // NOP + undocumented NOP aliases
		return false, nil

	default:
		return false, nil
	}
}

// aluGroup implements the 0x80-0xBF block: ADD/ADC/SUB/SBB/ANA/
// XRA/ORA/CMP against r|M, selected by bits 3-5 and the operand by
// bits 0-2.
func (p *Processor) aluGroup(op uint8) error {
	operand := p.readReg8(op & 0x07)
	p.aluApply((op>>3)&0x07, operand)
	return nil
}

// aluImmGroup implements the 0xC6/CE/D6/DE/E6/EE/F6/FE block: the
// same eight operations against an immediate byte.
func (p *Processor) aluImmGroup(op uint8) error {
	operand := p.fetch()
	p.aluApply((op>>3)&0x07, operand)
	return nil
}

// aluApply performs ALU operation selector (0=ADD 1=ADC 2=SUB 3=SBB
// 4=ANA 5=XRA 6=ORA 7=CMP) against A and operand, updating A (except
// for CMP, which discards the result) and all five flags.
func (p *Processor) aluApply(selector uint8, operand uint8) {
	switch selector {
	case 0: // ADD
		r, cy, ac := addWithCarry(p.A, operand, 0)
		p.A, p.CY, p.AC = r, cy == 1, ac == 1
		p.setZSP(r)
	case 1: // ADC
		r, cy, ac := addWithCarry(p.A, operand, b2u(p.CY))
		p.A, p.CY, p.AC = r, cy == 1, ac == 1
		p.setZSP(r)
	case 2: // SUB
		r, borrow, ac := subWithBorrow(p.A, operand, 0)
		p.A, p.CY, p.AC = r, borrow == 1, ac == 1
		p.setZSP(r)
	case 3: // SBB
		r, borrow, ac := subWithBorrow(p.A, operand, b2u(p.CY))
		p.A, p.CY, p.AC = r, borrow == 1, ac == 1
		p.setZSP(r)
	case 4: // ANA
		r, ac, z, s, pa := logicAnd(p.A, operand)
		p.A, p.AC, p.CY = r, ac == 1, false
		p.Z, p.S, p.P = z == 1, s == 1, pa == 1
	case 5: // XRA
		r, z, s, pa := logicXor(p.A, operand)
		p.A, p.AC, p.CY = r, false, false
		p.Z, p.S, p.P = z == 1, s == 1, pa == 1
	case 6: // ORA
		r, z, s, pa := logicOr(p.A, operand)
		p.A, p.AC, p.CY = r, false, false
		p.Z, p.S, p.P = z == 1, s == 1, pa == 1
	default: // CMP
		r, borrow, ac := subWithBorrow(p.A, operand, 0)
		p.CY, p.AC = borrow == 1, ac == 1
		p.setZSP(r)
	}
}
