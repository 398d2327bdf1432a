package cpu

import "math/bits"

// The flag/arithmetic kernel: pure functions with no access to
// *Processor and no I/O, so they can be tested directly without
// standing up a whole machine. Flags are represented as 0/1 bytes
// rather than bool here to match the bit-oriented arithmetic they
// describe (carry out of a nibble addition, etc); Processor itself
// stores them as bool.

// auxCarry returns the carry out of bit 3 of a + b + cyIn.
func auxCarry(a, b, cyIn byte) byte {
	return byte((((a & 0x0f) + (b & 0x0f) + cyIn) >> 4) & 1)
}

// addWithCarry computes a + b + cyIn in 9-bit precision.
// Returns the low 8 bits, the carry out of bit 8, and the auxiliary
// carry out of bit 3.
func addWithCarry(a, b, cyIn byte) (result, cyOut, acOut byte) {
	sum := uint16(a) + uint16(b) + uint16(cyIn)
	return byte(sum), byte((sum >> 8) & 1), auxCarry(a, b, cyIn)
}

// subWithBorrow computes a - b - cyIn using the documented 8080
// convention: sub(a,b,cy_in) = add(a, ~b, 1-cy_in), with the output
// carry (a "borrow occurred" flag) being the logical inversion of the
// 9-bit carry out of that addition.
func subWithBorrow(a, b, cyIn byte) (result, borrowOut, acOut byte) {
	result, cyOut, acOut := addWithCarry(a, ^b, 1-cyIn)
	return result, 1 - cyOut, acOut
}

// parity8 returns 1 if x has an even number of set bits, else 0.
func parity8(x byte) byte {
	if bits.OnesCount8(x)%2 == 0 {
		return 1
	}
	return 0
}

// zsp derives the zero, sign and parity flags from a result byte.
func zsp(x byte) (z, s, p byte) {
	if x == 0 {
		z = 1
	}
	s = (x >> 7) & 1
	p = parity8(x)
	return z, s, p
}

// daa decimal-adjusts a per the 8080's DAA instruction.
func daa(a, acIn, cyIn byte) (result, acOut, cyOut, z, s, p byte) {
	cyOut = cyIn
	if lowNibble := a & 0x0f; lowNibble > 9 || acIn == 1 {
		acOut = auxCarry(a, 0x06, 0)
		a = byte(uint16(a) + 0x06)
	}
	if highNibble := (a >> 4) & 0x0f; highNibble > 9 || cyIn == 1 {
		a = byte(uint16(a) + 0x60)
		cyOut = 1
	}
	z, s, p = zsp(a)
	return a, acOut, cyOut, z, s, p
}

// rlc rotates a left; the bit rotated out becomes both the new bit 0
// and the new carry.
func rlc(a byte) (result, cyOut byte) {
	cyOut = (a >> 7) & 1
	return (a << 1) | cyOut, cyOut
}

// rrc rotates a right; the bit rotated out becomes both the new bit 7
// and the new carry.
func rrc(a byte) (result, cyOut byte) {
	cyOut = a & 1
	return (a >> 1) | (cyOut << 7), cyOut
}

// ral rotates a left through the carry flag.
func ral(a, cyIn byte) (result, cyOut byte) {
	cyOut = (a >> 7) & 1
	return (a << 1) | cyIn, cyOut
}

// rar rotates a right through the carry flag.
func rar(a, cyIn byte) (result, cyOut byte) {
	cyOut = a & 1
	return (a >> 1) | (cyIn << 7), cyOut
}

// logicAnd implements ANA's flag semantics: ac is the OR of bit 3 of
// each operand (an 8080 quirk carried over from the real silicon's
// internal half-carry wiring), cy is always cleared.
func logicAnd(a, b byte) (result, acOut, z, s, p byte) {
	result = a & b
	acOut = ((a >> 3) | (b >> 3)) & 1
	z, s, p = zsp(result)
	return
}

// logicOr implements ORA's flag semantics: ac and cy are both cleared.
func logicOr(a, b byte) (result, z, s, p byte) {
	result = a | b
	z, s, p = zsp(result)
	return
}

// logicXor implements XRA's flag semantics: ac and cy are both cleared.
func logicXor(a, b byte) (result, z, s, p byte) {
	result = a ^ b
	z, s, p = zsp(result)
	return
}
