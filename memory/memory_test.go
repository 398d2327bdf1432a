package memory

import "testing"

func TestReadWrite(t *testing.T) {
	r := NewRAM()
	r.Write(0x1234, 0xAB)
	if got := r.Read(0x1234); got != 0xAB {
		t.Errorf("Read(0x1234) = %#x, want 0xAB", got)
	}
}

func TestPowerOnZeroes(t *testing.T) {
	r := NewRAM()
	r.Write(0x0000, 0xFF)
	r.Write(0xFFFF, 0xFF)
	r.PowerOn()
	if got := r.Read(0x0000); got != 0 {
		t.Errorf("Read(0x0000) after PowerOn = %#x, want 0", got)
	}
	if got := r.Read(0xFFFF); got != 0 {
		t.Errorf("Read(0xFFFF) after PowerOn = %#x, want 0", got)
	}
}

func TestAddressWraps(t *testing.T) {
	r := NewRAM()
	var addr uint16 = 0xFFFF
	addr++ // wraps to 0
	r.Write(addr, 0x42)
	if got := r.Read(0); got != 0x42 {
		t.Errorf("write at wrapped address 0 = %#x, want 0x42", got)
	}
}
