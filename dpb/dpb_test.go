package dpb

import "testing"

// An 8-inch SSSD floppy under CP/M 2.2 (the canonical alteration
// guide example): 26 sectors/track, 128-byte sectors, 1024-byte
// blocks, 243 blocks, 64 directory entries, 2 reserved tracks.
func standard8Inch() Geometry {
	return Geometry{
		FirstSector:        1,
		LastSector:         26,
		SkewFactor:         6,
		BlockSize:          1024,
		DiskBlocks:         243,
		DirEntries:         64,
		ChecksumVectorSize: 16,
		TrackOffset:        2,
	}
}

func TestGenerateStandard8Inch(t *testing.T) {
	d := Generate(standard8Inch())
	if d.SPT != 26 {
		t.Errorf("SPT = %d, want 26", d.SPT)
	}
	if d.BSH != 3 || d.BLM != 7 {
		t.Errorf("BSH/BLM = %d/%d, want 3/7 (1024-byte blocks = 8 sectors)", d.BSH, d.BLM)
	}
	if d.DSM != 242 {
		t.Errorf("DSM = %d, want 242", d.DSM)
	}
	if d.DRM != 63 {
		t.Errorf("DRM = %d, want 63", d.DRM)
	}
	if d.CKS != 4 {
		t.Errorf("CKS = %d, want 4 (16/4)", d.CKS)
	}
	if d.OFF != 2 {
		t.Errorf("OFF = %d, want 2", d.OFF)
	}
}

func TestSectorTranslateTableIsAPermutation(t *testing.T) {
	g := standard8Inch()
	table := SectorTranslateTable(g)
	sectors := g.LastSector - g.FirstSector + 1
	if len(table) != sectors {
		t.Fatalf("len(table) = %d, want %d", len(table), sectors)
	}
	seen := make(map[int]bool, sectors)
	for _, v := range table {
		if v < g.FirstSector || v > g.LastSector {
			t.Errorf("translated sector %d out of range [%d,%d]", v, g.FirstSector, g.LastSector)
		}
		if seen[v] {
			t.Errorf("sector %d mapped more than once: %v", v, table)
		}
		seen[v] = true
	}
}

func TestSectorTranslateTableZeroSkewIsIdentity(t *testing.T) {
	g := standard8Inch()
	g.SkewFactor = 0
	table := SectorTranslateTable(g)
	for i, v := range table {
		if v != i+g.FirstSector {
			t.Errorf("table[%d] = %d, want %d (identity mapping)", i, v, i+g.FirstSector)
		}
	}
}
