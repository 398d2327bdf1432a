// dpbgen prints a CP/M disk parameter block and sector translate
// table for a given physical disk geometry. It is a standalone
// preparatory tool: nothing it produces is consumed by i8080run.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jmchacon/i8080/dpb"
)

var (
	firstSector = flag.Int("first_sector", 0, "first physical sector number per track")
	lastSector  = flag.Int("last_sector", 25, "last physical sector number per track")
	skew        = flag.Int("skew", 6, "sector skew factor")
	blockSize   = flag.Int("block_size", 1024, "allocation block size in bytes")
	diskBlocks  = flag.Int("disk_blocks", 243, "total allocation blocks on the disk")
	dirEntries  = flag.Int("dir_entries", 64, "directory entries")
	checksum    = flag.Int("checksum_size", 16, "directory checksum vector size in bytes")
	trackOffset = flag.Int("track_offset", 2, "reserved (system) tracks")
)

func main() {
	flag.Parse()
	if *firstSector > *lastSector {
		log.Fatalf("--first_sector must be <= --last_sector")
	}

	g := dpb.Geometry{
		FirstSector:        *firstSector,
		LastSector:         *lastSector,
		SkewFactor:         *skew,
		BlockSize:          *blockSize,
		DiskBlocks:         *diskBlocks,
		DirEntries:         *dirEntries,
		ChecksumVectorSize: *checksum,
		TrackOffset:        *trackOffset,
	}

	d := dpb.Generate(g)
	fmt.Fprintf(os.Stdout, "SPT=%d BSH=%d BLM=%d EXM=%d DSM=%d DRM=%d AL0=%.2X AL1=%.2X CKS=%d OFF=%d\n",
		d.SPT, d.BSH, d.BLM, d.EXM, d.DSM, d.DRM, d.AL0, d.AL1, d.CKS, d.OFF)

	table := dpb.SectorTranslateTable(g)
	fmt.Fprintf(os.Stdout, "translate table: %v\n", table)
}
