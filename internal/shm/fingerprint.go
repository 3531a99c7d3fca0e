//go:build unix

package shm

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/crypto/blake2b"

	"github.com/shmslab/shmslab/internal/slab"
)

// computeFingerprint hashes the region's immutable shape parameters, not
// its live contents — two regions initialized with the same Config and
// region size fingerprint identically regardless of what has since been
// allocated.
func computeFingerprint(p *slab.Pool) [blake2b.Size256]byte {
	minShift, exactShift, pages := p.StaticFingerprint()

	var buf [20]byte
	binary.LittleEndian.PutUint32(buf[0:], uint32(minShift))
	binary.LittleEndian.PutUint32(buf[4:], uint32(exactShift))
	binary.LittleEndian.PutUint32(buf[8:], uint32(pages))
	binary.LittleEndian.PutUint32(buf[12:], uint32(p.PageSize()))
	binary.LittleEndian.PutUint32(buf[16:], uint32(p.MinSize()))
	return blake2b.Sum256(buf[:])
}

func writeFingerprint(regionPath string, p *slab.Pool) error {
	sum := computeFingerprint(p)
	if err := os.WriteFile(fingerprintPath(regionPath), sum[:], 0600); err != nil {
		return fmt.Errorf("shm: writing fingerprint for %s: %w", regionPath, err)
	}
	return nil
}

func checkFingerprint(regionPath string, p *slab.Pool) error {
	want := computeFingerprint(p)
	got, err := os.ReadFile(fingerprintPath(regionPath))
	if err != nil {
		return fmt.Errorf("shm: reading fingerprint for %s: %w", regionPath, err)
	}
	if len(got) != len(want) || string(got) != string(want[:]) {
		return fmt.Errorf("shm: fingerprint mismatch for %s: region does not match what Create wrote", regionPath)
	}
	return nil
}
