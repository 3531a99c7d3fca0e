//go:build unix

// Package shm creates and attaches the named shared-memory regions that
// back a slab.Pool: an mmap'd file under a shared-memory directory (by
// default /dev/shm), named either explicitly or with a generated UUID,
// plus a fingerprint sidecar that lets a later Attach detect a stale or
// foreign mapping before trusting it.
package shm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/shmslab/shmslab/internal/slab"
)

// DefaultDir is used when Create/Attach are given an empty dir.
const DefaultDir = "/dev/shm"

// Handle owns one process's mapping of a named region plus the slab.Pool
// view over it. A Handle is not safe for concurrent Close/Destroy calls,
// but the Pool it wraps is, like any slab.Pool.
type Handle struct {
	Name   string
	Path   string
	region []byte
	pool   *slab.Pool
}

// Region returns the mapped bytes, mainly for tests.
func (h *Handle) Region() []byte { return h.region }

// Pool returns the slab allocator view over this mapping.
func (h *Handle) Pool() *slab.Pool { return h.pool }

func regionPath(dir, name string) string {
	if dir == "" {
		dir = DefaultDir
	}
	return filepath.Join(dir, name)
}

func fingerprintPath(path string) string { return path + ".fingerprint" }

// Create backs a fresh region of size bytes in shared memory, initializes
// it as a slab pool per cfg, and records a fingerprint that Attach will
// later verify. If name is empty, a name is generated with uuid.New().
func Create(dir, name string, size int, cfg slab.Config) (*Handle, error) {
	if name == "" {
		name = "shmslab-" + uuid.New().String()
	}
	path := regionPath(dir, name)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("shm: create %s: %w", path, err)
	}
	defer f.Close()
	if err := f.Truncate(int64(size)); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("shm: truncate %s to %d bytes: %w", path, size, err)
	}

	region, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}

	pool, err := slab.Init(region, cfg)
	if err != nil {
		unix.Munmap(region)
		os.Remove(path)
		return nil, err
	}
	if err := writeFingerprint(path, pool); err != nil {
		unix.Munmap(region)
		os.Remove(path)
		return nil, err
	}
	return &Handle{Name: name, Path: path, region: region, pool: pool}, nil
}

// Attach maps an existing named region, verifies its fingerprint matches
// what Create wrote, and returns a Pool view over it. Every worker
// process calls Attach once, after the supervisor has called Create.
func Attach(dir, name string, log slab.LogHandle) (*Handle, error) {
	path := regionPath(dir, name)

	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", path, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("shm: stat %s: %w", path, err)
	}

	region, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}

	pool, err := slab.Attach(region, log)
	if err != nil {
		unix.Munmap(region)
		return nil, err
	}
	if err := checkFingerprint(path, pool); err != nil {
		unix.Munmap(region)
		return nil, err
	}
	return &Handle{Name: name, Path: path, region: region, pool: pool}, nil
}

// Close unmaps the region. The backing file is left in place — other
// worker processes may still be attached to it.
func (h *Handle) Close() error {
	return unix.Munmap(h.region)
}

// Destroy unmaps the region and removes its backing file and fingerprint
// sidecar. Only the process retiring the pool for good should call this.
func (h *Handle) Destroy() error {
	if err := unix.Munmap(h.region); err != nil {
		return err
	}
	os.Remove(fingerprintPath(h.Path))
	return os.Remove(h.Path)
}
