//go:build unix

package shmmutex

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// fileMutex is the fallback mutex: an advisory exclusive flock on a
// dedicated file, built by NewFileLock. slab.Pool does not use it: Init
// and Attach always build the atomic mutex. It has no owner/waiter
// accounting, so ForceUnlock simply releases unconditionally — the
// caller (the supervisor) already knows a worker is dead, not which
// worker last held the lock.
type fileMutex struct {
	f *os.File
}

// NewFileLock opens (creating if necessary) the lock file at path.
func NewFileLock(path string) (Locker, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("shmmutex: open lock file %s: %w", path, err)
	}
	return &fileMutex{f: f}, nil
}

func (m *fileMutex) TryLock() bool {
	err := unix.Flock(int(m.f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	return err == nil
}

func (m *fileMutex) Lock() {
	for {
		if err := unix.Flock(int(m.f.Fd()), unix.LOCK_EX); err == nil {
			return
		}
	}
}

func (m *fileMutex) Unlock() {
	unix.Flock(int(m.f.Fd()), unix.LOCK_UN)
}

// ForceUnlock ignores owner: a flock has no notion of a stored owner id,
// only the kernel's record of which open file description holds it. The
// supervisor calls this after confirming (by other means, e.g. /proc) that
// the previous holder's process is gone.
func (m *fileMutex) ForceUnlock(owner uint32) bool {
	m.Unlock()
	return true
}

// Owner always reports held=false: a flock carries no owner id, only
// the kernel's record of which open file description holds it.
func (m *fileMutex) Owner() (uint32, bool) {
	return 0, false
}

func (m *fileMutex) Destroy() error {
	return m.f.Close()
}
