// Package shmmutex implements the process-shared mutex that serializes all
// mutations of a slab pool. It is the lowest-level building block of the
// allocator: the page-run allocator, the sub-page allocator, and region init
// all assume their caller is holding this lock.
//
// Two implementations exist. The primary one overlays a lock word and a
// waiter counter directly on the shared region (so every mapping of the
// region, at whatever virtual address, sees the same bytes) and uses a
// bounded spin followed by a futex-style sleep. The fallback uses an
// advisory file lock and is used only when the caller explicitly asks for
// it (e.g. on a platform where the atomic path is not trusted).
package shmmutex

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

// wordSize is the size in bytes of the lock word + waiter counter pair that
// the atomic mutex overlays on the shared region.
const wordSize = 8

// Locker is the surface every mutex implementation provides: a
// constructor builds one over a region and offset, Destroy tears it down,
// and TryLock/Lock/Unlock/ForceUnlock are the four verbs every caller
// needs from a process-shared mutex.
type Locker interface {
	TryLock() bool
	Lock()
	Unlock()
	ForceUnlock(owner uint32) bool
	// Owner reports the lock word's current holder and whether it is
	// currently held at all. A supervisor polls this to decide whether
	// a given owner PID is worth checking for liveness.
	Owner() (owner uint32, held bool)
	Destroy() error
}

// Config tunes the primary implementation's spin behavior.
type Config struct {
	// SpinCount is how many CAS attempts are made before sleeping.
	// Zero selects a default tuned for a handful of CPUs.
	SpinCount int
}

// DefaultConfig returns spin tuning scaled to the number of available CPUs.
func DefaultConfig() Config {
	return Config{SpinCount: 1000 * runtime.NumCPU()}
}

// New overlays an atomic mutex on region[offset : offset+8]. The caller owns
// the backing memory (normally a shared mmap, but a plain []byte works for
// tests); region must stay alive and at a stable address for the mutex's
// lifetime — a Go slice that is never reallocated during the mutex's use,
// which rules out appending to it.
func New(region []byte, offset int, cfg Config) (Locker, error) {
	if offset < 0 || offset+wordSize > len(region) {
		return nil, fmt.Errorf("shmmutex: offset %d out of range for region of %d bytes", offset, len(region))
	}
	if cfg.SpinCount <= 0 {
		cfg = DefaultConfig()
	}
	m := &atomicMutex{
		lock:    (*uint32)(wordPointer(region, offset)),
		waiters: (*uint32)(wordPointer(region, offset+4)),
		spin:    cfg.SpinCount,
	}
	return m, nil
}

// selfOwner is this process's identifier for lock-word ownership. PID is
// sufficient: the supervisor reaps dead workers by PID and calls
// ForceUnlock with the same value.
func selfOwner() uint32 {
	return uint32(pid())
}

type atomicMutex struct {
	lock    *uint32
	waiters *uint32
	spin    int
}

func (m *atomicMutex) TryLock() bool {
	owner := selfOwner()
	ok := atomic.CompareAndSwapUint32(m.lock, 0, owner)
	if ok {
		atomic.LoadUint32(m.lock) // acquire barrier: pairs with Unlock's release store
	}
	return ok
}

func (m *atomicMutex) Lock() {
	owner := selfOwner()
	for i := 0; i < m.spin; i++ {
		if atomic.CompareAndSwapUint32(m.lock, 0, owner) {
			return
		}
		runtime.Gosched()
	}
	for {
		atomic.AddUint32(m.waiters, 1)
		cur := atomic.LoadUint32(m.lock)
		if cur != 0 {
			wait(m.lock, cur)
		}
		atomic.AddUint32(m.waiters, ^uint32(0)) // decrement
		if atomic.CompareAndSwapUint32(m.lock, 0, owner) {
			return
		}
	}
}

func (m *atomicMutex) Unlock() {
	atomic.StoreUint32(m.lock, 0) // release barrier
	if atomic.LoadUint32(m.waiters) > 0 {
		wake(m.lock, 1)
	}
}

// ForceUnlock is the supervisor's reap path: clear the word only if owner
// still holds it, then wake a waiter. It is the one legitimate mutation of
// the lock word by a party that never called Lock.
func (m *atomicMutex) ForceUnlock(owner uint32) bool {
	if !atomic.CompareAndSwapUint32(m.lock, owner, 0) {
		return false
	}
	if atomic.LoadUint32(m.waiters) > 0 {
		wake(m.lock, 1)
	}
	return true
}

func (m *atomicMutex) Owner() (uint32, bool) {
	v := atomic.LoadUint32(m.lock)
	return v, v != 0
}

func (m *atomicMutex) Destroy() error { return nil }
