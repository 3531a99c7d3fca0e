//go:build unix

package main

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sys/unix"

	"github.com/shmslab/shmslab/internal/poolstats"
	"github.com/shmslab/shmslab/internal/shm"
)

// startCron wires the periodic stats log and dead-owner reaper onto the
// given handle, running on the given cadence. It returns the cron
// instance so main can Stop it on shutdown.
func startCron(h *shm.Handle, interval time.Duration, logger *log.Logger) *cron.Cron {
	c := cron.New()
	spec := "@every " + interval.String()
	_, err := c.AddFunc(spec, func() {
		st := h.Pool().Stats()
		logger.Print(poolstats.Format(h.Pool().PageSize(), st))
		reapDeadOwner(h, logger)
	})
	if err != nil {
		logger.Fatalf("pooladmin: bad cron spec %q: %v", spec, err)
	}
	c.Start()
	return c
}

// reapDeadOwner force-clears the pool mutex if its current holder is a
// PID that no longer exists. A held lock whose owner died mid-critical-
// section would otherwise wedge every other worker forever, since this
// allocator's mutex has no per-process recovery of its own.
func reapDeadOwner(h *shm.Handle, logger *log.Logger) {
	owner, held := h.Pool().LockOwner()
	if !held {
		return
	}
	if processAlive(owner) {
		return
	}
	if h.Pool().ForceUnlock(owner) {
		logger.Printf("reaped lock held by dead owner pid %d", owner)
	}
}

// processAlive reports whether pid names a live process, using the
// standard kill(pid, 0) liveness probe: no signal is actually delivered,
// only the kernel's permission and existence checks run.
func processAlive(pid uint32) bool {
	err := unix.Kill(int(pid), 0)
	if err == nil {
		return true
	}
	return err != unix.ESRCH
}
