//go:build linux

package platform

import (
	"log"
	"runtime"

	"golang.org/x/sys/unix"
)

func pinPumpThread() {
	runtime.LockOSThread()

	// PRIO_PROCESS + the thread's own tid (not pid 0) is required to
	// target this specific OS thread rather than the whole process.
	tid := unix.Gettid()
	if err := unix.Setpriority(unix.PRIO_PROCESS, tid, -5); err != nil {
		log.Printf("[platform] setpriority: %v (continuing at default priority)", err)
	}
}
