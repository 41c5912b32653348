// Package platform carries the OS-specific scheduling hints for the
// dispatch pump thread (spec §5): best-effort priority boosting so an
// ingest-and-dispatch cycle isn't starved by the rest of the process.
// Nothing here is load-bearing — PinPumpThread is always safe to skip.
package platform

// PinPumpThread locks the calling goroutine to its OS thread and applies
// a best-effort scheduling priority hint to it. The caller must invoke
// this from the goroutine it wants pinned (mirrors runtime.LockOSThread's
// own per-goroutine contract).
func PinPumpThread() {
	pinPumpThread()
}
