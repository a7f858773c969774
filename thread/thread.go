package thread

import (
	"runtime"
	"syscall"
	"unsafe"
)

// defaultPriority is used by Realtime; somewhere in the lower middle of
// the SCHED_RR range, enough to keep the calibration dispatch loop
// ahead of ordinary goroutines without starving the rest of the system.
const defaultPriority = 10

// Realtime locks the calling goroutine to its own kernel thread and elevates that
// thread's priority to realtime. It sets the round-robin scheduling policy. Call it
// from the goroutine that actually does the time-sensitive work, such as the
// calibration engine's main dispatch loop, since the elevation applies to the
// calling thread, not the whole process.
func Realtime() error {
	return RealtimeAt(defaultPriority)
}

// RealtimeAt is like Realtime but with an explicit SCHED_RR priority.
func RealtimeAt(priority int) error {
	// First pin goroutine to its own kernel thread.
	runtime.LockOSThread()
	// Get the ID of the thread.
	tid := syscall.Gettid()
	// Give this thread realtime priority.
	res, _, err := syscall.RawSyscall(syscall.SYS_SCHED_SETSCHEDULER, uintptr(tid),
		uintptr(RR), uintptr(unsafe.Pointer(&schedParam{priority})))
	if res == 0 {
		return nil
	}
	return err
}

const FIFO = 1 // fifo scheduling policy
const RR = 2   // round-robin scheduling policy

type schedParam struct {
	Priority int
}
