// ABOUTME: Stall watchdog for the real-time callback
// ABOUTME: Terminates the process when the callback counter stops moving

package venue

import "time"

// watchdogTimeout is how long the callback counter may sit still, after
// having advanced at least once, before the real-time path is treated as
// irrecoverably stuck.
const watchdogTimeout = 2 * time.Second

// watchdog samples a monotonically increasing callback counter from the
// timer thread. Once the counter has advanced and then stalls past the
// timeout, terminate runs exactly once. Termination is the only option:
// the sole thread able to unblock the callback is the stuck one.
type watchdog struct {
	timeout    time.Duration
	terminate  func()
	lastCount  uint64
	lastChange time.Time
	advanced   bool
	fired      bool
}

func newWatchdog(now time.Time, terminate func()) *watchdog {
	return &watchdog{
		timeout:    watchdogTimeout,
		terminate:  terminate,
		lastChange: now,
	}
}

// check runs on every timer tick.
func (w *watchdog) check(now time.Time, count uint64) {
	if w.fired {
		return
	}
	if count != w.lastCount {
		w.lastCount = count
		w.lastChange = now
		w.advanced = true
		return
	}
	if w.advanced && now.Sub(w.lastChange) > w.timeout {
		w.fired = true
		w.terminate()
	}
}
