package reactor

import "time"

// TimerListener is a one-shot or self-rearming deadline. A TimerListener
// with no expiration set is not armed and must not appear in the Registry's
// active timer list.
type TimerListener struct {
	registry *Registry

	delay         time.Duration
	hasDelay      bool
	expiration    time.Time
	hasExpiration bool

	cb   Callback
	args []interface{}

	// inActiveList lets check_timers dedupe addlist drains in O(1) instead
	// of scanning the active slice.
	inActiveList bool
}

func newTimer(r *Registry, delay time.Duration, hasDelay bool, cb Callback, args []interface{}) *TimerListener {
	t := &TimerListener{registry: r, cb: cb, args: args}
	if hasDelay {
		t.Add(delay)
	}
	return t
}

// Add arms the timer for delay from now and enqueues it on the Registry's
// addlist for reconciliation at the next check_timers pass.
func (t *TimerListener) Add(delay time.Duration) {
	t.delay = delay
	t.hasDelay = true
	t.expiration = t.registry.now().Add(delay)
	t.hasExpiration = true
	t.registry.enqueueTimerAdd(t)
}

// Delete disarms the timer and enqueues it on the Registry's rmlist. When
// dereference is true, the callback and argument bundle are also dropped.
func (t *TimerListener) Delete(dereference ...bool) {
	t.hasExpiration = false
	t.registry.enqueueTimerRemove(t)
	if len(dereference) > 0 && dereference[0] {
		t.cb = nil
		t.args = nil
	}
}

// Pending reports whether the timer currently has an armed expiration.
func (t *TimerListener) Pending() bool {
	return t.hasExpiration
}

// check fires the callback if now is at or past the expiration. A truthy
// callback return rearms the timer for another delay; a falsy return disarms
// the timer, and it (or an already disarmed timer) signals the caller to drop
// it from the active list.
func (t *TimerListener) check(now time.Time) (bool, error) {
	if !t.Pending() {
		return false, nil
	}
	if now.Before(t.expiration) {
		return true, nil
	}
	rearm, err := t.cb(t.args...)
	if err != nil {
		return false, err
	}
	if rearm {
		t.Add(t.delay)
		return true, nil
	}
	t.hasExpiration = false
	return false, nil
}
