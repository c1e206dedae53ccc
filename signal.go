package reactor

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/atomic"

	"github.com/kffl/reactor/internal/rmetrics"
)

// syscallSignal converts a bare signal number (e.g. SIGINT == 2) into a
// syscall.Signal, letting callers pass numeric constants the same way
// they'd pass os.Interrupt.
func syscallSignal(sig int) syscall.Signal {
	return syscall.Signal(sig)
}

// SignalListener bridges a POSIX signal into a user callback. Go's runtime
// already owns process-wide signal delivery, so installing a SignalListener
// calls signal.Notify on a private channel, and deleting it calls
// signal.Stop, handing the signal back to whatever default disposition it
// had before — the functional equivalent of restoring a previously
// installed handler.
type SignalListener struct {
	registry *Registry

	sig  syscall.Signal
	cb   SignalCallback
	args []interface{}

	ch      chan os.Signal
	pending atomic.Bool
	active  atomic.Bool
	done    chan struct{}
}

func newSignal(r *Registry, sig syscall.Signal, cb SignalCallback, args []interface{}) *SignalListener {
	l := &SignalListener{registry: r, sig: sig, cb: cb, args: args}
	l.Add()
	return l
}

// Add installs the signal handler and registers the listener with the
// Registry's signal table.
func (l *SignalListener) Add() {
	if l.active.Load() {
		return
	}
	l.ch = make(chan os.Signal, 1)
	l.done = make(chan struct{})
	signal.Notify(l.ch, l.sig)
	l.active.Store(true)
	rmetrics.Add(rmetrics.SignalInstalls, 1)
	go l.pump()
	l.registry.addSignal(l)
}

// pump marks the listener pending whenever the signal arrives; the
// dispatch loop drains the flag and runs the callback on its own thread,
// honoring the rule that only the dispatch loop ever executes callbacks.
func (l *SignalListener) pump() {
	for {
		select {
		case <-l.ch:
			l.pending.Store(true)
		case <-l.done:
			return
		}
	}
}

// Delete stops the signal notification and removes the listener from the
// Registry's signal table.
func (l *SignalListener) Delete() {
	if !l.active.CompareAndSwap(true, false) {
		return
	}
	signal.Stop(l.ch)
	close(l.done)
	l.registry.removeSignal(l)
}

// Pending reports whether the listener is currently installed.
func (l *SignalListener) Pending() bool {
	return l.active.Load()
}

// fire is called by the Registry from the dispatch thread once per tick for
// each listener whose pending flag is set.
func (l *SignalListener) fire() error {
	if !l.pending.CompareAndSwap(true, false) {
		return nil
	}
	if l.cb == nil {
		return nil
	}
	err := l.cb(l.args...)
	l.registry.setErrorCheck()
	return err
}
