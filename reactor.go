// Package reactor is a cross-platform I/O, timer and signal event loop: one
// registry of listeners drained by a single dispatch thread, backed by
// whichever of epoll, kqueue, poll or select the host platform provides.
package reactor

import (
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"

	"github.com/kffl/reactor/internal/backend"
	"github.com/kffl/reactor/internal/netutil"
	"github.com/kffl/reactor/log"
)

// osExit is overridden in tests so Stop's "not running" branch doesn't
// actually terminate the test binary.
var osExit = os.Exit

type backendKind = backend.Kind

// defaultPriority is the order Initialize tries backend kinds in when the
// caller doesn't supply its own list.
var defaultPriority = []backendKind{backend.Epoll, backend.Kqueue, backend.Poll, backend.Select}

var (
	facadeMu   sync.Mutex
	active     *Registry
	activeKind backendKind
)

// unboundedPoolSize follows ants's "0 means INT32_MAX" pool-size
// convention: Thread() should never block a caller waiting for a slot.
const unboundedPoolSize = 0

var threadPool, _ = ants.NewPool(unboundedPoolSize)

// Initialize (re)configures the package-level reactor. Calling it while a
// reactor is already running tears the old one down first, releasing its
// backend and clearing its listener tables. Most programs never need to
// call Initialize explicitly: the first package-level operation that needs
// a backend calls it with defaults.
func Initialize(opts ...Option) error {
	facadeMu.Lock()
	defer facadeMu.Unlock()
	return initializeLocked(opts...)
}

func initializeLocked(opts ...Option) error {
	o := options{}
	o.setDefault()
	for _, opt := range opts {
		opt.f(&o)
	}
	log.SetVerbose(o.verbose)
	if o.threaded {
		log.Infof("reactor: threaded option requested but disabled; Go's runtime has no GIL to work around")
	}

	b, kind, err := selectBackend(o)
	if err != nil {
		return err
	}

	r := NewRegistry(b)
	r.SetSleep(o.sleep)
	r.SetTurbo(o.turbo)

	if active != nil {
		active.Init()
		active.Abort()
	}
	active = r
	activeKind = kind
	if o.report {
		go reportLoop(r)
	}
	log.Infof("reactor: initialized with %s backend", kind)
	return nil
}

// selectBackend tries o.methods in order, followed by the default priority
// list, skipping duplicates, and returns the first one the platform can
// construct. In strict mode only o.methods are tried, with no fallback to
// the default list.
func selectBackend(o options) (backend.Backend, backendKind, error) {
	if o.strict {
		if len(o.methods) == 0 {
			return nil, "", ErrNoBackend
		}
		for _, kind := range o.methods {
			if b, err := backend.New(kind); err == nil {
				return b, kind, nil
			}
		}
		return nil, "", errors.Wrapf(ErrNoBackend, "strict: none of %v available", o.methods)
	}
	seen := make(map[backendKind]bool, len(o.methods)+len(defaultPriority))
	for _, kind := range append(append([]backendKind(nil), o.methods...), defaultPriority...) {
		if seen[kind] {
			continue
		}
		seen[kind] = true
		b, err := backend.New(kind)
		if err == nil {
			return b, kind, nil
		}
	}
	return nil, "", ErrNoBackend
}

func reportLoop(r *Registry) {
	for {
		time.Sleep(5 * time.Second)
		facadeMu.Lock()
		stillActive := active == r
		facadeMu.Unlock()
		if !stillActive {
			return
		}
		rep := r.Report()
		log.Infof("reactor report: reads=%d writes=%d errors=%d timers=%d signals=%d",
			rep.Reads, rep.Writes, rep.Errors, rep.Timers, rep.Signals)
	}
}

// ensure returns the active Registry, lazily initializing it with defaults
// on first use.
func ensure() *Registry {
	facadeMu.Lock()
	if active == nil {
		if err := initializeLocked(); err != nil {
			facadeMu.Unlock()
			panic(err)
		}
	}
	r := active
	facadeMu.Unlock()
	return r
}

// SupportedMethods probes every backend kind against the current platform
// and returns the ones that construct successfully, in priority order.
func SupportedMethods() []string {
	out := make([]string, 0, len(defaultPriority))
	for _, kind := range defaultPriority {
		b, err := backend.New(kind)
		if err != nil {
			continue
		}
		_ = b.Abort()
		out = append(out, string(kind))
	}
	return out
}

// ActiveMethod reports which backend kind the active reactor is using,
// initializing with defaults first if necessary.
func ActiveMethod() string {
	ensure()
	facadeMu.Lock()
	defer facadeMu.Unlock()
	return string(activeKind)
}

// Read arms a callback for read-readiness on fd.
func Read(fd int, cb Callback, args ...interface{}) *IoListener {
	return ensure().Read(fd, cb, args...)
}

// Write arms a callback for write-readiness on fd.
func Write(fd int, cb Callback, args ...interface{}) *IoListener {
	return ensure().Write(fd, cb, args...)
}

// Error arms a callback for error-class readiness on fd.
func Error(fd int, cb Callback, args ...interface{}) *IoListener {
	return ensure().Error(fd, cb, args...)
}

// Timeout arms a callback to run delay from now.
func Timeout(delay time.Duration, cb Callback, args ...interface{}) *TimerListener {
	return ensure().Timeout(delay, cb, args...)
}

// Signal arms a callback to run when sig is delivered to the process.
func Signal(sig syscall.Signal, cb SignalCallback, args ...interface{}) *SignalListener {
	return ensure().Signal(sig, cb, args...)
}

// Event composes a signal, read, write and/or timeout trigger behind one
// user handle and callback.
func Event(cb EventCallback, arg interface{}, evtype int, handle interface{}) *CompoundListener {
	return ensure().Event(cb, arg, evtype, handle)
}

// Dispatch runs the active reactor's loop until nothing is armed, Abort is
// called, or a callback returns a non-abort error.
func Dispatch() error {
	return ensure().Dispatch()
}

// Loop runs a single tick of the active reactor's loop.
func Loop() (bool, error) {
	return ensure().Loop()
}

// Start installs a SIGINT handler that calls Abort, then runs Dispatch on
// a background goroutine and returns immediately.
func Start() {
	r := ensure()
	r.Signal(syscall.SIGINT, func(args ...interface{}) error {
		r.Abort()
		return nil
	})
	go func() {
		if err := r.Dispatch(); err != nil {
			log.Errorf("reactor: background dispatch stopped: %v", err)
		}
	}()
}

// Stop aborts the active reactor if it's running; otherwise it terminates
// the process, read more naturally alongside Start.
func Stop() {
	r := ensure()
	if r.IsRunning() {
		r.Abort()
		return
	}
	osExit(0)
}

// Abort stops the active reactor's Dispatch loop after the current tick.
func Abort() {
	ensure().Abort()
}

// AbortBranch unwinds the callback currently executing on the dispatch
// goroutine without stopping the loop.
func AbortBranch() {
	ensure().AbortBranch()
}

// Thread submits fn to a background worker pool. A fn that calls
// AbortBranch unwinds quietly; any other panic is re-raised inside the
// worker, where the ants pool recovers and logs it.
func Thread(fn func()) error {
	return threadPool.Submit(func() {
		defer func() {
			if rec := recover(); rec != nil {
				if e, ok := rec.(error); ok && IsAbortBranch(e) {
					return
				}
				panic(rec)
			}
		}()
		fn()
	})
}

// Tick returns the timestamp recorded at the start of the active reactor's
// most recently completed loop iteration.
func Tick() time.Time {
	return ensure().Tick()
}

// ReportSnapshot returns a point-in-time snapshot of the active reactor's
// listener counts and runtime metrics.
func ReportSnapshot() Report {
	return ensure().Report()
}

// IsRunning reports whether the active reactor's Dispatch loop is running.
func IsRunning() bool {
	return ensure().IsRunning()
}

// Init resets the active reactor to an empty state, deleting every
// listener and releasing every installed signal handler.
func Init() {
	ensure().Init()
}

// SetVerbose raises or lowers the package logger's level.
func SetVerbose(verbose bool) {
	log.SetVerbose(verbose)
}

// SetSleep overrides the active reactor's base poll interval.
func SetSleep(d time.Duration) {
	ensure().SetSleep(d)
}

// SetTurbo overrides the active reactor's write-pressure poll interval.
func SetTurbo(d time.Duration) {
	ensure().SetTurbo(d)
}

// SafeRead controls whether Read listeners drop their variadic argument
// bundle instead of retaining it across reconnects.
func SafeRead(safe bool) {
	ensure().SetSafeRead(safe)
}

// FDOf extracts the raw Unix file descriptor backing a *net.TCPConn,
// *net.UDPConn or *net.TCPListener, for callers that want to watch a
// standard-library socket with Read/Write/Error directly.
func FDOf(socket interface{}) (int, error) {
	return netutil.GetFD(socket)
}

// DupFD duplicates the file descriptor backing socket, which is useful for
// handing a descriptor to the reactor while letting the standard library
// keep owning and eventually closing its own copy.
func DupFD(socket interface{}) (int, error) {
	return netutil.DupFD(socket)
}

// BufferedWrite queues data for fd on the active reactor, reusing the
// BufferedWriter the active reactor already has for that descriptor, if any.
func BufferedWrite(fd int, data []byte, sender Sender, onerror func(msg string)) *BufferedWriter {
	return BuffWrite(ensure(), fd, data, sender, onerror)
}
