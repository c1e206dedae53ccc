package reactor

import "time"

// Option configures Initialize.
type Option struct {
	f func(*options)
}

type options struct {
	strict   bool
	verbose  bool
	report   bool
	threaded bool
	methods  []backendKind
	sleep    time.Duration
	turbo    time.Duration
}

func (o *options) setDefault() {
	o.sleep = defaultSleep
	o.methods = defaultPriority
}

// WithStrict restricts Initialize to the requested backend methods: they are
// tried in the order given and the first one the platform provides is used.
// Initialize fails if none of them is available, instead of falling back to
// the default priority list.
func WithStrict() Option {
	return Option{func(o *options) { o.strict = true }}
}

// WithVerbose raises the package logger to debug level for the lifetime of
// the reactor.
func WithVerbose() Option {
	return Option{func(o *options) { o.verbose = true }}
}

// WithReport makes Initialize start a background loop that logs the
// reactor's listener counts every 5 seconds; callers still snapshot state
// explicitly through Report.
func WithReport() Option {
	return Option{func(o *options) { o.report = true }}
}

// WithSleep overrides the default base poll interval.
func WithSleep(d time.Duration) Option {
	return Option{func(o *options) { o.sleep = d }}
}

// WithTurbo overrides the poll interval used while write-direction
// listeners are armed.
func WithTurbo(d time.Duration) Option {
	return Option{func(o *options) { o.turbo = d }}
}

// WithThreaded mirrors rel.py's 'threaded' option, which enabled a GIL
// contention workaround needed only by its pyevent backend. Go's runtime
// has no GIL to work around, so this is a no-op kept for API parity;
// Initialize logs that it was requested and disabled.
func WithThreaded() Option {
	return Option{func(o *options) { o.threaded = true }}
}

// WithMethods overrides the backend priority list Initialize tries, in
// order. Combine with WithStrict to try only these methods.
func WithMethods(methods ...string) Option {
	kinds := make([]backendKind, 0, len(methods))
	for _, m := range methods {
		kinds = append(kinds, backendKind(m))
	}
	return Option{func(o *options) { o.methods = kinds }}
}
