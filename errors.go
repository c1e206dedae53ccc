package reactor

import "github.com/pkg/errors"

// ErrAbortBranch is the cancellation sentinel a callback returns to unwind
// itself without stopping the dispatch loop. The callback wrapper recognizes
// it with errors.Is and swallows it; any other error propagates out of
// Dispatch.
var ErrAbortBranch = errors.New("reactor: abort branch")

// ErrNoBackend is returned by Initialize when none of the requested (or
// default) backends could be constructed on the current platform.
var ErrNoBackend = errors.New("reactor: could not initialize any backend")

// IsAbortBranch reports whether err is (or wraps) ErrAbortBranch.
func IsAbortBranch(err error) bool {
	return errors.Is(err, ErrAbortBranch)
}
