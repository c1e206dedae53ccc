// Package backend provides the kernel-readiness abstraction that the
// reactor's dispatch loop polls each tick: four interchangeable
// implementations (epoll, kqueue, poll, select) behind one small interface.
package backend

import "fmt"

// Direction is the readiness direction a file descriptor is registered for.
type Direction int

// Directions a Backend can be asked to watch.
const (
	Read Direction = iota
	Write
	// Error is never pushed to the kernel: every backend derives error-class
	// readiness (hang-up, exceptional condition, write EOF) from the read
	// and write registrations already in place.
	Error
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case Read:
		return "Read"
	case Write:
		return "Write"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Dispatcher receives readiness callbacks from a Backend during CheckEvents.
type Dispatcher interface {
	// Dispatch is invoked once per ready (direction, fd) pair.
	Dispatch(dir Direction, fd int)
	// HandleError is invoked for any error-class readiness observed for fd:
	// hang-up, exceptional-set membership, write EOF, or an error filter.
	HandleError(fd int)
}

// Backend is the four-operation capability set every kernel-readiness
// mechanism implements.
type Backend interface {
	// Add records (dir, fd) and arms the kernel to report readiness on it.
	Add(fd int, dir Direction) error
	// Remove undoes Add. Kernel errors indicating the descriptor is already
	// closed are tolerated silently.
	Remove(fd int, dir Direction) error
	// CheckEvents polls with a zero (or near-zero) timeout and delivers
	// ready descriptors to d.
	CheckEvents(d Dispatcher) error
	// Abort releases kernel resources held by the backend.
	Abort() error
}

// Kind names a concrete Backend implementation.
type Kind string

// Backend kinds, matching the default priority list order.
const (
	Epoll  Kind = "epoll"
	Kqueue Kind = "kqueue"
	Poll   Kind = "poll"
	Select Kind = "select"
)

// ErrUnavailable is returned by New when the requested backend does not
// exist on the current platform.
var ErrUnavailable = fmt.Errorf("backend unavailable on this platform")

// New constructs the Backend for kind, or ErrUnavailable if kind names a
// kernel mechanism the current platform does not provide.
func New(kind Kind) (Backend, error) {
	switch kind {
	case Epoll:
		return newEpoll()
	case Kqueue:
		return newKqueue()
	case Poll:
		return newPoll()
	case Select:
		return newSelect()
	default:
		return nil, fmt.Errorf("reactor: unknown backend kind %q", kind)
	}
}
