//go:build unix
// +build unix

package backend

import (
	"os"

	"github.com/kffl/reactor/internal/rmetrics"
	"golang.org/x/sys/unix"
)

// pollBackend builds a POLLIN/POLLOUT bitmask per fd from its read and write
// tables, recomputing and re-submitting the whole fd set on every CheckEvents
// call. POLLERR and POLLHUP are reported by the kernel without being
// requested.
type pollBackend struct {
	reads  map[int]struct{}
	writes map[int]struct{}
}

func newPoll() (Backend, error) {
	return &pollBackend{reads: make(map[int]struct{}), writes: make(map[int]struct{})}, nil
}

func (p *pollBackend) Add(fd int, dir Direction) error {
	switch dir {
	case Read:
		p.reads[fd] = struct{}{}
	case Write:
		p.writes[fd] = struct{}{}
	}
	return nil
}

func (p *pollBackend) Remove(fd int, dir Direction) error {
	switch dir {
	case Read:
		delete(p.reads, fd)
	case Write:
		delete(p.writes, fd)
	}
	return nil
}

func (p *pollBackend) fdset() []unix.PollFd {
	masks := make(map[int]int16, len(p.reads)+len(p.writes))
	for fd := range p.reads {
		masks[fd] |= unix.POLLIN
	}
	for fd := range p.writes {
		masks[fd] |= unix.POLLOUT
	}
	fds := make([]unix.PollFd, 0, len(masks))
	for fd, events := range masks {
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: events})
	}
	return fds
}

func (p *pollBackend) CheckEvents(d Dispatcher) error {
	fds := p.fdset()
	if len(fds) == 0 {
		return nil
	}
	n, err := unix.Poll(fds, 0)
	rmetrics.Add(rmetrics.PollWait, 1)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return os.NewSyscallError("poll", err)
	}
	if n == 0 {
		return nil
	}
	for _, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		fd := int(pfd.Fd)
		if pfd.Revents&(unix.POLLERR|unix.POLLHUP) != 0 {
			d.HandleError(fd)
			continue
		}
		if pfd.Revents&unix.POLLOUT != 0 {
			d.Dispatch(Write, fd)
		}
		if pfd.Revents&unix.POLLIN != 0 {
			d.Dispatch(Read, fd)
		}
	}
	return nil
}

func (p *pollBackend) Abort() error {
	return nil
}
