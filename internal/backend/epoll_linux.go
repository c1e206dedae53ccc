//go:build linux
// +build linux

package backend

import (
	"os"

	"github.com/kffl/reactor/internal/rmetrics"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	rflags = unix.EPOLLIN | unix.EPOLLPRI | unix.EPOLLRDHUP | unix.EPOLLHUP | unix.EPOLLERR
	wflags = unix.EPOLLOUT | unix.EPOLLHUP | unix.EPOLLERR
)

type epollBackend struct {
	fd         int
	events     []unix.EpollEvent
	reads      map[int]struct{}
	writes     map[int]struct{}
	registered map[int]struct{}
}

func newEpoll() (Backend, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	return &epollBackend{
		fd:         fd,
		events:     make([]unix.EpollEvent, 64),
		reads:      make(map[int]struct{}),
		writes:     make(map[int]struct{}),
		registered: make(map[int]struct{}),
	}, nil
}

func (e *epollBackend) Add(fd int, dir Direction) error {
	switch dir {
	case Read:
		e.reads[fd] = struct{}{}
	case Write:
		e.writes[fd] = struct{}{}
	case Error:
		// Not pushed to the kernel: EPOLLERR|EPOLLHUP ride along with
		// whatever read/write interest is already registered.
		return nil
	}
	return e.sync(fd)
}

func (e *epollBackend) Remove(fd int, dir Direction) error {
	switch dir {
	case Read:
		delete(e.reads, fd)
	case Write:
		delete(e.writes, fd)
	case Error:
		return nil
	}
	return e.sync(fd)
}

func (e *epollBackend) mask(fd int) uint32 {
	var m uint32
	if _, ok := e.reads[fd]; ok {
		m |= rflags
	}
	if _, ok := e.writes[fd]; ok {
		m |= wflags
	}
	return m
}

func (e *epollBackend) sync(fd int) error {
	mask := e.mask(fd)
	_, known := e.registered[fd]
	if mask == 0 {
		if !known {
			return nil
		}
		delete(e.registered, fd)
		if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_DEL, fd, nil); err != nil && !isClosedErr(err) {
			return errors.Wrap(os.NewSyscallError("epoll_ctl del", err), "remove")
		}
		return nil
	}
	ev := &unix.EpollEvent{Events: mask, Fd: int32(fd)}
	if known {
		if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_MOD, fd, ev); err != nil {
			if isClosedErr(err) {
				return nil
			}
			return errors.Wrap(os.NewSyscallError("epoll_ctl mod", err), "modify")
		}
		return nil
	}
	if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return errors.Wrap(os.NewSyscallError("epoll_ctl add", err), "add")
	}
	e.registered[fd] = struct{}{}
	return nil
}

func (e *epollBackend) CheckEvents(d Dispatcher) error {
	if len(e.reads) == 0 && len(e.writes) == 0 {
		return nil
	}
	n, err := unix.EpollWait(e.fd, e.events, 0)
	rmetrics.Add(rmetrics.EpollWait, 1)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return os.NewSyscallError("epoll_wait", err)
	}
	rmetrics.Add(rmetrics.EpollEvents, uint64(n))
	for i := 0; i < n; i++ {
		ev := e.events[i]
		fd := int(ev.Fd)
		if ev.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP|unix.EPOLLERR) != 0 {
			d.HandleError(fd)
			continue
		}
		if ev.Events&unix.EPOLLOUT != 0 {
			d.Dispatch(Write, fd)
		}
		if ev.Events&(unix.EPOLLIN|unix.EPOLLPRI) != 0 {
			d.Dispatch(Read, fd)
		}
	}
	return nil
}

func (e *epollBackend) Abort() error {
	return os.NewSyscallError("close", unix.Close(e.fd))
}
