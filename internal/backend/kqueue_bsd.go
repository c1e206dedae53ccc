//go:build darwin || dragonfly || freebsd || netbsd || openbsd
// +build darwin dragonfly freebsd netbsd openbsd

package backend

import (
	"os"

	"github.com/kffl/reactor/internal/rmetrics"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type kqueueBackend struct {
	fd     int
	events []unix.Kevent_t
	reads  map[int]struct{}
	writes map[int]struct{}
}

func newKqueue() (Backend, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, os.NewSyscallError("kqueue", err)
	}
	return &kqueueBackend{
		fd:     fd,
		events: make([]unix.Kevent_t, 64),
		reads:  make(map[int]struct{}),
		writes: make(map[int]struct{}),
	}, nil
}

func (k *kqueueBackend) Add(fd int, dir Direction) error {
	switch dir {
	case Read:
		k.reads[fd] = struct{}{}
		return k.ctl(fd, unix.EVFILT_READ, unix.EV_ADD|unix.EV_ENABLE)
	case Write:
		k.writes[fd] = struct{}{}
		return k.ctl(fd, unix.EVFILT_WRITE, unix.EV_ADD|unix.EV_ENABLE)
	default:
		// Error readiness is never registered with the kernel directly; it
		// is derived from EOF/error flags on the read and write filters.
		return nil
	}
}

func (k *kqueueBackend) Remove(fd int, dir Direction) error {
	switch dir {
	case Read:
		delete(k.reads, fd)
		return k.ctl(fd, unix.EVFILT_READ, unix.EV_DELETE)
	case Write:
		delete(k.writes, fd)
		return k.ctl(fd, unix.EVFILT_WRITE, unix.EV_DELETE)
	default:
		return nil
	}
}

func (k *kqueueBackend) ctl(fd int, filter int16, flags uint16) error {
	kev := unix.Kevent_t{Ident: uint64(fd), Filter: filter, Flags: flags}
	_, err := unix.Kevent(k.fd, []unix.Kevent_t{kev}, nil, nil)
	if err != nil {
		if isClosedErr(err) {
			return nil
		}
		return errors.Wrap(os.NewSyscallError("kevent", err), "control")
	}
	return nil
}

func (k *kqueueBackend) CheckEvents(d Dispatcher) error {
	if len(k.reads) == 0 && len(k.writes) == 0 {
		return nil
	}
	ts := unix.NsecToTimespec(0)
	n, err := unix.Kevent(k.fd, nil, k.events, &ts)
	rmetrics.Add(rmetrics.KqueueWait, 1)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return os.NewSyscallError("kevent", err)
	}
	rmetrics.Add(rmetrics.KqueueEvents, uint64(n))
	for i := 0; i < n; i++ {
		ev := k.events[i]
		fd := int(ev.Ident)
		errFlag := ev.Flags&unix.EV_ERROR != 0
		eof := ev.Flags&unix.EV_EOF != 0
		switch ev.Filter {
		case unix.EVFILT_READ:
			if eof {
				d.HandleError(fd)
				continue
			}
			d.Dispatch(Read, fd)
		case unix.EVFILT_WRITE:
			// A write-EOF routes to the error listener instead of the
			// write callback: the peer is gone, not merely writable.
			if eof {
				d.HandleError(fd)
				continue
			}
			d.Dispatch(Write, fd)
		}
		if errFlag {
			d.HandleError(fd)
		}
	}
	return nil
}

func (k *kqueueBackend) Abort() error {
	return os.NewSyscallError("close", unix.Close(k.fd))
}
