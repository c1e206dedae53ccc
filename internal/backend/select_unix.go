//go:build unix
// +build unix

package backend

import (
	"os"
	"sort"

	"github.com/kffl/reactor/internal/rmetrics"
	"golang.org/x/sys/unix"
)

// selectChunkSize bounds how many descriptors are submitted to the kernel
// per select(2) call, working around the historic fd_set size limits.
const selectChunkSize = 256

const fdSetWordBits = 64

type selectBackend struct {
	reads  map[int]struct{}
	writes map[int]struct{}
}

func newSelect() (Backend, error) {
	return &selectBackend{reads: make(map[int]struct{}), writes: make(map[int]struct{})}, nil
}

func (s *selectBackend) Add(fd int, dir Direction) error {
	switch dir {
	case Read:
		s.reads[fd] = struct{}{}
	case Write:
		s.writes[fd] = struct{}{}
	}
	return nil
}

func (s *selectBackend) Remove(fd int, dir Direction) error {
	switch dir {
	case Read:
		delete(s.reads, fd)
	case Write:
		delete(s.writes, fd)
	}
	return nil
}

func (s *selectBackend) Abort() error {
	return nil
}

func (s *selectBackend) CheckEvents(d Dispatcher) error {
	all := s.union()
	for start := 0; start < len(all); start += selectChunkSize {
		end := start + selectChunkSize
		if end > len(all) {
			end = len(all)
		}
		if err := s.checkChunk(all[start:end], d); err != nil {
			return err
		}
	}
	return nil
}

func (s *selectBackend) union() []int {
	seen := make(map[int]struct{}, len(s.reads)+len(s.writes))
	out := make([]int, 0, len(seen))
	for fd := range s.reads {
		seen[fd] = struct{}{}
	}
	for fd := range s.writes {
		seen[fd] = struct{}{}
	}
	for fd := range seen {
		out = append(out, fd)
	}
	sort.Ints(out)
	return out
}

func (s *selectBackend) checkChunk(fds []int, d Dispatcher) error {
	if len(fds) == 0 {
		return nil
	}
	var rset, wset, eset unix.FdSet
	maxFD := 0
	for _, fd := range fds {
		_, isRead := s.reads[fd]
		_, isWrite := s.writes[fd]
		if isRead {
			fdSet(&rset, fd)
			fdSet(&eset, fd)
		}
		if isWrite {
			fdSet(&wset, fd)
			fdSet(&eset, fd)
		}
		if fd > maxFD {
			maxFD = fd
		}
	}
	tv := unix.Timeval{}
	n, err := unix.Select(maxFD+1, &rset, &wset, &eset, &tv)
	rmetrics.Add(rmetrics.SelectWait, 1)
	if err != nil {
		if err == unix.EINTR {
			return nil
		}
		return os.NewSyscallError("select", err)
	}
	if n <= 0 {
		return nil
	}
	for _, fd := range fds {
		// The exceptional set is the union of the read and write sets for
		// this chunk; membership routes to the error callback.
		if fdIsSet(&eset, fd) {
			d.HandleError(fd)
			continue
		}
		if fdIsSet(&wset, fd) {
			d.Dispatch(Write, fd)
		}
		if fdIsSet(&rset, fd) {
			d.Dispatch(Read, fd)
		}
	}
	return nil
}

func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/fdSetWordBits] |= 1 << (uint(fd) % fdSetWordBits)
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/fdSetWordBits]&(1<<(uint(fd)%fdSetWordBits)) != 0
}
