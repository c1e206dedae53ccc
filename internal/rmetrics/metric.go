// Package rmetrics provides internal runtime monitoring counters for the
// reactor, surfaced through Registry.Report() in addition to the
// timer/signal/read/write counts the facade snapshots directly.
package rmetrics

import (
	"fmt"
	"time"

	"go.uber.org/atomic"
)

// All metric definitions.
const (
	// EpollWait counts epoll_wait syscalls issued by the epoll backend.
	EpollWait = iota
	// EpollEvents counts total events returned by epoll_wait.
	EpollEvents
	// KqueueWait counts kevent syscalls issued by the kqueue backend.
	KqueueWait
	// KqueueEvents counts total events returned by kevent.
	KqueueEvents
	// PollWait counts poll syscalls issued by the poll backend.
	PollWait
	// SelectWait counts select syscalls issued by the select backend.
	SelectWait
	// TimerAdds counts timers moved from the addlist into the active list.
	TimerAdds
	// TimerRearms counts timers re-armed after a truthy callback return.
	TimerRearms
	// TimerRemoves counts timers moved from the rmlist out of the active list.
	TimerRemoves
	// SignalInstalls counts signal handlers installed via Signal listeners.
	SignalInstalls
	// BuffWriterChunksSent counts chunks successfully handed to the kernel
	// by the buffered writer.
	BuffWriterChunksSent
	// BuffWriterErrors counts buffered writer send failures.
	BuffWriterErrors
	// Max is the number of defined metrics, used to size the counter array.
	Max
)

var counters [Max]atomic.Uint64

// Add adds delta to the named counter.
func Add(name int, delta uint64) {
	if name < 0 || name >= Max {
		return
	}
	counters[name].Add(delta)
}

// Get reads the named counter.
func Get(name int) uint64 {
	if name < 0 || name >= Max {
		return 0
	}
	return counters[name].Load()
}

// GetAll returns a snapshot of every counter.
func GetAll() [Max]uint64 {
	var m [Max]uint64
	for i := range counters {
		m[i] = counters[i].Load()
	}
	return m
}

// ShowMetrics prints a snapshot of every counter to stdout.
func ShowMetrics() {
	m := GetAll()
	showAll(m)
}

func showAll(m [Max]uint64) {
	fmt.Println("########## reactor metrics (", time.Now().Format("2006-01-02 15:04:05"), ") ##########")
	fmt.Printf("%-45s: %d\n", "# epoll_wait calls", m[EpollWait])
	fmt.Printf("%-45s: %d\n", "# epoll events delivered", m[EpollEvents])
	fmt.Printf("%-45s: %d\n", "# kevent calls", m[KqueueWait])
	fmt.Printf("%-45s: %d\n", "# kqueue events delivered", m[KqueueEvents])
	fmt.Printf("%-45s: %d\n", "# poll calls", m[PollWait])
	fmt.Printf("%-45s: %d\n", "# select calls", m[SelectWait])
	fmt.Printf("%-45s: %d\n", "# timers added", m[TimerAdds])
	fmt.Printf("%-45s: %d\n", "# timers rearmed", m[TimerRearms])
	fmt.Printf("%-45s: %d\n", "# timers removed", m[TimerRemoves])
	fmt.Printf("%-45s: %d\n", "# signal handlers installed", m[SignalInstalls])
	fmt.Printf("%-45s: %d\n", "# buffered writer chunks sent", m[BuffWriterChunksSent])
	fmt.Printf("%-45s: %d\n", "# buffered writer errors", m[BuffWriterErrors])
}
