package reactor

import (
	"fmt"

	"github.com/kffl/reactor/internal/cache/mcache"
	"github.com/kffl/reactor/internal/locker"
	"github.com/kffl/reactor/internal/rmetrics"
	"github.com/kffl/reactor/log"
)

// buffWriterChunkSize bounds how many bytes a single write callback hands
// to Sender at a time.
const buffWriterChunkSize = 4096

// Sender hands one chunk to fd and reports how many leading bytes the
// kernel actually accepted. A short write (n < len(chunk)) is not an
// error: the writer keeps the unaccepted tail queued and retries it on the
// next write-readiness tick.
type Sender func(fd int, chunk []byte) (int, error)

// BufferedWriter queues data for fd and drains it a chunk at a time as the
// descriptor reports write-readiness, so a caller is never blocked behind
// a slow or throttled peer.
type BufferedWriter struct {
	registry *Registry
	fd       int
	sender   Sender
	onerror  func(msg string)

	chunks [][]byte
	errors []string

	writeListener *IoListener
	errListener   *IoListener
}

var (
	writersGuard = locker.New()
	writers      = make(map[int]*BufferedWriter)
)

// BuffWrite queues data for fd, reusing the BufferedWriter already recorded
// for that descriptor on r, or creating one otherwise (replacing any writer
// recorded for fd on a different Registry). sender performs the actual
// write; onerror, if non-nil, is called once with the first error message
// observed.
func BuffWrite(r *Registry, fd int, data []byte, sender Sender, onerror func(msg string)) *BufferedWriter {
	writersGuard.Lock()
	w, ok := writers[fd]
	writersGuard.Unlock()
	if ok && w.registry == r {
		w.ingest(data)
		return w
	}
	w = newBufferedWriter(r, fd, sender, onerror)
	writersGuard.Lock()
	writers[fd] = w
	writersGuard.Unlock()
	w.ingest(data)
	return w
}

func newBufferedWriter(r *Registry, fd int, sender Sender, onerror func(msg string)) *BufferedWriter {
	w := &BufferedWriter{registry: r, fd: fd, sender: sender, onerror: onerror}
	w.errListener = r.Error(fd, w.onError).MarkPersistent()
	w.writeListener = r.Write(fd, w.onWrite)
	return w
}

// ingest splits data into buffWriterChunkSize pieces, using mcache so repeated
// sends to the same descriptor reuse buffers instead of allocating fresh
// ones every call.
func (w *BufferedWriter) ingest(data []byte) {
	for len(data) > 0 {
		n := len(data)
		if n > buffWriterChunkSize {
			n = buffWriterChunkSize
		}
		chunk := mcache.Malloc(n)
		copy(chunk, data[:n])
		w.chunks = append(w.chunks, chunk)
		data = data[n:]
	}
	if !w.errListener.Pending() {
		_ = w.errListener.Add()
	}
	if !w.writeListener.Pending() {
		_ = w.writeListener.Add()
	}
}

func (w *BufferedWriter) onWrite(args ...interface{}) (bool, error) {
	if len(w.chunks) == 0 {
		return false, nil
	}
	chunk := w.chunks[0]
	n, err := w.sender(w.fd, chunk)
	if err != nil {
		mcache.Free(chunk)
		w.chunks = w.chunks[1:]
		w.recordError(err.Error())
		return false, nil
	}
	if n < len(chunk) {
		w.chunks[0] = chunk[n:]
		return true, nil
	}
	mcache.Free(chunk)
	w.chunks = w.chunks[1:]
	rmetrics.Add(rmetrics.BuffWriterChunksSent, 1)
	if len(w.chunks) == 0 {
		log.Debugf("reactor: buffered writer for fd %d finished draining", w.fd)
		writersGuard.Lock()
		if writers[w.fd] == w {
			delete(writers, w.fd)
		}
		writersGuard.Unlock()
		return false, nil
	}
	return true, nil
}

func (w *BufferedWriter) onError(args ...interface{}) (bool, error) {
	w.recordError(fmt.Sprintf("error-class readiness on fd %d", w.fd))
	return true, nil
}

func (w *BufferedWriter) recordError(msg string) {
	rmetrics.Add(rmetrics.BuffWriterErrors, 1)
	if w.onerror != nil && len(w.errors) == 0 {
		w.onerror(msg)
	}
	w.errors = append(w.errors, msg)
	log.Debugf("reactor: buffered writer for fd %d error #%d: %s", w.fd, len(w.errors), msg)
}

// Pending reports whether any chunk is still queued.
func (w *BufferedWriter) Pending() bool {
	return len(w.chunks) > 0
}

// Errors returns every error message BuffWrite has observed for this
// writer's descriptor, in the order they occurred.
func (w *BufferedWriter) Errors() []string {
	return append([]string(nil), w.errors...)
}
