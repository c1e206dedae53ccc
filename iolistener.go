package reactor

// IoListener watches one direction (Read, Write, or Error) of one
// descriptor. The Registry holds at most one IoListener per (direction, fd)
// pair; arming a second one for the same pair replaces the first.
type IoListener struct {
	registry *Registry

	direction Direction
	fd        int

	cb   Callback
	args []interface{}

	persistent bool
	active     bool
}

func newIO(r *Registry, dir Direction, fd int, cb Callback, args []interface{}) *IoListener {
	l := &IoListener{registry: r, direction: dir, fd: fd, cb: cb, args: args}
	l.Add()
	return l
}

// MarkPersistent flags the listener so a falsy callback return does not
// cause it to be auto-deleted.
func (l *IoListener) MarkPersistent() *IoListener {
	l.persistent = true
	return l
}

// Add arms the listener with the backend and the Registry's tables.
func (l *IoListener) Add() error {
	if l.active {
		return nil
	}
	if err := l.registry.addIO(l); err != nil {
		return err
	}
	l.active = true
	return nil
}

// Delete disarms the listener.
func (l *IoListener) Delete() error {
	if !l.active {
		return nil
	}
	if err := l.registry.removeIO(l); err != nil {
		return err
	}
	l.active = false
	return nil
}

// Pending reports whether the listener is currently armed.
func (l *IoListener) Pending() bool {
	return l.active
}

func (l *IoListener) invoke() (bool, error) {
	return l.cb(l.args...)
}
