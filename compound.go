package reactor

import "time"

// Event-type bits, combined as a bitmask to describe which triggers a
// CompoundListener should fan out to.
const (
	EvTimeout = 1
	EvRead    = 2
	EvWrite   = 4
	EvSignal  = 8
	EvPersist = 16
)

// CompoundListener composes a signal, read, write and/or timeout trigger
// behind one user handle and callback. It owns its children: deleting the
// parent deletes them, and they never outlive it.
type CompoundListener struct {
	registry *Registry

	cb     EventCallback
	arg    interface{}
	evtype int
	handle interface{}

	timeout    *TimerListener
	ioChildren []*IoListener
	sigChild   *SignalListener
}

func newCompound(r *Registry, cb EventCallback, arg interface{}, evtype int, handle interface{}) *CompoundListener {
	if evtype == 0 {
		evtype = EvTimeout
	}
	c := &CompoundListener{registry: r, cb: cb, arg: arg, evtype: evtype, handle: handle}
	// The inner TimerListener always exists but is only armed when Add is
	// called with a delay; constructing it via newTimer with hasDelay=false
	// means it starts disarmed.
	c.timeout = newTimer(r, 0, false, c.childCallback, nil)
	c.spawnChildren()
	return c
}

// spawnChildren allocates, but does not register, a child for every bit set
// in evtype. Children created here must not auto-register with the
// Registry at construction time; registration happens only through Add.
func (c *CompoundListener) spawnChildren() {
	persist := c.evtype&EvPersist != 0
	if c.evtype&EvSignal != 0 {
		if sig, ok := c.handle.(int); ok {
			c.sigChild = &SignalListener{registry: c.registry, sig: syscallSignal(sig), cb: c.childSignalCallback}
		}
	}
	if c.evtype&EvRead != 0 {
		if fd, ok := c.handle.(int); ok {
			child := &IoListener{registry: c.registry, direction: Read, fd: fd, cb: c.childCallback}
			if persist {
				child.MarkPersistent()
			}
			c.ioChildren = append(c.ioChildren, child)
		}
	}
	if c.evtype&EvWrite != 0 {
		if fd, ok := c.handle.(int); ok {
			child := &IoListener{registry: c.registry, direction: Write, fd: fd, cb: c.childCallback}
			if persist {
				child.MarkPersistent()
			}
			c.ioChildren = append(c.ioChildren, child)
		}
	}
}

// childCallback adapts an IoListener/TimerListener's bool-returning Callback
// shape to the parent's single EventCallback.
func (c *CompoundListener) childCallback(args ...interface{}) (bool, error) {
	rearm, err := c.cb(c, c.handle, c.evtype, c.arg)
	if err != nil {
		return false, err
	}
	return rearm || c.evtype&EvPersist != 0, nil
}

func (c *CompoundListener) childSignalCallback(args ...interface{}) error {
	_, err := c.cb(c, c.handle, c.evtype, c.arg)
	return err
}

// Add fans out to every child plus the inner timer. A delay argument, if
// given (zero included), arms the timeout trigger; children that were merely allocated in
// spawnChildren now actually register with the Registry.
func (c *CompoundListener) Add(delay ...time.Duration) error {
	if len(delay) > 0 {
		c.timeout.Add(delay[0])
	}
	if c.sigChild != nil {
		c.sigChild.Add()
	}
	for _, child := range c.ioChildren {
		if err := child.Add(); err != nil {
			return err
		}
	}
	return nil
}

// Delete fans out to every child plus the inner timer.
func (c *CompoundListener) Delete() error {
	c.timeout.Delete()
	if c.sigChild != nil {
		c.sigChild.Delete()
	}
	for _, child := range c.ioChildren {
		if err := child.Delete(); err != nil {
			return err
		}
	}
	return nil
}

// Pending reports whether any child, or the inner timer, is currently armed.
func (c *CompoundListener) Pending() bool {
	if c.sigChild != nil && c.sigChild.Pending() {
		return true
	}
	for _, child := range c.ioChildren {
		if child.Pending() {
			return true
		}
	}
	return c.timeout.Pending()
}
