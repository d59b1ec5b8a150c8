package isolate

// Holder is a shared weak handle to an environment. It never owns the
// environment and stays usable after disposal; Resolve is the only way for
// outside code to reach a live *Environment. Any number of holders (or
// copies of one) may reference the same environment.
type Holder struct {
	env *Environment
}

// Resolve returns the live environment, or ErrDisposed once it is gone.
func (h *Holder) Resolve() (*Environment, error) {
	if h == nil || h.env == nil || h.env.disposed.Load() {
		return nil, ErrDisposed
	}
	return h.env, nil
}

// Disposed reports whether the referenced environment has been disposed.
func (h *Holder) Disposed() bool {
	_, err := h.Resolve()
	return err != nil
}

// Post queues a work item against the referenced environment, applying the
// drop rules when it is already gone. Never blocks.
func (h *Holder) Post(item Runnable, opts PostOpts) {
	if h == nil || h.env == nil {
		if d, ok := item.(Discardable); ok {
			d.Discard()
		}
		return
	}
	h.env.Post(item, opts)
}
