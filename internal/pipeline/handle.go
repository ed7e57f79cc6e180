package pipeline

import "sync"

// Handle is the process-wide pipeline reference. It is either Loaded (holds a
// Pipeline) or NotLoaded. Writes happen only during Start and Shutdown; every
// consumer resolves it through Get before use.
type Handle struct {
	mu sync.RWMutex
	p  Pipeline
}

// Get returns the loaded pipeline or ErrNotLoaded.
func (h *Handle) Get() (Pipeline, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.p == nil {
		return nil, ErrNotLoaded
	}
	return h.p, nil
}

// Loaded reports whether the handle currently holds a pipeline.
func (h *Handle) Loaded() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.p != nil
}

// set transitions to Loaded.
func (h *Handle) set(p Pipeline) {
	h.mu.Lock()
	h.p = p
	h.mu.Unlock()
}

// clear transitions to NotLoaded and returns the previous pipeline, if any.
func (h *Handle) clear() Pipeline {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := h.p
	h.p = nil
	return p
}
