package framews

import (
	"context"
	"sync"

	"humming/meet/internal/orchestrator"
)

// Registry keeps at most one frame host per mount point.
type Registry struct {
	mu    sync.Mutex
	hosts map[string]*Host
}

var _ orchestrator.Attacher = (*Registry)(nil)

func NewRegistry() *Registry { return &Registry{hosts: make(map[string]*Host)} }

// Replace sets the host for a mount and closes the previous one if present.
func (r *Registry) Replace(h *Host) (prevClosed bool) {
	r.mu.Lock()
	old := r.hosts[h.mount]
	r.hosts[h.mount] = h
	r.mu.Unlock()
	if old != nil && old != h {
		old.Close("replaced")
		prevClosed = true
	}
	return
}

func (r *Registry) Get(mount string) *Host {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hosts[mount]
}

// Remove forgets h if it is still the host for its mount.
func (r *Registry) Remove(h *Host) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hosts[h.mount] == h {
		delete(r.hosts, h.mount)
	}
}

// Attach returns a new frame on the host serving mount.
func (r *Registry) Attach(ctx context.Context, mount string) (orchestrator.Transport, error) {
	h := r.Get(mount)
	if h == nil {
		return nil, orchestrator.ErrMountUnavailable
	}
	f, err := h.NewFrame()
	if err != nil {
		return nil, orchestrator.ErrMountUnavailable
	}
	return f, nil
}

// Mounts lists the mounts with a connected host.
func (r *Registry) Mounts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.hosts))
	for m := range r.hosts {
		out = append(out, m)
	}
	return out
}
