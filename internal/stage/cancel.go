package stage

import "sync"

type cancelKey struct {
	pid    int32
	secret int32
}

// CancelRegistry maps the synthetic (pid, secret) pair a gateway hands a
// client in BackendKeyData back to that client's live Context, so an
// incoming CancelRequest (arriving on its own fresh connection, per the
// wire protocol) can be routed to the right in-flight backend lease.
type CancelRegistry struct {
	mu    sync.RWMutex
	byKey map[cancelKey]*Context
}

// NewCancelRegistry returns an empty registry.
func NewCancelRegistry() *CancelRegistry {
	return &CancelRegistry{byKey: make(map[cancelKey]*Context)}
}

// Register makes ctx reachable by its own (BackendPID, BackendSecret).
func (r *CancelRegistry) Register(ctx *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[cancelKey{ctx.BackendPID, ctx.BackendSecret}] = ctx
}

// Unregister removes ctx, called when its connection closes.
func (r *CancelRegistry) Unregister(ctx *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byKey, cancelKey{ctx.BackendPID, ctx.BackendSecret})
}

// Lookup finds the Context a CancelRequest's (pid, secret) refers to.
func (r *CancelRegistry) Lookup(pid, secret int32) (*Context, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctx, ok := r.byKey[cancelKey{pid, secret}]
	return ctx, ok
}
