package admin

import "sync"

// ClientRegistry tracks the set of currently-connected client connections,
// so SHOW CLIENTS can report on them without reaching into the proxy's
// per-connection goroutines.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[uint64]ClientInfo
	nextID  uint64
}

// NewClientRegistry returns an empty registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{clients: make(map[uint64]ClientInfo)}
}

// Register adds a newly-accepted connection and returns a handle to use
// with Update and Unregister.
func (r *ClientRegistry) Register(info ClientInfo) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.clients[id] = info
	return id
}

// Update replaces the recorded info for a connection, e.g. once its
// username/database/stage is known.
func (r *ClientRegistry) Update(id uint64, info ClientInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[id] = info
}

// Unregister removes a connection when it closes.
func (r *ClientRegistry) Unregister(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
}

// Snapshot returns every currently-registered client's info.
func (r *ClientRegistry) Snapshot() []ClientInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ClientInfo, 0, len(r.clients))
	for _, info := range r.clients {
		out = append(out, info)
	}
	return out
}
