package tcp

import (
	"errors"
	"sync"

	"github.com/dac1976/corelib-go/internal/wire"
)

// ErrUnknownConnection is returned by registry lookups when the requested
// remote endpoint is not present.
var ErrUnknownConnection = errors.New("tcp: unknown connection")

// ConnectionRegistry is a thread-safe map of remote endpoint to Connection,
// used by both the server (one entry per accepted client) and each Client
// (its one dialed server; a ClientList holds one Client, and so one
// registry, per server). At most one live connection per remote
// endpoint is held per registry.
//
// Grounded on original_source/Include/Asio/TcpConnections.h's
// endpoint-keyed map and broadcast/lookup operation set.
type ConnectionRegistry struct {
	mu    sync.RWMutex
	byKey map[wire.Endpoint]*Connection
}

// NewConnectionRegistry constructs an empty registry.
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{byKey: make(map[wire.Endpoint]*Connection)}
}

func (r *ConnectionRegistry) add(c *Connection) {
	r.mu.Lock()
	r.byKey[c.RemoteEndpoint()] = c
	r.mu.Unlock()
}

func (r *ConnectionRegistry) remove(c *Connection) {
	r.mu.Lock()
	if existing, ok := r.byKey[c.RemoteEndpoint()]; ok && existing == c {
		delete(r.byKey, c.RemoteEndpoint())
	}
	r.mu.Unlock()
}

func (r *ConnectionRegistry) find(target wire.Endpoint) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byKey[target]
	return c, ok
}

// SendAsync looks up target and forwards to its SendAsync, returning false
// if the target is unknown.
func (r *ConnectionRegistry) SendAsync(target wire.Endpoint, data []byte) bool {
	c, ok := r.find(target)
	if !ok {
		return false
	}
	return c.SendAsync(data)
}

// SendSync looks up target and forwards to its SendSync, returning false if
// the target is unknown.
func (r *ConnectionRegistry) SendSync(target wire.Endpoint, data []byte) bool {
	c, ok := r.find(target)
	if !ok {
		return false
	}
	return c.SendSync(data)
}

// SendToAll broadcasts data to every registered connection via async sends.
func (r *ConnectionRegistry) SendToAll(data []byte) {
	r.mu.RLock()
	conns := make([]*Connection, 0, len(r.byKey))
	for _, c := range r.byKey {
		conns = append(conns, c)
	}
	r.mu.RUnlock()
	for _, c := range conns {
		c.SendAsync(data)
	}
}

// LocalEndpointFor returns the local side of the connection to remote, or
// ErrUnknownConnection if absent.
func (r *ConnectionRegistry) LocalEndpointFor(remote wire.Endpoint) (wire.Endpoint, error) {
	c, ok := r.find(remote)
	if !ok {
		return wire.Endpoint{}, ErrUnknownConnection
	}
	return c.LocalEndpoint(), nil
}

// NumUnsentAsync returns target's outstanding async-send count, or 0 if unknown.
func (r *ConnectionRegistry) NumUnsentAsync(target wire.Endpoint) int {
	c, ok := r.find(target)
	if !ok {
		return 0
	}
	return c.NumUnsentAsync()
}

// IsConnected reports whether target has a live, open connection.
func (r *ConnectionRegistry) IsConnected(target wire.Endpoint) bool {
	c, ok := r.find(target)
	return ok && c.IsOpen()
}

// Size returns the number of live connections.
func (r *ConnectionRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}

// CloseAll closes every connection and clears the map.
func (r *ConnectionRegistry) CloseAll() {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.byKey))
	for _, c := range r.byKey {
		conns = append(conns, c)
	}
	r.byKey = make(map[wire.Endpoint]*Connection)
	r.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}
