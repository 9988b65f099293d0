package tcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/dac1976/corelib-go/internal/reactor"
	"github.com/dac1976/corelib-go/internal/wire"
)

// ClientList is a keyed collection of Clients, one per target server
// endpoint, created lazily on first send.
//
// Grounded on original_source/Include/Asio/TcpClientList.h's
// CloseConnection/CloseConnections/ClearConnections operation set.
type ClientList struct {
	pool    *reactor.Pool
	connCfg Config

	mu      sync.Mutex
	clients map[wire.Endpoint]*Client
}

// NewClientList constructs an empty client list.
func NewClientList(pool *reactor.Pool, connCfg Config) *ClientList {
	return &ClientList{pool: pool, connCfg: connCfg, clients: make(map[wire.Endpoint]*Client)}
}

func (cl *ClientList) clientFor(server wire.Endpoint) *Client {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if c, ok := cl.clients[server]; ok {
		return c
	}
	c := NewClient(cl.pool, cl.connCfg, fmt.Sprintf("%s:%d", server.Address, server.Port))
	cl.clients[server] = c
	return c
}

// SendAsync finds or lazily creates the client for server and forwards.
func (cl *ClientList) SendAsync(ctx context.Context, server wire.Endpoint, data []byte) bool {
	return cl.clientFor(server).SendAsync(ctx, data)
}

// SendSync finds or lazily creates the client for server and forwards.
func (cl *ClientList) SendSync(ctx context.Context, server wire.Endpoint, data []byte) bool {
	return cl.clientFor(server).SendSync(ctx, data)
}

// CloseConnection closes and forgets the client for server, if any.
func (cl *ClientList) CloseConnection(server wire.Endpoint) {
	cl.mu.Lock()
	c, ok := cl.clients[server]
	delete(cl.clients, server)
	cl.mu.Unlock()
	if ok {
		c.Close()
	}
}

// CloseConnections closes every managed client but keeps the (now-closed)
// entries, matching the original's "close but don't forget" semantics.
func (cl *ClientList) CloseConnections() {
	cl.mu.Lock()
	clients := make([]*Client, 0, len(cl.clients))
	for _, c := range cl.clients {
		clients = append(clients, c)
	}
	cl.mu.Unlock()
	for _, c := range clients {
		c.Close()
	}
}

// ClearConnections closes every managed client and forgets them all.
func (cl *ClientList) ClearConnections() {
	cl.mu.Lock()
	clients := make([]*Client, 0, len(cl.clients))
	for _, c := range cl.clients {
		clients = append(clients, c)
	}
	cl.clients = make(map[wire.Endpoint]*Client)
	cl.mu.Unlock()
	for _, c := range clients {
		c.Close()
	}
}
