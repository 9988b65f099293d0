package tcp

import (
	"context"
	"sync"

	"github.com/dac1976/corelib-go/internal/reactor"
	"github.com/dac1976/corelib-go/internal/wire"
)

// Client owns a single Connection to one server, lazily connecting on first
// send and reconnecting whenever the managed connection is not open.
//
// Grounded on original_source's TcpClient.h/.cpp: send_async/send_sync first
// call ensure_connected, which (re)constructs the connection when none is
// registered; a failed connect attempt is retried on the next send.
type Client struct {
	pool     *reactor.Pool
	registry *ConnectionRegistry
	connCfg  Config
	target   string

	mu   sync.Mutex
	conn *Connection
}

// NewClient constructs a Client targeting target (host:port form).
func NewClient(pool *reactor.Pool, connCfg Config, target string) *Client {
	return &Client{
		pool:     pool,
		registry: NewConnectionRegistry(),
		connCfg:  connCfg,
		target:   target,
	}
}

func (cl *Client) ensureConnected(ctx context.Context) *Connection {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.conn != nil && cl.conn.IsOpen() {
		return cl.conn
	}
	c := NewConnection(cl.pool, cl.registry, cl.connCfg)
	if !c.Connect(ctx, cl.target) {
		cl.conn = nil
		return nil
	}
	cl.conn = c
	return c
}

// SendAsync ensures a live connection (connecting if necessary) and forwards
// to its SendAsync. Returns false if connect or the send itself fails.
func (cl *Client) SendAsync(ctx context.Context, data []byte) bool {
	c := cl.ensureConnected(ctx)
	if c == nil {
		return false
	}
	return c.SendAsync(data)
}

// SendSync ensures a live connection and forwards to its SendSync.
func (cl *Client) SendSync(ctx context.Context, data []byte) bool {
	c := cl.ensureConnected(ctx)
	if c == nil {
		return false
	}
	return c.SendSync(data)
}

// Close closes the managed connection, if any.
func (cl *Client) Close() {
	cl.mu.Lock()
	c := cl.conn
	cl.conn = nil
	cl.mu.Unlock()
	if c != nil {
		c.Close()
	}
}

// GetClientDetailsForServer returns the local endpoint the OS chose for the
// active connection, or the null endpoint if not connected.
func (cl *Client) GetClientDetailsForServer() wire.Endpoint {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.conn == nil {
		return wire.NullEndpoint
	}
	return cl.conn.LocalEndpoint()
}

// IsConnected reports whether the managed connection is currently open.
func (cl *Client) IsConnected() bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.conn != nil && cl.conn.IsOpen()
}
