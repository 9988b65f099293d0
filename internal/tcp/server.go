package tcp

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/dac1976/corelib-go/internal/corelog"
	"github.com/dac1976/corelib-go/internal/reactor"
	"github.com/dac1976/corelib-go/internal/wire"
)

// Server is the TCP acceptor state machine.
//
// Grounded on original_source/Source/Asio/TcpServer.cpp's OpenAcceptor/
// CloseAcceptor pair (re-accept on any non-abort error, including after a
// successful accept) and internal/runtime/netstack/tcp.go's TCPServer
// accept-loop shape.
type Server struct {
	pool     *reactor.Pool
	registry *ConnectionRegistry
	connCfg  Config

	ln         net.Listener
	listenPort uint16
	closing    atomic.Bool
}

// NewServer constructs a Server that will accept connections configured per
// connCfg, sharing pool for its reactor work and registry for bookkeeping.
func NewServer(pool *reactor.Pool, registry *ConnectionRegistry, connCfg Config) *Server {
	return &Server{pool: pool, registry: registry, connCfg: connCfg}
}

// OpenAcceptor binds a listener to ("0.0.0.0", listenPort) and starts the
// accept loop. Reopen after Close is supported.
func (s *Server) OpenAcceptor(listenPort uint16) error {
	ln, err := net.Listen("tcp4", fmt.Sprintf(":%d", listenPort))
	if err != nil {
		return fmt.Errorf("tcp: open acceptor: %w", err)
	}
	s.ln = ln
	s.listenPort = uint16(ln.Addr().(*net.TCPAddr).Port)
	s.closing.Store(false)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closing.Load() {
				return
			}
			corelog.Warnf("tcp: accept error, retrying: %v", err)
			continue
		}
		c := NewConnection(s.pool, s.registry, s.connCfg)
		c.AttachAccepted(conn)
		// Re-post accept regardless of outcome, matching the original's
		// AcceptHandler which re-accepts after both success and non-abort error.
	}
}

// CloseAcceptor closes the listener and every accepted connection.
func (s *Server) CloseAcceptor() {
	s.closing.Store(true)
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.registry.CloseAll()
}

// ListenPort returns the bound listen port (useful when constructed with
// port 0 to let the OS choose).
func (s *Server) ListenPort() uint16 { return s.listenPort }

// NumberOfClients returns the number of currently registered connections.
func (s *Server) NumberOfClients() int { return s.registry.Size() }

// GetServerDetailsForClient returns ("0.0.0.0", listenPort) for the null
// endpoint, or the local endpoint of the connection to client otherwise.
func (s *Server) GetServerDetailsForClient(client wire.Endpoint) wire.Endpoint {
	if client.IsNull() {
		return wire.Endpoint{Address: "0.0.0.0", Port: s.listenPort}
	}
	local, err := s.registry.LocalEndpointFor(client)
	if err != nil {
		return wire.NullEndpoint
	}
	return local
}

// SendToClientAsync / SendToClientSync / SendToAllClients delegate to the registry.
func (s *Server) SendToClientAsync(client wire.Endpoint, data []byte) bool {
	return s.registry.SendAsync(client, data)
}

func (s *Server) SendToClientSync(client wire.Endpoint, data []byte) bool {
	return s.registry.SendSync(client, data)
}

func (s *Server) SendToAllClients(data []byte) { s.registry.SendToAll(data) }

// NumberOfUnsentAsyncMessages returns client's outstanding async-send count.
func (s *Server) NumberOfUnsentAsyncMessages(client wire.Endpoint) int {
	return s.registry.NumUnsentAsync(client)
}

// IsConnected reports whether client currently has a live connection.
func (s *Server) IsConnected(client wire.Endpoint) bool { return s.registry.IsConnected(client) }
