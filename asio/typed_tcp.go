package asio

import (
	"context"

	"github.com/dac1976/corelib-go/internal/codec"
	"github.com/dac1976/corelib-go/internal/reactor"
	"github.com/dac1976/corelib-go/internal/tcp"
	"github.com/dac1976/corelib-go/internal/wire"
)

// TCPServerConfig configures a TypedTCPServer.
type TCPServerConfig struct {
	MagicString    string
	ArchiveType    ArchiveType
	Registry       *codec.Registry
	Dispatcher     Dispatcher
	SendOption     tcp.SendOption
	PoolSlotCount  int
	PoolSlotSize   int
	MaxUnsentAsync int64
}

// TypedTCPServer binds a codec.Builder/Handler pair to a tcp.Server.
type TypedTCPServer struct {
	*codecPipeline
	archiveType ArchiveType
	server      *tcp.Server
}

// NewTypedTCPServer constructs a server sharing pool for its reactor work.
// The caller must call OpenAcceptor to start listening.
func NewTypedTCPServer(pool *reactor.Pool, cfg TCPServerConfig) (*TypedTCPServer, error) {
	pipe, err := newCodecPipeline(cfg.MagicString, cfg.Registry, cfg.Dispatcher)
	if err != nil {
		return nil, err
	}
	registry := tcp.NewConnectionRegistry()
	connCfg := tcp.Config{
		BytesLeftToRead: pipe.handler.BytesLeftToRead,
		OnMessage:       pipe.handler.OnMessage,
		SendOption:      cfg.SendOption,
		PoolSlotCount:   cfg.PoolSlotCount,
		PoolSlotSize:    cfg.PoolSlotSize,
		MaxUnsentAsync:  cfg.MaxUnsentAsync,
	}
	return &TypedTCPServer{
		codecPipeline: pipe,
		archiveType:   cfg.ArchiveType,
		server:        tcp.NewServer(pool, registry, connCfg),
	}, nil
}

// OpenAcceptor starts listening on listenPort (0 lets the OS choose).
func (s *TypedTCPServer) OpenAcceptor(listenPort uint16) error { return s.server.OpenAcceptor(listenPort) }

// CloseAcceptor stops listening and closes every accepted connection.
func (s *TypedTCPServer) CloseAcceptor() { s.server.CloseAcceptor() }

// ListenPort returns the bound listen port.
func (s *TypedTCPServer) ListenPort() uint16 { return s.server.ListenPort() }

// SendToClient builds a framed message of messageID carrying message and
// sends it asynchronously to client, falling back to this server's bound
// address as the response endpoint when responseAddress is null.
func (s *TypedTCPServer) SendToClient(client wire.Endpoint, message any, messageID uint32, responseAddress wire.Endpoint) bool {
	fallback := wire.Endpoint{Address: "0.0.0.0", Port: s.server.ListenPort()}
	frame, err := s.builder.Build(message, s.archiveType, messageID, responseAddress, fallback)
	if err != nil {
		return false
	}
	return s.server.SendToClientAsync(client, frame)
}

// SendToAllClients broadcasts a framed message to every connected client.
func (s *TypedTCPServer) SendToAllClients(message any, messageID uint32) bool {
	fallback := wire.Endpoint{Address: "0.0.0.0", Port: s.server.ListenPort()}
	frame, err := s.builder.Build(message, s.archiveType, messageID, wire.NullEndpoint, fallback)
	if err != nil {
		return false
	}
	s.server.SendToAllClients(frame)
	return true
}

// Deserialize decodes a received message's body using this server's
// registered codec for archiveType.
func (s *TypedTCPServer) Deserialize(body []byte, archiveType ArchiveType, v any) error {
	return s.builder.Deserialize(body, archiveType, v)
}

// NumberOfClients returns the number of currently registered connections.
func (s *TypedTCPServer) NumberOfClients() int { return s.server.NumberOfClients() }

// IsConnected reports whether client currently has a live connection.
func (s *TypedTCPServer) IsConnected(client wire.Endpoint) bool { return s.server.IsConnected(client) }

// TCPClientConfig configures a TypedTCPClient.
type TCPClientConfig struct {
	MagicString    string
	ArchiveType    ArchiveType
	Registry       *codec.Registry
	Dispatcher     Dispatcher
	SendOption     tcp.SendOption
	PoolSlotCount  int
	PoolSlotSize   int
	MaxUnsentAsync int64
}

// TypedTCPClient binds a codec.Builder/Handler pair to a tcp.Client.
type TypedTCPClient struct {
	*codecPipeline
	archiveType ArchiveType
	client      *tcp.Client
}

// NewTypedTCPClient constructs a client targeting target (host:port).
func NewTypedTCPClient(pool *reactor.Pool, target string, cfg TCPClientConfig) (*TypedTCPClient, error) {
	pipe, err := newCodecPipeline(cfg.MagicString, cfg.Registry, cfg.Dispatcher)
	if err != nil {
		return nil, err
	}
	connCfg := tcp.Config{
		BytesLeftToRead: pipe.handler.BytesLeftToRead,
		OnMessage:       pipe.handler.OnMessage,
		SendOption:      cfg.SendOption,
		PoolSlotCount:   cfg.PoolSlotCount,
		PoolSlotSize:    cfg.PoolSlotSize,
		MaxUnsentAsync:  cfg.MaxUnsentAsync,
	}
	return &TypedTCPClient{
		codecPipeline: pipe,
		archiveType:   cfg.ArchiveType,
		client:        tcp.NewClient(pool, connCfg, target),
	}, nil
}

// Send builds a framed message and sends it asynchronously, connecting
// lazily if necessary.
func (c *TypedTCPClient) Send(ctx context.Context, message any, messageID uint32, responseAddress wire.Endpoint) bool {
	frame, err := c.builder.Build(message, c.archiveType, messageID, responseAddress, wire.NullEndpoint)
	if err != nil {
		return false
	}
	return c.client.SendAsync(ctx, frame)
}

// SendSync is the synchronous counterpart of Send.
func (c *TypedTCPClient) SendSync(ctx context.Context, message any, messageID uint32, responseAddress wire.Endpoint) bool {
	frame, err := c.builder.Build(message, c.archiveType, messageID, responseAddress, wire.NullEndpoint)
	if err != nil {
		return false
	}
	return c.client.SendSync(ctx, frame)
}

// Deserialize decodes a received message's body using this client's
// registered codec for archiveType.
func (c *TypedTCPClient) Deserialize(body []byte, archiveType ArchiveType, v any) error {
	return c.builder.Deserialize(body, archiveType, v)
}

// Close closes the managed connection, if any.
func (c *TypedTCPClient) Close() { c.client.Close() }

// IsConnected reports whether the managed connection is currently open.
func (c *TypedTCPClient) IsConnected() bool { return c.client.IsConnected() }
