package asio

import (
	"github.com/dac1976/corelib-go/internal/codec"
	"github.com/dac1976/corelib-go/internal/reactor"
	"github.com/dac1976/corelib-go/internal/udp"
	"github.com/dac1976/corelib-go/internal/wire"
)

// UDPOption re-exports udp.Option.
type UDPOption = udp.Option

const (
	UDPUnicast   = udp.Unicast
	UDPBroadcast = udp.Broadcast
)

// TypedUDPSenderConfig configures a TypedUDPSender.
type TypedUDPSenderConfig struct {
	MagicString string
	ArchiveType ArchiveType
	Registry    *codec.Registry
	Target      wire.Endpoint
	Option      UDPOption
}

// TypedUDPSender binds a codec.Builder to a udp.Sender.
type TypedUDPSender struct {
	builder     *codec.Builder
	archiveType ArchiveType
	sender      *udp.Sender
}

// NewTypedUDPSender opens a sender targeting cfg.Target.
func NewTypedUDPSender(cfg TypedUDPSenderConfig) (*TypedUDPSender, error) {
	b, err := codec.NewBuilder(cfg.MagicString, cfg.Registry)
	if err != nil {
		return nil, err
	}
	s, err := udp.NewSender(cfg.Target, cfg.Option)
	if err != nil {
		return nil, err
	}
	return &TypedUDPSender{builder: b, archiveType: cfg.ArchiveType, sender: s}, nil
}

// Send builds a framed message of messageID carrying message and sends it.
func (s *TypedUDPSender) Send(message any, messageID uint32, responseAddress wire.Endpoint) bool {
	frame, err := s.builder.Build(message, s.archiveType, messageID, responseAddress, wire.NullEndpoint)
	if err != nil {
		return false
	}
	return s.sender.Send(frame)
}

// Close releases the underlying socket.
func (s *TypedUDPSender) Close() error { return s.sender.Close() }

// TypedUDPReceiverConfig configures a TypedUDPReceiver.
type TypedUDPReceiverConfig struct {
	MagicString string
	Registry    *codec.Registry
	Dispatcher  Dispatcher
	Port        uint16
	Option      UDPOption
}

// TypedUDPReceiver binds a codec.Handler to a udp.Receiver.
type TypedUDPReceiver struct {
	*codecPipeline
	recv *udp.Receiver
}

// NewTypedUDPReceiver binds a receiver on cfg.Port and starts it immediately.
func NewTypedUDPReceiver(cfg TypedUDPReceiverConfig) (*TypedUDPReceiver, error) {
	pipe, err := newCodecPipeline(cfg.MagicString, cfg.Registry, cfg.Dispatcher)
	if err != nil {
		return nil, err
	}
	r, err := udp.NewReceiver(cfg.Port, cfg.Option, pipe.handler.BytesLeftToRead, pipe.handler.OnMessage)
	if err != nil {
		return nil, err
	}
	return &TypedUDPReceiver{codecPipeline: pipe, recv: r}, nil
}

// Close stops the receive loop and releases the socket.
func (r *TypedUDPReceiver) Close() error { return r.recv.Close() }

// SimpleUDPSender is a TypedUDPSender that is indistinguishable in API from
// its typed counterpart: "Simple" facades only differ from "Typed" ones in
// owning a private reactor.Pool for receive dispatch, which a pure sender
// has no use for. Kept as a distinct type so the public surface mirrors
// original_source/Include/Asio/SimpleUdpSender.h's naming.
type SimpleUDPSender struct{ *TypedUDPSender }

// NewSimpleUDPSender opens a sender exactly like NewTypedUDPSender.
func NewSimpleUDPSender(cfg TypedUDPSenderConfig) (*SimpleUDPSender, error) {
	s, err := NewTypedUDPSender(cfg)
	if err != nil {
		return nil, err
	}
	return &SimpleUDPSender{s}, nil
}

// SimpleUDPReceiver owns a private single-worker reactor.Pool that runs the
// caller's dispatcher, per original_source/Include/Asio/SimpleUdpReceiver.h.
// TypedUDPReceiver takes no pool at all: it calls its dispatcher directly on
// the receive-loop goroutine.
type SimpleUDPReceiver struct {
	*TypedUDPReceiver
	pool *reactor.Pool
}

// NewSimpleUDPReceiver binds a receiver on cfg.Port, dispatching each
// message onto a private single-worker pool so the caller's dispatcher never
// runs on the receive-loop goroutine.
func NewSimpleUDPReceiver(cfg TypedUDPReceiverConfig) (*SimpleUDPReceiver, error) {
	pool := reactor.NewPrivatePool()
	userDispatch := cfg.Dispatcher
	cfg.Dispatcher = func(m wire.ReceivedMessage) {
		pool.Post(func() { userDispatch(m) })
	}
	r, err := NewTypedUDPReceiver(cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &SimpleUDPReceiver{TypedUDPReceiver: r, pool: pool}, nil
}

// Close stops the receive loop, releases the socket, and then closes the
// private pool; dispatches still queued on the pool at that point may not run.
func (r *SimpleUDPReceiver) Close() error {
	err := r.TypedUDPReceiver.Close()
	r.pool.Close()
	return err
}
