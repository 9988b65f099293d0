// Package udp implements single-socket UDP datagram endpoints: Sender (a
// synchronous send_to wrapper) and Receiver (a framed receive loop sharing
// the same bytes-left-to-read/on-message callback surface as tcp.Connection).
//
// Grounded on internal/runtime/netstack/udp.go's UDPEndpoint wrapper for the
// basic socket lifecycle, and original_source/Include/Asio/{UdpSender,
// UdpReceiver}.h for the broadcast-option and destruction-mutex semantics.
package udp

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/dac1976/corelib-go/internal/corelog"
	"github.com/dac1976/corelib-go/internal/wire"
)

// Option selects unicast vs broadcast socket behavior.
type Option int

const (
	Unicast Option = iota
	Broadcast
)

// BytesLeftToRead is the transport's framing predicate, shared with tcp.Connection.
type BytesLeftToRead func(accumulated []byte) (int, error)

// OnMessage is invoked with a complete frame's accumulated bytes.
type OnMessage func(accumulated []byte) error

// Sender opens a UDP socket and performs synchronous, unframed sends of
// already-built buffers (typically produced by codec.Builder). If
// Option == Broadcast, SO_BROADCAST is enabled on the socket.
type Sender struct {
	conn   net.PacketConn
	target *net.UDPAddr
	option Option
}

// NewSender opens a UDP socket and resolves target once.
func NewSender(target wire.Endpoint, option Option) (*Sender, error) {
	lc := net.ListenConfig{Control: controlForOption(option)}
	pc, err := lc.ListenPacket(context.Background(), "udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("udp: open sender socket: %w", err)
	}
	addr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", target.Address, target.Port))
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("udp: resolve target: %w", err)
	}
	return &Sender{conn: pc, target: addr, option: option}, nil
}

// Send performs a synchronous send_to of an already-framed buffer; no
// framing is imposed here (the caller supplies the bytes).
func (s *Sender) Send(data []byte) bool {
	if len(data) > wire.UDPDatagramMaxSize {
		corelog.Warnf("udp: %v: %d bytes", wire.ErrDatagramTooLarge, len(data))
		return false
	}
	n, err := s.conn.WriteTo(data, s.target)
	return err == nil && n == len(data)
}

// Close releases the sender's socket.
func (s *Sender) Close() error { return s.conn.Close() }

// Receiver binds a UDP socket and runs a framed receive loop: each datagram
// is appended to an accumulator, BytesLeftToRead is consulted, and complete
// frames are delivered to OnMessage.
//
// The destruction mutex in destructing/mu resolves the race between a
// reactor callback in flight and receiver teardown.
type Receiver struct {
	conn            net.PacketConn
	bytesLeftToRead BytesLeftToRead
	onMessage       OnMessage

	mu          sync.Mutex
	destructing bool
	stopOnce    sync.Once
	stopped     chan struct{}
}

// NewReceiver binds a UDP socket to port, sets SO_RCVBUF to
// wire.DefaultUDPBufSize, and starts its receive loop. Broadcast mode
// additionally enables SO_REUSEADDR ("reuse_address only when in broadcast
// mode").
func NewReceiver(port uint16, option Option, bytesLeftToRead BytesLeftToRead, onMessage OnMessage) (*Receiver, error) {
	lc := net.ListenConfig{Control: combineControls(controlForOption(option), rcvBufControl(wire.DefaultUDPBufSize))}
	pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("udp: bind receiver: %w", err)
	}
	r := &Receiver{
		conn:            pc,
		bytesLeftToRead: bytesLeftToRead,
		onMessage:       onMessage,
		stopped:         make(chan struct{}),
	}
	go r.receiveLoop()
	return r, nil
}

func (r *Receiver) receiveLoop() {
	defer close(r.stopped)
	scratch := make([]byte, wire.UDPDatagramMaxSize)
	var accumulated []byte
	for {
		n, _, err := r.conn.ReadFrom(scratch)
		if err != nil {
			return
		}
		r.mu.Lock()
		if r.destructing {
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()

		accumulated = append(accumulated, scratch[:n]...)
		left, err := r.bytesLeftToRead(accumulated)
		if err != nil {
			accumulated = nil
			continue
		}
		if left == 0 {
			if r.onMessage != nil {
				if err := r.onMessage(accumulated); err != nil {
					corelog.Warnf("udp: on-message handler error: %v", err)
				}
			}
			accumulated = nil
		}
	}
}

// Close signals the destructing flag under the receiver's mutex (so an
// in-flight completion handler observes it and returns without touching
// callbacks) and closes the socket.
func (r *Receiver) Close() error {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.destructing = true
		r.mu.Unlock()
		r.conn.Close()
	})
	<-r.stopped
	return nil
}

// LocalAddr returns the receiver's bound local address.
func (r *Receiver) LocalAddr() net.Addr { return r.conn.LocalAddr() }
