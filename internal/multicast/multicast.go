// Package multicast implements UDP multicast send/receive endpoints: group
// join, TTL, loopback, and interface selection, sharing the same framing
// callback surface as udp.Receiver.
//
// Grounded on original_source/Include/Asio/{MulticastSender,
// MulticastReceiver}.h for the configuration surface, and on
// golang.org/x/net/ipv4 for the multicast socket options the standard net
// package does not expose.
package multicast

import (
	"fmt"
	"net"
	"sync"

	"golang.org/x/net/ipv4"

	"github.com/dac1976/corelib-go/internal/corelog"
	"github.com/dac1976/corelib-go/internal/wire"
)

// TTL selects a multicast scope.
type TTL int

const (
	TTLSameHost      TTL = 0
	TTLSameSubnet    TTL = 1
	TTLSameSite      TTL = 32
	TTLSameRegion    TTL = 64
	TTLSameContinent TTL = 128
	TTLUnrestricted  TTL = 255
)

// BytesLeftToRead is the transport's framing predicate, shared with udp.Receiver.
type BytesLeftToRead func(accumulated []byte) (int, error)

// OnMessage is invoked with a complete frame's accumulated bytes.
type OnMessage func(accumulated []byte) error

func resolveInterface(interfaceAddress string) (*net.Interface, error) {
	if interfaceAddress == "" {
		return nil, nil
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("multicast: list interfaces: %w", err)
	}
	for i := range ifaces {
		addrs, err := ifaces[i].Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipNet, ok := a.(*net.IPNet); ok && ipNet.IP.String() == interfaceAddress {
				return &ifaces[i], nil
			}
		}
	}
	return nil, fmt.Errorf("multicast: no interface with address %q", interfaceAddress)
}

// Sender opens a UDP v4 socket, sets TTL/loopback/interface, and caches the
// target multicast group endpoint.
type Sender struct {
	conn   *net.UDPConn
	pconn  *ipv4.PacketConn
	target *net.UDPAddr
}

// NewSender opens a sender for multicastGroup. interfaceAddress selects the
// outbound NIC (empty lets the OS pick).
func NewSender(multicastGroup wire.Endpoint, interfaceAddress string, enableLoopback bool, ttl TTL) (*Sender, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, fmt.Errorf("multicast: open sender socket: %w", err)
	}
	pconn := ipv4.NewPacketConn(conn)
	if err := pconn.SetMulticastTTL(int(ttl)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("multicast: set TTL: %w", err)
	}
	if err := pconn.SetMulticastLoopback(enableLoopback); err != nil {
		conn.Close()
		return nil, fmt.Errorf("multicast: set loopback: %w", err)
	}
	if iface, err := resolveInterface(interfaceAddress); err != nil {
		conn.Close()
		return nil, err
	} else if iface != nil {
		if err := pconn.SetMulticastInterface(iface); err != nil {
			conn.Close()
			return nil, fmt.Errorf("multicast: set interface: %w", err)
		}
	}

	target, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", multicastGroup.Address, multicastGroup.Port))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("multicast: resolve group: %w", err)
	}
	return &Sender{conn: conn, pconn: pconn, target: target}, nil
}

// Send performs a synchronous send_to of an already-framed buffer.
func (s *Sender) Send(data []byte) bool {
	if len(data) > wire.UDPDatagramMaxSize {
		corelog.Warnf("multicast: %v: %d bytes", wire.ErrDatagramTooLarge, len(data))
		return false
	}
	n, err := s.conn.WriteToUDP(data, s.target)
	return err == nil && n == len(data)
}

// Close releases the sender's socket.
func (s *Sender) Close() error { return s.conn.Close() }

// Receiver binds to listenPort on all IPv4 addresses (0.0.0.0) and joins
// multicastGroup on the selected interface, then runs a framed receive loop
// identical in shape to udp.Receiver's. It takes no listen address; binding
// to one specific local address is not supported.
//
// The destruction mutex in destructing/mu resolves the race between a
// reactor callback in flight and receiver teardown, same as udp.Receiver.
type Receiver struct {
	conn            *net.UDPConn
	pconn           *ipv4.PacketConn
	bytesLeftToRead BytesLeftToRead
	onMessage       OnMessage

	mu          sync.Mutex
	destructing bool
	stopOnce    sync.Once
	stopped     chan struct{}
}

// NewReceiver binds and joins multicastGroup on interfaceAddress (empty lets
// the OS pick), starting the receive loop immediately.
func NewReceiver(listenPort uint16, multicastGroup, interfaceAddress string, bytesLeftToRead BytesLeftToRead, onMessage OnMessage) (*Receiver, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: int(listenPort)})
	if err != nil {
		return nil, fmt.Errorf("multicast: bind receiver: %w", err)
	}
	pconn := ipv4.NewPacketConn(conn)

	iface, err := resolveInterface(interfaceAddress)
	if err != nil {
		conn.Close()
		return nil, err
	}
	groupIP := net.ParseIP(multicastGroup)
	if groupIP == nil {
		conn.Close()
		return nil, fmt.Errorf("multicast: invalid group address %q", multicastGroup)
	}
	if err := pconn.JoinGroup(iface, &net.UDPAddr{IP: groupIP}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("multicast: join group: %w", err)
	}

	r := &Receiver{
		conn:            conn,
		pconn:           pconn,
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
		n, _, _, err := r.pconn.ReadFrom(scratch)
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
					corelog.Warnf("multicast: on-message handler error: %v", err)
				}
			}
			accumulated = nil
		}
	}
}

// Close signals the destructing flag under the receiver's mutex (so an
// in-flight completion handler observes it and returns without touching
// callbacks), closes the socket, and awaits the receive loop's exit.
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
