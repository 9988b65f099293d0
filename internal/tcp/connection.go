package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dac1976/corelib-go/internal/corelog"
	"github.com/dac1976/corelib-go/internal/reactor"
	"github.com/dac1976/corelib-go/internal/threads"
	"github.com/dac1976/corelib-go/internal/wire"
)

// State is the TcpConnection lifecycle state:
//
//	Idle -- connect --> Connecting -- ok --> Open -- close/err --> Closing --> Closed
//	                            \-- timeout/err --> Closed
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

// SendOption selects the TCP_NODELAY behavior of a connection.
type SendOption int

const (
	NagleOn SendOption = iota
	NagleOff
)

// ConnectTimeout is the hard timeout on TcpConnection.Connect.
const ConnectTimeout = 15 * time.Second

var (
	ErrConnectFailed    = errors.New("tcp: connect failed")
	ErrConnectionClosed = errors.New("tcp: connection closed")
	ErrNotConnected     = errors.New("tcp: not connected")
	ErrBackpressure     = errors.New("tcp: send-buffer pool or unsent-async cap saturated")
)

// BytesLeftToRead is the transport's framing predicate:
// given the accumulated bytes so far, return how many more bytes complete
// the frame (0 == deliver now), or an error treated as "reset accumulator".
type BytesLeftToRead func(accumulated []byte) (int, error)

// OnMessage is invoked with a complete frame's accumulated bytes.
type OnMessage func(accumulated []byte) error

// Config configures a Connection's framing, pooling, and socket options.
type Config struct {
	MinAmountToRead  int
	BytesLeftToRead  BytesLeftToRead
	OnMessage        OnMessage
	SendOption       SendOption
	PoolSlotCount    int
	PoolSlotSize     int
	MaxUnsentAsync   int64
}

func (c Config) withDefaults() Config {
	if c.MinAmountToRead <= 0 {
		c.MinAmountToRead = wire.HeaderSize
	}
	if c.MaxUnsentAsync <= 0 {
		c.MaxUnsentAsync = 64
	}
	return c
}

// Connection is a single TCP socket's state machine: connect, framed async
// read loop, serialized async write with a send-buffer pool, graceful
// shutdown.
//
// Grounded on original_source/Include/Asio/TcpConnection.h's field layout
// (mutex, strand, closing flag, send option, receive/message buffers,
// min-amount-to-read) and internal/runtime/netstack/tcp.go's accept/dial
// idioms.
type Connection struct {
	cfg      Config
	registry *ConnectionRegistry
	pool     *reactor.Pool
	strand   *reactor.Strand

	conn net.Conn

	state int32

	remote wire.Endpoint
	local  wire.Endpoint

	sendPool     *SendBufferPool
	unsentAsync  *semaphore.Weighted
	unsentCount  int64

	connectEvent *threads.SyncEvent
	closedEvent  *threads.SyncEvent

	closing atomic.Bool
}

// NewConnection constructs an unconnected Connection bound to pool and registry.
func NewConnection(pool *reactor.Pool, registry *ConnectionRegistry, cfg Config) *Connection {
	cfg = cfg.withDefaults()
	return &Connection{
		cfg:          cfg,
		registry:     registry,
		pool:         pool,
		strand:       reactor.NewStrand(pool),
		sendPool:     NewSendBufferPool(cfg.PoolSlotCount, cfg.PoolSlotSize),
		unsentAsync:  semaphore.NewWeighted(cfg.MaxUnsentAsync),
		connectEvent: threads.NewSyncEvent(threads.NotifyOne, threads.AutoReset, threads.NotSignalled, nil),
		closedEvent:  threads.NewSyncEvent(threads.NotifyAll, threads.ManualReset, threads.NotSignalled, nil),
	}
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() State { return State(atomic.LoadInt32(&c.state)) }

func (c *Connection) setState(s State) { atomic.StoreInt32(&c.state, int32(s)) }

// RemoteEndpoint returns the peer's textual IPv4 endpoint.
func (c *Connection) RemoteEndpoint() wire.Endpoint { return c.remote }

// LocalEndpoint returns this socket's locally bound endpoint.
func (c *Connection) LocalEndpoint() wire.Endpoint { return c.local }

// IsOpen reports whether the connection is currently usable for sends.
func (c *Connection) IsOpen() bool { return c.State() == StateOpen }

// NumUnsentAsync returns the number of async sends checked out but not yet
// acknowledged.
func (c *Connection) NumUnsentAsync() int { return int(atomic.LoadInt64(&c.unsentCount)) }

func parseEndpoint(addr net.Addr) wire.Endpoint {
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return wire.NullEndpoint
	}
	var port uint16
	fmt.Sscanf(portStr, "%d", &port)
	return wire.Endpoint{Address: host, Port: port}
}

// Connect dials target (host:port form) with a hard 15-second timeout. On
// success it applies the Nagle option, registers with the registry, and
// starts the read loop. On timeout or error the attempt is reported false.
func (c *Connection) Connect(ctx context.Context, target string) bool {
	c.setState(StateConnecting)
	dialCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp4", target)
	if err != nil {
		corelog.Warnf("tcp: connect to %s: %v: %v", target, ErrConnectFailed, err)
		c.setState(StateClosed)
		return false
	}
	c.adopt(conn)
	return true
}

// adopt finalizes a newly-open socket (dialed or accepted): applies the
// Nagle option, fills in endpoints, registers, and starts the read loop.
func (c *Connection) adopt(conn net.Conn) {
	c.conn = conn
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(c.cfg.SendOption == NagleOff)
	}
	c.remote = parseEndpoint(conn.RemoteAddr())
	c.local = parseEndpoint(conn.LocalAddr())
	c.setState(StateOpen)
	if c.registry != nil {
		c.registry.add(c)
	}
	go c.readLoop()
}

// AttachAccepted adopts a socket that the server's acceptor already opened.
func (c *Connection) AttachAccepted(conn net.Conn) { c.adopt(conn) }

// readLoop is the self-driving framed read loop.
// A dedicated goroutine per connection is, by construction, already a
// single-threaded executor for reads; the Strand separately serializes the
// async writes posted by SendAsync. Reads are not serialized against writes.
func (c *Connection) readLoop() {
	chunk := c.cfg.MinAmountToRead
	var accumulated []byte

	for {
		if c.closing.Load() {
			c.teardown()
			return
		}
		buf := make([]byte, chunk)
		n, err := readFull(c.conn, buf)
		if err != nil {
			if !c.closing.Load() {
				c.deregisterOnError()
			}
			c.teardown()
			return
		}
		if n != chunk {
			// short read: reset the frame accumulator and restart framing.
			accumulated = nil
			chunk = c.cfg.MinAmountToRead
			continue
		}

		accumulated = append(accumulated, buf...)

		left, err := c.cfg.BytesLeftToRead(accumulated)
		if err != nil {
			// framing error: drop the frame, resync on the next header.
			accumulated = nil
			chunk = c.cfg.MinAmountToRead
			continue
		}
		if left == 0 {
			if c.cfg.OnMessage != nil {
				if err := c.cfg.OnMessage(accumulated); err != nil {
					corelog.Warnf("tcp: on-message handler error: %v", err)
				}
			}
			accumulated = nil
			chunk = c.cfg.MinAmountToRead
			continue
		}
		chunk = left
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (c *Connection) deregisterOnError() {
	if c.registry != nil {
		c.registry.remove(c)
	}
}

func (c *Connection) teardown() {
	c.setState(StateClosed)
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.closedEvent.Signal()
}

// SendSync writes data synchronously with a single write call, returning
// whether the full buffer was written. A partial or failed write triggers
// self-deregistration from the registry.
func (c *Connection) SendSync(data []byte) bool {
	if !c.IsOpen() {
		corelog.Warnf("tcp: send sync: %v", ErrNotConnected)
		return false
	}
	n, err := c.conn.Write(data)
	if err != nil || n != len(data) {
		if err != nil {
			corelog.Warnf("tcp: send sync: %v: %v", ErrConnectionClosed, err)
		}
		c.deregisterOnError()
		return false
	}
	return true
}

// SendAsync borrows a send-buffer-pool slot (or allocates, per the pool's
// configuration), and posts the write onto the connection's strand. It
// returns false without attempting the send if the pool is saturated or the
// max-unsent-async cap is reached.
func (c *Connection) SendAsync(data []byte) bool {
	if !c.IsOpen() {
		corelog.Warnf("tcp: send async: %v", ErrNotConnected)
		return false
	}
	if !c.unsentAsync.TryAcquire(1) {
		corelog.Warnf("tcp: send async: %v: unsent-async cap reached", ErrBackpressure)
		return false
	}
	slot, buf, ok := c.sendPool.Acquire(data)
	if !ok {
		c.unsentAsync.Release(1)
		corelog.Warnf("tcp: send async: %v: send-buffer pool exhausted", ErrBackpressure)
		return false
	}
	atomic.AddInt64(&c.unsentCount, 1)

	c.strand.Post(func() {
		defer func() {
			c.sendPool.Release(slot)
			c.unsentAsync.Release(1)
			atomic.AddInt64(&c.unsentCount, -1)
		}()
		if !c.IsOpen() {
			return
		}
		n, err := c.conn.Write(buf)
		if err != nil || n != len(buf) {
			if err != nil {
				corelog.Warnf("tcp: send async: %v: %v", ErrConnectionClosed, err)
			}
			c.deregisterOnError()
		}
	})
	return true
}

// Close sets the closing flag, deregisters from the registry, shuts the
// socket down via the strand, and waits on the closed event. Idempotent.
func (c *Connection) Close() {
	if !c.closing.CompareAndSwap(false, true) {
		c.closedEvent.Wait()
		return
	}
	c.setState(StateClosing)
	if c.registry != nil {
		c.registry.remove(c)
	}
	c.strand.Post(func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
	c.closedEvent.Wait()
}
