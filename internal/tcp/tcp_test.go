package tcp

import (
	"context"
	"testing"
	"time"

	"github.com/dac1976/corelib-go/internal/codec"
	"github.com/dac1976/corelib-go/internal/reactor"
	"github.com/dac1976/corelib-go/internal/wire"
)

func TestTCPEchoRoundTrip(t *testing.T) {
	pool := reactor.NewPool(4)
	defer pool.Close()

	b, err := codec.NewBuilder("", nil)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	type payload struct {
		Name string
		Data []float64
	}

	serverDone := make(chan wire.ReceivedMessage, 1)
	serverRegistry := NewConnectionRegistry()
	server := &Server{}
	h, err := codec.NewHandler("", func(m wire.ReceivedMessage) {
		// Echo a body-less message of the same id back to the response
		// endpoint. server.ListenPort() is only read once the acceptor is
		// open, which happens before any client can connect.
		fallback := wire.Endpoint{Address: "0.0.0.0", Port: server.ListenPort()}
		reply, buildErr := b.BuildHeaderOnly(wire.ArchiveRaw, m.Header.MessageID, wire.NullEndpoint, fallback)
		if buildErr != nil {
			t.Errorf("BuildHeaderOnly: %v", buildErr)
			return
		}
		serverRegistry.SendAsync(m.Header.ResponseEndpoint(), reply)
		serverDone <- m
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	serverCfg := Config{
		MinAmountToRead: wire.HeaderSize,
		BytesLeftToRead: h.BytesLeftToRead,
		OnMessage:       h.OnMessage,
	}
	*server = *NewServer(pool, serverRegistry, serverCfg)

	if err := server.OpenAcceptor(0); err != nil {
		t.Fatalf("OpenAcceptor: %v", err)
	}
	defer server.CloseAcceptor()
	fallback := wire.Endpoint{Address: "0.0.0.0", Port: server.ListenPort()}

	clientDone := make(chan wire.ReceivedMessage, 1)
	clientH, err := codec.NewHandler("", func(m wire.ReceivedMessage) { clientDone <- m })
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	clientRegistry := NewConnectionRegistry()
	clientConn := NewConnection(pool, clientRegistry, Config{
		MinAmountToRead: wire.HeaderSize,
		BytesLeftToRead: clientH.BytesLeftToRead,
		OnMessage:       clientH.OnMessage,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	target := wire.Endpoint{Address: "127.0.0.1", Port: server.ListenPort()}
	if !clientConn.Connect(ctx, target.String()) {
		t.Fatal("client failed to connect")
	}
	defer clientConn.Close()

	in := payload{Name: "X", Data: []float64{1.0, 2.0}}
	frame, err := b.Build(in, wire.ArchiveText, 666, wire.NullEndpoint, clientConn.LocalEndpoint())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !clientConn.SendSync(frame) {
		t.Fatal("client send failed")
	}

	select {
	case m := <-serverDone:
		var out payload
		if err := b.Deserialize(m.Body, wire.ArchiveText, &out); err != nil {
			t.Fatalf("server Deserialize: %v", err)
		}
		if out.Name != in.Name || len(out.Data) != 2 {
			t.Fatalf("server observed wrong body: %+v", out)
		}
		if m.Header.MessageID != 666 {
			t.Fatalf("expected message id 666, got %d", m.Header.MessageID)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not observe the client's message")
	}

	select {
	case m := <-clientDone:
		if m.Header.MessageID != 666 {
			t.Fatalf("expected echoed id 666, got %d", m.Header.MessageID)
		}
		if m.Header.ResponseEndpoint() != fallback {
			t.Fatalf("expected response endpoint %v, got %v", fallback, m.Header.ResponseEndpoint())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("client did not observe the server's echo")
	}
}

func TestTCPBroadcastToAllClients(t *testing.T) {
	pool := reactor.NewPool(4)
	defer pool.Close()

	b, err := codec.NewBuilder("", nil)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	registry := NewConnectionRegistry()
	server := NewServer(pool, registry, Config{MinAmountToRead: wire.HeaderSize})
	if err := server.OpenAcceptor(0); err != nil {
		t.Fatalf("OpenAcceptor: %v", err)
	}
	defer server.CloseAcceptor()

	results := make(chan wire.ReceivedMessage, 2)
	makeClient := func() *Connection {
		h, err := codec.NewHandler("", func(m wire.ReceivedMessage) { results <- m })
		if err != nil {
			t.Fatalf("NewHandler: %v", err)
		}
		c := NewConnection(pool, NewConnectionRegistry(), Config{
			MinAmountToRead: wire.HeaderSize,
			BytesLeftToRead: h.BytesLeftToRead,
			OnMessage:       h.OnMessage,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		target := wire.Endpoint{Address: "127.0.0.1", Port: server.ListenPort()}
		if !c.Connect(ctx, target.String()) {
			t.Fatal("client failed to connect")
		}
		return c
	}

	c1 := makeClient()
	defer c1.Close()
	c2 := makeClient()
	defer c2.Close()

	// Give the acceptor a moment to register both connections before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for registry.Size() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if registry.Size() != 2 {
		t.Fatalf("expected 2 registered connections, got %d", registry.Size())
	}

	frame, err := b.BuildHeaderOnly(wire.ArchiveRaw, 42, wire.NullEndpoint, wire.Endpoint{Address: "0.0.0.0", Port: server.ListenPort()})
	if err != nil {
		t.Fatalf("BuildHeaderOnly: %v", err)
	}
	server.SendToAllClients(frame)

	seen := 0
	for seen < 2 {
		select {
		case m := <-results:
			if m.Header.MessageID != 42 {
				t.Fatalf("expected id 42, got %d", m.Header.MessageID)
			}
			wantResp := wire.Endpoint{Address: "0.0.0.0", Port: server.ListenPort()}
			if m.Header.ResponseEndpoint() != wantResp {
				t.Fatalf("expected response endpoint %v, got %v", wantResp, m.Header.ResponseEndpoint())
			}
			seen++
		case <-time.After(3 * time.Second):
			t.Fatalf("only observed %d/2 broadcasts", seen)
		}
	}
}
