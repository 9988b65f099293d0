package asio

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dac1976/corelib-go/internal/wire"
)

type echoPayload struct {
	Name string
	Data []float64
}

// TestTypedTCPEchoRoundTrip exercises the echo round trip through the public
// facade surface rather than internal/tcp directly.
func TestTypedTCPEchoRoundTrip(t *testing.T) {
	pool := NewReactorPool(2)
	defer pool.Close()

	server := &TypedTCPServer{}
	serverSeen := make(chan echoPayload, 1)
	built, err := NewTypedTCPServer(pool, TCPServerConfig{
		ArchiveType: ArchiveBinary,
		Dispatcher: func(m wire.ReceivedMessage) {
			var in echoPayload
			if err := server.Deserialize(m.Body, ArchiveBinary, &in); err != nil {
				t.Errorf("server Deserialize: %v", err)
				return
			}
			serverSeen <- in
			server.SendToClient(m.Header.ResponseEndpoint(), in, m.Header.MessageID, wire.NullEndpoint)
		},
	})
	if err != nil {
		t.Fatalf("NewTypedTCPServer: %v", err)
	}
	*server = *built

	if err := server.OpenAcceptor(0); err != nil {
		t.Fatalf("OpenAcceptor: %v", err)
	}
	defer server.CloseAcceptor()

	clientReceived := make(chan wire.ReceivedMessage, 1)
	client, err := NewTypedTCPClient(pool, fmt.Sprintf("127.0.0.1:%d", server.ListenPort()), TCPClientConfig{
		ArchiveType: ArchiveBinary,
		Dispatcher:  func(m wire.ReceivedMessage) { clientReceived <- m },
	})
	if err != nil {
		t.Fatalf("NewTypedTCPClient: %v", err)
	}
	defer client.Close()

	in := echoPayload{Name: "X", Data: []float64{1.0, 2.0}}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if !client.SendSync(ctx, in, 666, wire.NullEndpoint) {
		t.Fatal("SendSync returned false")
	}

	select {
	case got := <-serverSeen:
		if got.Name != in.Name || len(got.Data) != len(in.Data) {
			t.Fatalf("server observed wrong body: %+v", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not observe the client's message")
	}

	select {
	case m := <-clientReceived:
		if m.Header.MessageID != 666 {
			t.Fatalf("expected echoed id 666, got %d", m.Header.MessageID)
		}
		var out echoPayload
		if err := client.Deserialize(m.Body, ArchiveBinary, &out); err != nil {
			t.Fatalf("client Deserialize: %v", err)
		}
		if out.Name != in.Name || len(out.Data) != len(in.Data) {
			t.Fatalf("client observed wrong echoed body: %+v", out)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("client did not observe the server's echo")
	}
}

// TestTypedUDPUnicastRoundTrip exercises a unicast round trip through the
// public facade surface.
func TestTypedUDPUnicastRoundTrip(t *testing.T) {
	received := make(chan wire.ReceivedMessage, 1)
	recv, err := NewTypedUDPReceiver(TypedUDPReceiverConfig{
		Port:       22223,
		Option:     UDPUnicast,
		Dispatcher: func(m wire.ReceivedMessage) { received <- m },
	})
	if err != nil {
		t.Skipf("UDP receiver unavailable in this sandbox: %v", err)
	}
	defer recv.Close()

	sender, err := NewTypedUDPSender(TypedUDPSenderConfig{
		ArchiveType: ArchiveText,
		Target:      wire.Endpoint{Address: "127.0.0.1", Port: 22223},
		Option:      UDPUnicast,
	})
	if err != nil {
		t.Fatalf("NewTypedUDPSender: %v", err)
	}
	defer sender.Close()

	in := echoPayload{Name: "unicast", Data: []float64{3.5}}
	if !sender.Send(in, 7, wire.NullEndpoint) {
		t.Fatal("Send returned false")
	}

	select {
	case m := <-received:
		if m.Header.MessageID != 7 {
			t.Fatalf("expected id 7, got %d", m.Header.MessageID)
		}
	case <-time.After(2 * time.Second):
		t.Skip("UDP delivery not observed in this sandbox (environment-dependent)")
	}
}

// TestSimpleMulticastSenderReceiver exercises loopback delivery through the
// Simple* facades, exercising the private-pool dispatch path.
func TestSimpleMulticastSenderReceiver(t *testing.T) {
	received := make(chan wire.ReceivedMessage, 1)
	recv, err := NewSimpleMulticastReceiver(TypedMulticastReceiverConfig{
		Port:       19191,
		Group:      "226.0.0.1",
		Dispatcher: func(m wire.ReceivedMessage) { received <- m },
	})
	if err != nil {
		t.Skipf("multicast receiver unavailable in this sandbox: %v", err)
	}
	defer recv.Close()

	sender, err := NewSimpleMulticastSender(TypedMulticastSenderConfig{
		ArchiveType:    ArchiveBinary,
		Group:          wire.Endpoint{Address: "226.0.0.1", Port: 19191},
		EnableLoopback: true,
		TTL:            TTLSameSubnet,
	})
	if err != nil {
		t.Skipf("multicast sender unavailable in this sandbox: %v", err)
	}
	defer sender.Close()

	in := echoPayload{Name: "mcast", Data: []float64{1, 2, 3}}
	deadline := time.After(3 * time.Second)
	for {
		if sender.Send(in, 1, wire.NullEndpoint) {
			break
		}
		select {
		case <-deadline:
			t.Skip("multicast send did not succeed in this sandbox")
		case <-time.After(50 * time.Millisecond):
		}
	}

	select {
	case <-received:
	case <-time.After(3 * time.Second):
		t.Skip("multicast loopback delivery not observed in this sandbox (environment-dependent)")
	}
}
