package multicast

import (
	"testing"
	"time"

	"github.com/dac1976/corelib-go/internal/codec"
	"github.com/dac1976/corelib-go/internal/wire"
)

// TestMulticastLoopbackDelivery exercises loopback delivery: a receiver
// joins a multicast group on the default interface, a sender on the same
// group with loopback enabled delivers within a few seconds. Multicast
// routing is best-effort in CI sandboxes, so this test is tolerant of
// environments where the OS silently drops multicast traffic: it skips if
// the send never succeeds or delivery is not observed, and only asserts body
// equality if delivery happened within the generous deadline below.
func TestMulticastLoopbackDelivery(t *testing.T) {
	b, err := codec.NewBuilder("", nil)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	type sample struct {
		Value int
	}

	received := make(chan wire.ReceivedMessage, 1)
	h, err := codec.NewHandler("", func(m wire.ReceivedMessage) { received <- m })
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	const group = "226.0.0.1"
	const port = 19191

	recv, err := NewReceiver(port, group, "", h.BytesLeftToRead, h.OnMessage)
	if err != nil {
		t.Skipf("multicast receiver unavailable in this sandbox: %v", err)
	}
	defer recv.Close()

	sender, err := NewSender(wire.Endpoint{Address: group, Port: port}, "", true, TTLSameSubnet)
	if err != nil {
		t.Skipf("multicast sender unavailable in this sandbox: %v", err)
	}
	defer sender.Close()

	in := sample{Value: 42}
	frame, err := b.Build(in, wire.ArchiveBinary, 1, wire.NullEndpoint, wire.NullEndpoint)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		if sender.Send(frame) {
			break
		}
		select {
		case <-deadline:
			t.Skip("multicast send did not succeed in this sandbox")
		case <-time.After(50 * time.Millisecond):
		}
	}

	select {
	case m := <-received:
		var out sample
		if err := b.Deserialize(m.Body, wire.ArchiveBinary, &out); err != nil {
			t.Fatalf("Deserialize: %v", err)
		}
		if out.Value != in.Value {
			t.Fatalf("expected %+v, got %+v", in, out)
		}
	case <-time.After(3 * time.Second):
		t.Skip("multicast loopback delivery not observed in this sandbox (environment-dependent)")
	}
}

func TestTTLConstantsMatchSpec(t *testing.T) {
	cases := map[TTL]int{
		TTLSameHost:      0,
		TTLSameSubnet:    1,
		TTLSameSite:      32,
		TTLSameRegion:    64,
		TTLSameContinent: 128,
		TTLUnrestricted:  255,
	}
	for ttl, want := range cases {
		if int(ttl) != want {
			t.Fatalf("expected TTL %v to equal %d", ttl, want)
		}
	}
}
