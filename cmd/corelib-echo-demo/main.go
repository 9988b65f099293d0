// Command corelib-echo-demo exercises the TCP echo scenario end to end: it
// opens a TypedTCPServer that echoes every message it receives, connects a
// TypedTCPClient to it, sends one message, and prints the echoed reply.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dac1976/corelib-go/asio"
	"github.com/dac1976/corelib-go/internal/corelog"
	"github.com/dac1976/corelib-go/internal/wire"
)

type greeting struct {
	Name string
	Data []float64
}

var logLevels = map[string]corelog.Level{
	"debug":  corelog.LevelDebug,
	"info":   corelog.LevelInfo,
	"warn":   corelog.LevelWarn,
	"error":  corelog.LevelError,
	"silent": corelog.LevelSilent,
}

func main() {
	port := flag.Uint("port", 0, "TCP port to listen on (0 lets the OS choose)")
	messageID := flag.Uint("id", 666, "message id to send")
	timeout := flag.Duration("timeout", 5*time.Second, "deadline for the round trip")
	verbosity := flag.String("log-level", "info", "debug|info|warn|error|silent")
	flag.Parse()

	level, ok := logLevels[*verbosity]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown -log-level %q\n", *verbosity)
		os.Exit(2)
	}
	corelog.SetLevel(level)

	if err := run(uint16(*port), uint32(*messageID), *timeout); err != nil {
		corelog.Errorf("demo failed: %v", err)
		os.Exit(1)
	}
}

func run(port uint16, messageID uint32, timeout time.Duration) error {
	pool := asio.NewReactorPool(2)
	defer pool.Close()

	server := &asio.TypedTCPServer{}
	built, err := asio.NewTypedTCPServer(pool, asio.TCPServerConfig{
		ArchiveType: asio.ArchiveText,
		Dispatcher: func(m wire.ReceivedMessage) {
			var g greeting
			if err := server.Deserialize(m.Body, asio.ArchiveText, &g); err != nil {
				corelog.Warnf("server: decode failed: %v", err)
				return
			}
			server.SendToClient(m.Header.ResponseEndpoint(), g, m.Header.MessageID, wire.NullEndpoint)
		},
	})
	if err != nil {
		return fmt.Errorf("open server: %w", err)
	}
	*server = *built
	if err := server.OpenAcceptor(port); err != nil {
		return fmt.Errorf("open acceptor: %w", err)
	}
	defer server.CloseAcceptor()
	corelog.Infof("listening on 127.0.0.1:%d", server.ListenPort())

	replies := make(chan wire.ReceivedMessage, 1)
	client, err := asio.NewTypedTCPClient(pool, fmt.Sprintf("127.0.0.1:%d", server.ListenPort()), asio.TCPClientConfig{
		ArchiveType: asio.ArchiveText,
		Dispatcher:  func(m wire.ReceivedMessage) { replies <- m },
	})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer client.Close()

	in := greeting{Name: "corelib-echo-demo", Data: []float64{1, 2, 3}}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if !client.SendSync(ctx, in, messageID, wire.NullEndpoint) {
		return errors.New("send failed")
	}

	select {
	case m := <-replies:
		fmt.Printf("echoed message id=%d response=%s body=%s\n", m.Header.MessageID, m.Header.ResponseEndpoint(), m.Body)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for echo: %w", ctx.Err())
	}
}
