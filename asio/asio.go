// Package asio is the public entry point of this module: thin facades
// binding a codec.Builder/Handler pair to a transport (TCP, UDP, or
// multicast), matching the "Typed/Simple wrappers" split used throughout this package.
//
// Grounded on original_source/Include/Asio/{UdpTypedSender,
// MulticastTypedSender, SimpleUdpSender, SimpleUdpReceiver,
// SimpleMulticastSender, SimpleMulticastReceiver}.h. The Typed TCP facades
// take an external reactor.Pool; the Typed UDP and multicast facades take no
// pool (receivers dispatch on their receive-loop goroutine); the "Simple"
// receivers own a private single-worker pool for dispatch.
package asio

import (
	"github.com/dac1976/corelib-go/internal/codec"
	"github.com/dac1976/corelib-go/internal/reactor"
	"github.com/dac1976/corelib-go/internal/wire"
)

// Endpoint re-exports wire.Endpoint for callers that only need the
// transport-agnostic facades in this package.
type Endpoint = wire.Endpoint

// ArchiveType re-exports wire.ArchiveType.
type ArchiveType = wire.ArchiveType

const (
	ArchivePortableBinary = wire.ArchivePortableBinary
	ArchiveBinary         = wire.ArchiveBinary
	ArchiveText           = wire.ArchiveText
	ArchiveXML            = wire.ArchiveXML
	ArchiveRaw            = wire.ArchiveRaw
)

// NullEndpoint is the designated "no endpoint" sentinel.
var NullEndpoint = wire.NullEndpoint

// ReceivedMessage re-exports wire.ReceivedMessage.
type ReceivedMessage = wire.ReceivedMessage

// Dispatcher is invoked for each fully framed message a facade receives.
type Dispatcher = codec.Dispatcher

// codecPipeline bundles the Builder/Handler pair every facade needs, so
// constructing a facade only requires a magic string and a dispatcher.
type codecPipeline struct {
	builder *codec.Builder
	handler *codec.Handler
}

func newCodecPipeline(magicString string, registry *codec.Registry, dispatch Dispatcher) (*codecPipeline, error) {
	b, err := codec.NewBuilder(magicString, registry)
	if err != nil {
		return nil, err
	}
	h, err := codec.NewHandler(magicString, dispatch)
	if err != nil {
		return nil, err
	}
	return &codecPipeline{builder: b, handler: h}, nil
}

// NewReactorPool starts a shared reactor pool with workers goroutines
// (workers <= 0 defaults to runtime.NumCPU()). Pass the result to
// NewTypedTCPServer and NewTypedTCPClient to share one reactor across TCP
// transports; the UDP and multicast facades take no pool.
func NewReactorPool(workers int) *reactor.Pool { return reactor.NewPool(workers) }
