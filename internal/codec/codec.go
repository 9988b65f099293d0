// Package codec implements the pluggable body (de)serialization referenced
// by each transport — a small Codec interface keyed by wire.ArchiveType, plus
// the MessageHandler/Builder pipeline that fills headers, validates frames,
// and builds/deserializes complete messages.
package codec

import (
	"fmt"

	"github.com/dac1976/corelib-go/internal/wire"
)

// Codec marshals and unmarshals message bodies for one archive tag.
//
// Grounded on internal/runtime/remote/transport.go's Codec interface
// (Marshal/Unmarshal/ContentType), generalized here to report the
// wire.ArchiveType tag it serves instead of a MIME content type.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	ArchiveType() wire.ArchiveType
}

// Registry maps archive tags to the Codec that serves them.
type Registry struct {
	codecs map[wire.ArchiveType]Codec
}

// NewRegistry builds a Registry from the given codecs, keyed by their own
// ArchiveType().
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{codecs: make(map[wire.ArchiveType]Codec, len(codecs))}
	for _, c := range codecs {
		r.codecs[c.ArchiveType()] = c
	}
	return r
}

// DefaultRegistry returns a Registry with the five standard archive tags
// bound to their stdlib-backed codecs (see DESIGN.md for why each tag uses
// the standard library rather than a pack third-party serializer).
func DefaultRegistry() *Registry {
	return NewRegistry(
		PortableBinaryCodec{},
		BinaryCodec{},
		TextCodec{},
		XMLCodec{},
		RawCodec{},
	)
}

// Lookup returns the codec registered for tag, or
// wire.ErrArchiveTypeInvalid if none is registered.
func (r *Registry) Lookup(tag wire.ArchiveType) (Codec, error) {
	c, ok := r.codecs[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", wire.ErrArchiveTypeInvalid, tag)
	}
	return c, nil
}
