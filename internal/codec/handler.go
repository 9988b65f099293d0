package codec

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dac1976/corelib-go/internal/wire"
)

// Dispatcher receives a fully framed message once a transport's read loop
// has validated and split it from the accumulated byte stream.
//
// Grounded on internal/runtime/remote/transport.go's Handler type
// (func(Envelope) error), adapted to the wire.ReceivedMessage shape.
type Dispatcher func(wire.ReceivedMessage)

// Handler is not copyable by convention (hold it by pointer): its magic
// string and dispatcher are immutable for its lifetime, matching
// original_source/Include/Asio/MessageUtils.h's MessageHandler.
type Handler struct {
	magicString string
	dispatch    Dispatcher
}

// NewHandler constructs a Handler bound to magicString and dispatch. An
// empty magicString defaults to wire.DefaultMagicString.
func NewHandler(magicString string, dispatch Dispatcher) (*Handler, error) {
	if len(magicString) >= wire.MagicStringLen {
		return nil, fmt.Errorf("%w: %q", wire.ErrMagicStringTooLong, magicString)
	}
	if magicString == "" {
		magicString = wire.DefaultMagicString
	}
	if dispatch == nil {
		return nil, errors.New("codec: nil dispatcher")
	}
	return &Handler{magicString: magicString, dispatch: dispatch}, nil
}

// checkMessage parses and validates the header prefix of accumulated,
// returning the decoded header. It is the shared core of
// BytesLeftToRead and OnMessage, mirroring MessageHandler::CheckMessage.
func (h *Handler) checkMessage(accumulated []byte) (wire.MessageHeader, error) {
	var hdr wire.MessageHeader
	if len(accumulated) < wire.HeaderSize {
		return hdr, wire.ErrShortHeader
	}
	if err := hdr.UnmarshalBinary(accumulated[:wire.HeaderSize]); err != nil {
		return hdr, err
	}
	got := trimNUL(hdr.MagicString[:])
	if got != h.magicString {
		return hdr, fmt.Errorf("%w: got %q want %q", wire.ErrMagicMismatch, got, h.magicString)
	}
	if int(hdr.TotalLength) < len(accumulated) {
		return hdr, fmt.Errorf("%w: total_length=%d accumulated=%d", wire.ErrLengthMismatch, hdr.TotalLength, len(accumulated))
	}
	return hdr, nil
}

func trimNUL(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// BytesLeftToRead is the transport's framing predicate: given the bytes
// accumulated so far (at least wire.HeaderSize), it returns how many more
// bytes complete the current frame (0 meaning "deliver now"), or an error
// the caller treats as "reset accumulator".
func (h *Handler) BytesLeftToRead(accumulated []byte) (int, error) {
	hdr, err := h.checkMessage(accumulated)
	if err != nil {
		return 0, err
	}
	return int(hdr.TotalLength) - len(accumulated), nil
}

// OnMessage validates accumulated as a complete frame and delivers the
// decoded ReceivedMessage to the handler's dispatcher.
func (h *Handler) OnMessage(accumulated []byte) error {
	hdr, err := h.checkMessage(accumulated)
	if err != nil {
		return err
	}
	if int(hdr.TotalLength) != len(accumulated) {
		return fmt.Errorf("%w: total_length=%d accumulated=%d", wire.ErrLengthMismatch, hdr.TotalLength, len(accumulated))
	}
	body := append([]byte(nil), accumulated[wire.HeaderSize:]...)
	h.dispatch(wire.ReceivedMessage{Header: hdr, Body: body})
	return nil
}

// MagicString reports the magic string this handler validates against.
func (h *Handler) MagicString() string { return h.magicString }

// Builder constructs framed messages (header-only or header+body), applying
// the fallback-response-address substitution used when a sender omits one.
//
// Grounded on original_source/Include/Asio/MessageUtils.h's MessageBuilder
// and the free BuildMessage helpers.
type Builder struct {
	magicString string
	registry    *Registry
}

// NewBuilder constructs a Builder. An empty magicString defaults to
// wire.DefaultMagicString. A nil registry uses DefaultRegistry().
func NewBuilder(magicString string, registry *Registry) (*Builder, error) {
	if len(magicString) >= wire.MagicStringLen {
		return nil, fmt.Errorf("%w: %q", wire.ErrMagicStringTooLong, magicString)
	}
	if magicString == "" {
		magicString = wire.DefaultMagicString
	}
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Builder{magicString: magicString, registry: registry}, nil
}

// resolveResponseAddress implements the fallback policy: if requested is the
// null endpoint, fallback is used instead.
func resolveResponseAddress(requested, fallback wire.Endpoint) wire.Endpoint {
	if requested.IsNull() {
		return fallback
	}
	return requested
}

// BuildHeaderOnly returns a byte vector containing just the header.
func (b *Builder) BuildHeaderOnly(archiveType wire.ArchiveType, messageID uint32, responseAddress, fallbackResponseAddress wire.Endpoint) ([]byte, error) {
	addr := resolveResponseAddress(responseAddress, fallbackResponseAddress)
	hdr, err := wire.FillHeader(b.magicString, archiveType, messageID, addr)
	if err != nil {
		return nil, err
	}
	return hdr.MarshalBinary()
}

// Build serializes message with the codec registered for archiveType and
// concatenates the header and body bytes. An empty body is only valid for
// the raw archive type.
func (b *Builder) Build(message any, archiveType wire.ArchiveType, messageID uint32, responseAddress, fallbackResponseAddress wire.Endpoint) ([]byte, error) {
	c, err := b.registry.Lookup(archiveType)
	if err != nil {
		return nil, err
	}
	body, err := c.Marshal(message)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 && archiveType != wire.ArchiveRaw {
		return nil, fmt.Errorf("%w: empty body for archive %s", wire.ErrArchiveTypeInvalid, archiveType)
	}

	addr := resolveResponseAddress(responseAddress, fallbackResponseAddress)
	hdr, err := wire.FillHeader(b.magicString, archiveType, messageID, addr)
	if err != nil {
		return nil, err
	}
	hdr.TotalLength = uint32(wire.HeaderSize + len(body))

	headerBytes, err := hdr.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(headerBytes)+len(body))
	out = append(out, headerBytes...)
	out = append(out, body...)
	return out, nil
}

// Deserialize decodes body (the bytes following the header in a frame) into
// v using the codec registered for archiveType.
func (b *Builder) Deserialize(body []byte, archiveType wire.ArchiveType, v any) error {
	c, err := b.registry.Lookup(archiveType)
	if err != nil {
		return err
	}
	return c.Unmarshal(body, v)
}
