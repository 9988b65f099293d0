// Package wire defines the on-the-wire message framing shared by every
// transport in this module: the fixed 43-byte MessageHeader, the textual
// IPv4 Endpoint pair, and the archive-type tag set.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// MagicStringLen is the fixed field width of MessageHeader.MagicString.
	MagicStringLen = 16
	// ResponseAddressLen is the fixed field width of MessageHeader.ResponseAddress.
	ResponseAddressLen = 16
	// HeaderSize is the exact wire size of MessageHeader: 16+16+2+4+1+4.
	HeaderSize = MagicStringLen + ResponseAddressLen + 2 + 4 + 1 + 4

	// DefaultMagicString is used when a caller does not configure one.
	DefaultMagicString = "_BEGIN_MESSAGE_"

	// UDPDatagramMaxSize is the largest IPv4 UDP payload the OS will carry.
	UDPDatagramMaxSize = 65507
	// DefaultUDPBufSize is the default SO_RCVBUF applied to UDP receiver
	// sockets; it is independent of the receive scratch buffer, which must
	// be sized to UDPDatagramMaxSize to avoid truncating large datagrams.
	DefaultUDPBufSize = 8192
)

// ArchiveType tags the body serialization format of a frame.
type ArchiveType uint8

const (
	ArchivePortableBinary ArchiveType = iota
	ArchiveBinary
	ArchiveText
	ArchiveXML
	ArchiveRaw
)

func (a ArchiveType) String() string {
	switch a {
	case ArchivePortableBinary:
		return "portableBinary"
	case ArchiveBinary:
		return "binary"
	case ArchiveText:
		return "text"
	case ArchiveXML:
		return "xml"
	case ArchiveRaw:
		return "raw"
	default:
		return fmt.Sprintf("archiveType(%d)", uint8(a))
	}
}

var (
	ErrMagicStringTooLong = errors.New("wire: magic string too long")
	ErrAddressTooLong     = errors.New("wire: response address too long")
	ErrShortHeader        = errors.New("wire: fewer than header-size bytes available")
	ErrMagicMismatch      = errors.New("wire: magic string mismatch")
	ErrLengthMismatch     = errors.New("wire: total length shorter than accumulated bytes")
	ErrArchiveTypeInvalid = errors.New("wire: unknown archive type")
	ErrDatagramTooLarge   = errors.New("wire: frame exceeds UDP datagram limit")
)

// Endpoint is a textual IPv4 address and port pair, the Go analog of the
// original's std::pair<std::string, uint16_t> connection_t.
type Endpoint struct {
	Address string
	Port    uint16
}

// NullEndpoint is the designated "no endpoint" sentinel, equal to ("0.0.0.0", 0).
var NullEndpoint = Endpoint{Address: "0.0.0.0", Port: 0}

// IsNull reports whether e equals NullEndpoint.
func (e Endpoint) IsNull() bool { return e == NullEndpoint }

func (e Endpoint) String() string { return fmt.Sprintf("%s:%d", e.Address, e.Port) }

// MessageHeader is the fixed 43-byte binary frame header, bit-exact with the
// wire layout every transport in this module shares.
type MessageHeader struct {
	MagicString     [MagicStringLen]byte
	ResponseAddress [ResponseAddressLen]byte
	ResponsePort    uint16
	MessageID       uint32
	ArchiveType     ArchiveType
	TotalLength     uint32
}

// ReceivedMessage pairs a decoded header with its (possibly empty) body.
type ReceivedMessage struct {
	Header MessageHeader
	Body   []byte
}

func putFixedString(dst []byte, s string) error {
	if len(s) >= len(dst) {
		return fmt.Errorf("%w: %q", ErrMagicStringTooLong, s)
	}
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
	return nil
}

func getFixedString(src []byte) string {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		return string(src[:i])
	}
	return string(src)
}

// FillHeader builds a MessageHeader from its logical fields, NUL-padding the
// magic string and response address into their fixed-width fields.
func FillHeader(magicString string, archiveType ArchiveType, messageID uint32, responseAddress Endpoint) (MessageHeader, error) {
	var h MessageHeader
	if err := putFixedString(h.MagicString[:], magicString); err != nil {
		return MessageHeader{}, err
	}
	if len(responseAddress.Address) >= ResponseAddressLen {
		return MessageHeader{}, fmt.Errorf("%w: %q", ErrAddressTooLong, responseAddress.Address)
	}
	if err := putFixedString(h.ResponseAddress[:], responseAddress.Address); err != nil {
		return MessageHeader{}, fmt.Errorf("%w: %q", ErrAddressTooLong, responseAddress.Address)
	}
	h.ResponsePort = responseAddress.Port
	h.MessageID = messageID
	h.ArchiveType = archiveType
	h.TotalLength = uint32(HeaderSize)
	return h, nil
}

// ResponseEndpoint extracts the (address, port) pair carried by the header.
func (h MessageHeader) ResponseEndpoint() Endpoint {
	return Endpoint{Address: getFixedString(h.ResponseAddress[:]), Port: h.ResponsePort}
}

// MarshalBinary encodes h into its exact 43-byte wire representation.
func (h MessageHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	copy(buf[0:16], h.MagicString[:])
	copy(buf[16:32], h.ResponseAddress[:])
	binary.LittleEndian.PutUint16(buf[32:34], h.ResponsePort)
	binary.LittleEndian.PutUint32(buf[34:38], h.MessageID)
	buf[38] = byte(h.ArchiveType)
	binary.LittleEndian.PutUint32(buf[39:43], h.TotalLength)
	return buf, nil
}

// UnmarshalBinary decodes h from the first HeaderSize bytes of data. It
// returns ErrShortHeader if data is too small.
func (h *MessageHeader) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return ErrShortHeader
	}
	copy(h.MagicString[:], data[0:16])
	copy(h.ResponseAddress[:], data[16:32])
	h.ResponsePort = binary.LittleEndian.Uint16(data[32:34])
	h.MessageID = binary.LittleEndian.Uint32(data[34:38])
	h.ArchiveType = ArchiveType(data[38])
	h.TotalLength = binary.LittleEndian.Uint32(data[39:43])
	return nil
}
