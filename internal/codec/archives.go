package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"
	"encoding/xml"
	"fmt"

	"github.com/dac1976/corelib-go/internal/wire"
)

// BinaryCodec implements the "binary" archive tag via encoding/gob.
//
// Grounded on internal/runtime/remote/jsoncodec.go's shape (a zero-field
// struct implementing the Codec interface via a single stdlib package).
type BinaryCodec struct{}

func (BinaryCodec) ArchiveType() wire.ArchiveType { return wire.ArchiveBinary }

func (BinaryCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (BinaryCodec) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// PortableBinaryCodec implements the "portableBinary" archive tag. Per
// an earlier open-question decision, this reuses encoding/gob: portable binary
// only requires round-trip fidelity under a single codec, not a pinned
// external byte format.
type PortableBinaryCodec struct{}

func (PortableBinaryCodec) ArchiveType() wire.ArchiveType { return wire.ArchivePortableBinary }

func (PortableBinaryCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (PortableBinaryCodec) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// TextCodec implements the "text" archive tag via encoding/json, directly
// grounded on internal/runtime/remote/jsoncodec.go.
type TextCodec struct{}

func (TextCodec) ArchiveType() wire.ArchiveType { return wire.ArchiveText }

func (TextCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (TextCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// XMLCodec implements the "xml" archive tag via encoding/xml.
type XMLCodec struct{}

func (XMLCodec) ArchiveType() wire.ArchiveType { return wire.ArchiveXML }

func (XMLCodec) Marshal(v any) ([]byte, error) { return xml.Marshal(v) }

func (XMLCodec) Unmarshal(data []byte, v any) error { return xml.Unmarshal(data, v) }

// RawCodec implements the "raw" archive tag: the payload is the plain
// memory image of a fixed-size value, via encoding/binary. By convention,
// cross-architecture portability of raw bodies is the caller's
// responsibility; this codec only requires the value be fixed-size.
type RawCodec struct{}

func (RawCodec) ArchiveType() wire.ArchiveType { return wire.ArchiveRaw }

func (RawCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return nil, fmt.Errorf("%w: %v", wire.ErrArchiveTypeInvalid, err)
	}
	return buf.Bytes(), nil
}

func (RawCodec) Unmarshal(data []byte, v any) error {
	return binary.Read(bytes.NewReader(data), binary.LittleEndian, v)
}
