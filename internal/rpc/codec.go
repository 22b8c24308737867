// Package rpc exposes target selection over gRPC. Messages travel in the
// protobuf wire layouts of internal/wire through a registered codec, so no
// generated stubs are needed.
package rpc

import (
	"fmt"

	"google.golang.org/grpc/encoding"

	"github.com/banshee-data/nextobject/internal/wire"
)

// CodecName is the content-subtype clients must request.
const CodecName = "nextwire"

type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wire.Message)
	if !ok {
		return nil, fmt.Errorf("%s: cannot marshal %T", CodecName, v)
	}
	return wire.Marshal(m), nil
}

func (codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wire.Message)
	if !ok {
		return fmt.Errorf("%s: cannot unmarshal into %T", CodecName, v)
	}
	return m.UnmarshalWire(data)
}

func (codec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(codec{})
}
