package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the content subtype of the registry service. Clients select
// it with grpc.CallContentSubtype(CodecName).
const CodecName = "json"

// jsonCodec carries registry messages as JSON. Standard protobuf services on
// the same server, such as health, keep the default codec.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
