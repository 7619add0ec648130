package flowpb

import (
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// jsonCodec serializes flowpb messages as JSON over the wire instead of
// binary protobuf, since the message types here are hand-written structs
// rather than protoc-generated proto.Message implementations. It is
// registered under its own name, "flowpb-json"; DialCodecOption and
// ServerCodecOption force it on client and server connections.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return "flowpb-json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// DialCodecOption forces client connections to use flowpb's JSON codec
// instead of grpc's default binary-protobuf codec.
func DialCodecOption() grpc.DialOption {
	return grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{}))
}

// ServerCodecOption forces the server to use flowpb's JSON codec.
func ServerCodecOption() grpc.ServerOption {
	return grpc.ForceServerCodec(jsonCodec{})
}
