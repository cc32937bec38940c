// Package rpcproto is the wire contract shared by the agent's RPC surface and
// the cluster's agent pool (spec §6's "Agent RPC surface"). There is no
// protoc toolchain available to this build, so method payloads are plain Go
// structs carried over a JSON grpc codec instead of generated protobuf
// messages; service registration uses a hand-built grpc.ServiceDesc rather
// than protoc-gen-go-grpc output. Health checks use the real, vendored
// grpc_health_v1 service instead of a bespoke RPC.
package rpcproto

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const CodecName = "json"

// jsonCodec implements encoding.Codec so grpc can marshal the plain request/
// response structs below without a .proto-generated message type.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
