// Package harnessrpc is the controller-to-tester transport: a hand-written
// gRPC service (internal/harness/harnessrpc.ServiceDesc) carrying the four
// lifecycle phases plus Assign/Stop, using a JSON wire codec instead of
// protobuf so the harness ships real gRPC framing, flow control, and
// deadline propagation without a protoc build step. See DESIGN.md's A6
// entry for why: every cross-process interface in the teacher codebase runs
// over grpc, and this keeps that idiom without inventing a fake transport.
package harnessrpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is negotiated via grpc.CallContentSubtype/grpc's content-type
// header; every client and server in this package must agree on it.
const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec implements encoding.Codec by delegating straight to
// encoding/json, so every message type in this package is a plain Go struct
// with no generated marshalling code.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}
