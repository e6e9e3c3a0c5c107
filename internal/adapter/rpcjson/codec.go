// Package rpcjson registers a JSON codec with gRPC so services can be described
// with plain Go structs instead of generated protobuf types.
package rpcjson

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// Name is the content subtype clients select with grpc.CallContentSubtype.
const Name = "json"

type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpcjson marshal %T: %w", v, err)
	}
	return b, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpcjson unmarshal %T: %w", v, err)
	}
	return nil
}

func (Codec) Name() string { return Name }

func init() {
	encoding.RegisterCodec(Codec{})
}
