// Package api defines the wire messages and Connect bindings of the
// budgetwise RPC services. Messages are plain Go structs carried by a JSON
// codec, so handlers and clients are built directly on connect's generic
// unary constructors.
package api

import (
	"encoding/json"
	"fmt"
)

// CodecName is the codec's content subtype (application/json).
const CodecName = "json"

// Codec marshals messages with encoding/json. It replaces connect's default
// protojson codec, which only handles generated protobuf types.
type Codec struct{}

func (Codec) Name() string { return CodecName }

func (Codec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("api: marshal %T: %w", msg, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("api: unmarshal %T: %w", msg, err)
	}
	return nil
}
