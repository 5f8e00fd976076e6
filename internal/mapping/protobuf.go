package mapping

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/NoxZet/Restful/internal/resource"
)

// ProtobufMapper encodes trees as a binary google.protobuf.Value.
//
// Struct fields are unordered on the wire: decoded mappings come back with
// sorted keys and every number as float64. Pretty printing does not apply.
type ProtobufMapper struct{}

func (ProtobufMapper) Stringify(v *resource.Value, _ bool) ([]byte, error) {
	pv, err := structpb.NewValue(v.Native())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMapping, err)
	}
	out, err := proto.MarshalOptions{Deterministic: true}.Marshal(pv)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMapping, err)
	}
	return out, nil
}

func (ProtobufMapper) Parse(data []byte) (*resource.Value, error) {
	var pv structpb.Value
	if err := proto.Unmarshal(data, &pv); err != nil {
		return nil, &DocumentError{Format: "protobuf", Message: err.Error()}
	}
	v, err := resource.FromNative(pv.AsInterface())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMapping, err)
	}
	return v, nil
}
