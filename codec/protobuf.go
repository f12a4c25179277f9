package codec

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
)

// Protobuf serializes generated protobuf messages. Entities must be pointers
// to generated message types (e.g. *pb.User).
type Protobuf struct{}

var _ Codec = Protobuf{}

func (Protobuf) Name() string { return "protobuf" }

func (Protobuf) Marshal(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("codec: protobuf: %T is not a proto.Message", v)
	}
	return proto.Marshal(m)
}

// Unmarshal accepts either a message or a pointer to a (possibly nil) message
// pointer, which is what decoding into a *T with T = *pb.Msg produces.
func (Protobuf) Unmarshal(b []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(b, m)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Kind() == reflect.Pointer {
		inner := rv.Elem()
		if inner.IsNil() {
			inner.Set(reflect.New(inner.Type().Elem()))
		}
		if m, ok := inner.Interface().(proto.Message); ok {
			return proto.Unmarshal(b, m)
		}
	}
	return fmt.Errorf("codec: protobuf: %T is not a proto.Message", v)
}
