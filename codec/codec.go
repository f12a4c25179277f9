// Package codec holds the payload serializers placed inside the cache envelope.
//
// Only compact binary formats live here. The envelope itself (magic + schema
// version) is written by cachekit; a Codec only handles the payload bytes.
package codec

// Codec marshals values to and from bytes. Unmarshal receives a non-nil pointer.
// Implementations must be safe for concurrent use.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, v any) error
}

// Default is the payload codec used when none is configured.
func Default() Codec { return Msgpack{} }

// ByName returns a codec for the names accepted in configuration files.
func ByName(name string) (Codec, bool) {
	switch name {
	case "", "msgpack":
		return Msgpack{}, true
	case "cbor":
		c, err := NewCBOR(false)
		if err != nil {
			return nil, false
		}
		return c, true
	case "cbor-deterministic":
		c, err := NewCBOR(true)
		if err != nil {
			return nil, false
		}
		return c, true
	case "protobuf":
		return Protobuf{}, true
	default:
		return nil, false
	}
}
