package cachekit

import (
	"errors"

	"github.com/unkn0wn-root/cachekit/codec"
	"github.com/unkn0wn-root/cachekit/internal/wire"
)

// Envelope frames encoded entities as magic | schema version | payload so
// that entries written by an incompatible build are rejected on read instead
// of being decoded into garbage.
type Envelope struct {
	codec   codec.Codec
	version uint32
}

func NewEnvelope(c codec.Codec, version uint32) Envelope {
	if c == nil {
		c = codec.Default()
	}
	return Envelope{codec: c, version: version}
}

func (e Envelope) Version() uint32    { return e.version }
func (e Envelope) Codec() codec.Codec { return e.codec }

func (e Envelope) Encode(v any) ([]byte, error) {
	payload, err := e.codec.Marshal(v)
	if err != nil {
		return nil, &Error{Kind: ErrSerialization, Op: "encode " + e.codec.Name(), Err: err}
	}
	return wire.Encode(e.version, payload), nil
}

// DecodeInto validates the header and unmarshals the payload into v.
func (e Envelope) DecodeInto(b []byte, v any) error {
	payload, err := wire.Decode(b, e.version)
	if err != nil {
		if errors.Is(err, wire.ErrVersion) {
			return &Error{Kind: ErrVersionMismatch, Op: "decode envelope", Err: err}
		}
		return &Error{Kind: ErrInvalidCacheEntry, Op: "decode envelope", Err: err}
	}
	if err := e.codec.Unmarshal(payload, v); err != nil {
		return &Error{Kind: ErrDeserialization, Op: "decode " + e.codec.Name(), Err: err}
	}
	return nil
}

// Decode is the typed form of Envelope.DecodeInto.
func Decode[T any](e Envelope, b []byte) (T, error) {
	var v T
	if err := e.DecodeInto(b, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}
