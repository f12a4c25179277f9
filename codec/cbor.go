package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOR serializes payloads with fxamacker/cbor. Build it with NewCBOR or
// MustCBOR; the zero value has no modes and panics on use.
//
// Deterministic mode writes RFC 8949 core deterministic encoding and rejects
// duplicate map keys on decode, so equal values always yield equal bytes.
// Timestamps are written as RFC3339Nano in both modes.
type CBOR struct {
	enc           cbor.EncMode
	dec           cbor.DecMode
	deterministic bool
}

var _ Codec = CBOR{}

func NewCBOR(deterministic bool) (CBOR, error) {
	eo := cbor.PreferredUnsortedEncOptions()
	do := cbor.DecOptions{}
	if deterministic {
		eo = cbor.CoreDetEncOptions()
		do.DupMapKey = cbor.DupMapKeyEnforcedAPF
	}
	eo.Time = cbor.TimeRFC3339Nano

	em, err := eo.EncMode()
	if err != nil {
		return CBOR{}, err
	}
	dm, err := do.DecMode()
	if err != nil {
		return CBOR{}, err
	}
	return CBOR{enc: em, dec: dm, deterministic: deterministic}, nil
}

// MustCBOR panics if the options are rejected, which only happens if the
// library changes its option set.
func MustCBOR(deterministic bool) CBOR {
	c, err := NewCBOR(deterministic)
	if err != nil {
		panic(err)
	}
	return c
}

// Name matches the names accepted by ByName.
func (c CBOR) Name() string {
	if c.deterministic {
		return "cbor-deterministic"
	}
	return "cbor"
}

func (c CBOR) Marshal(v any) ([]byte, error) { return c.enc.Marshal(v) }

func (c CBOR) Unmarshal(b []byte, v any) error { return c.dec.Unmarshal(b, v) }
