package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is magic(4) + version(4).
const HeaderSize = 4 + 4

var (
	ErrCorrupt = errors.New("cachekit: corrupt envelope")
	ErrVersion = errors.New("cachekit: envelope version mismatch")

	magic4 = [...]byte{'C', 'K', 'I', 'T'}
)

// Magic returns a copy of the envelope magic.
func Magic() [4]byte { return magic4 }

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Encode frames payload as: magic(4) | version(u32 be) | payload.
func Encode(version uint32, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(HeaderSize + len(payload))

	buf.Write(magic4[:])

	var u4 [4]byte
	binary.BigEndian.PutUint32(u4[:], version)
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// Decode validates the header against want and returns the payload.
// The returned payload aliases b.
func Decode(b []byte, want uint32) (payload []byte, err error) {
	if len(b) < HeaderSize || !hasMagic(b) {
		return nil, ErrCorrupt
	}
	if got := binary.BigEndian.Uint32(b[4:8]); got != want {
		return nil, &VersionError{Got: got, Want: want}
	}
	return b[HeaderSize:], nil
}

// Version reads the version field without validating it.
func Version(b []byte) (uint32, error) {
	if len(b) < HeaderSize || !hasMagic(b) {
		return 0, ErrCorrupt
	}
	return binary.BigEndian.Uint32(b[4:8]), nil
}

// VersionError reports the version found in a buffer that was otherwise well formed.
type VersionError struct {
	Got  uint32
	Want uint32
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("cachekit: envelope version %d, expected %d", e.Got, e.Want)
}

func (e *VersionError) Unwrap() error { return ErrVersion }
