package codec

import (
	"errors"
	"fmt"
)

var ErrTooLarge = errors.New("codec: payload too large")

// Limit bounds payload sizes around another codec. A cache shared with other
// writers can hold anything, so MaxDecode rejects oversized entries before
// Inner sees them; MaxEncode keeps this process from writing entries the
// backend would refuse (memcached's 1MB item limit, for example).
// A limit <= 0 disables that side.
type Limit struct {
	Inner     Codec
	MaxDecode int
	MaxEncode int
}

var _ Codec = Limit{}

func (c Limit) Name() string { return c.Inner.Name() }

func (c Limit) Marshal(v any) ([]byte, error) {
	b, err := c.Inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	if c.MaxEncode > 0 && len(b) > c.MaxEncode {
		return nil, fmt.Errorf("%w: encoded %d > %d", ErrTooLarge, len(b), c.MaxEncode)
	}
	return b, nil
}

func (c Limit) Unmarshal(b []byte, v any) error {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		return fmt.Errorf("%w: %d > %d", ErrTooLarge, len(b), c.MaxDecode)
	}
	return c.Inner.Unmarshal(b, v)
}
