package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type sample struct {
	ID      string    `msgpack:"id" cbor:"id"`
	Score   float64   `msgpack:"score" cbor:"score"`
	Tags    []string  `msgpack:"tags" cbor:"tags"`
	Created time.Time `msgpack:"created" cbor:"created"`
}

func TestStructCodecs(t *testing.T) {
	in := sample{ID: "s1", Score: 9.5, Tags: []string{"a", "b"}, Created: time.Unix(1700000000, 0).UTC()}

	for _, c := range []Codec{Msgpack{}, MustCBOR(false), MustCBOR(true)} {
		t.Run(c.Name(), func(t *testing.T) {
			b, err := c.Marshal(in)
			require.NoError(t, err)

			var out sample
			require.NoError(t, c.Unmarshal(b, &out))
			assert.Equal(t, in.ID, out.ID)
			assert.Equal(t, in.Score, out.Score)
			assert.Equal(t, in.Tags, out.Tags)
			assert.True(t, in.Created.Equal(out.Created))
		})
	}
}

func TestMalformedPayload(t *testing.T) {
	var out sample
	assert.Error(t, Msgpack{}.Unmarshal([]byte{0xc1}, &out))
	assert.Error(t, MustCBOR(false).Unmarshal([]byte{0xff, 0x00}, &out))
}

func TestProtobuf(t *testing.T) {
	c := Protobuf{}
	b, err := c.Marshal(wrapperspb.String("hello"))
	require.NoError(t, err)

	// direct message
	var m wrapperspb.StringValue
	require.NoError(t, c.Unmarshal(b, &m))
	assert.Equal(t, "hello", m.GetValue())

	// pointer to nil message pointer is allocated
	var pm *wrapperspb.StringValue
	require.NoError(t, c.Unmarshal(b, &pm))
	require.NotNil(t, pm)
	assert.Equal(t, "hello", pm.GetValue())

	_, err = c.Marshal(sample{})
	assert.Error(t, err)
	assert.Error(t, c.Unmarshal(b, &sample{}))
}

func TestLimit(t *testing.T) {
	c := Limit{Inner: Msgpack{}, MaxDecode: 4}
	b, err := c.Marshal("a long string value")
	require.NoError(t, err)

	var s string
	assert.ErrorContains(t, c.Unmarshal(b, &s), "payload too large")

	assert.ErrorIs(t, c.Unmarshal(b, &s), ErrTooLarge)

	unlimited := Limit{Inner: Msgpack{}}
	require.NoError(t, unlimited.Unmarshal(b, &s))
	assert.Equal(t, "a long string value", s)

	_, err = Limit{Inner: Msgpack{}, MaxEncode: 4}.Marshal("a long string value")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestByName(t *testing.T) {
	for _, name := range []string{"", "msgpack", "cbor", "cbor-deterministic", "protobuf"} {
		c, ok := ByName(name)
		assert.True(t, ok, name)
		assert.NotNil(t, c)
	}
	_, ok := ByName("json")
	assert.False(t, ok)
	assert.Equal(t, "msgpack", Default().Name())

	det, _ := ByName("cbor-deterministic")
	assert.Equal(t, "cbor-deterministic", det.Name())
}
