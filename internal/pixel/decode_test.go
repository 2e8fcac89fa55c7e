package pixel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"name":"product_viewed","data":{"product_id":"p1","product_price":50}}`))
	require.NoError(t, err)
	assert.Equal(t, ProductViewed, ev.Name)
	assert.Equal(t, "p1", ev.Data["product_id"])
	assert.Equal(t, float64(50), ev.Data["product_price"])
}

func TestDecodeEvent_MissingDataIsEmpty(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"name":"page_viewed"}`))
	require.NoError(t, err)
	assert.NotNil(t, ev.Data)
	assert.Empty(t, ev.Data)
}

func TestDecodeEvent_UnknownNameAccepted(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"name":"unknown_custom_event","data":{}}`))
	require.NoError(t, err)
	assert.False(t, ev.Name.Known())
}

func TestDecodeEvent_Invalid(t *testing.T) {
	cases := map[string]string{
		"not json":     `{"name":`,
		"missing name": `{"data":{}}`,
		"empty name":   `{"name":""}`,
		"numeric name": `{"name":42}`,
		"array data":   `{"name":"page_viewed","data":[1,2]}`,
	}
	for label, raw := range cases {
		t.Run(label, func(t *testing.T) {
			_, err := DecodeEvent([]byte(raw))
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}
