package merchant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoMerchant)

	ctx := WithMerchant(context.Background(), &Merchant{Store: "shop-1", UserID: "u-1"})
	m, err := FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "shop-1", m.Store)
	assert.Equal(t, "u-1", MustFromContext(ctx).UserID)
}

func TestMustFromContextPanics(t *testing.T) {
	assert.Panics(t, func() { MustFromContext(context.Background()) })
}
