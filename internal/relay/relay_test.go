package relay

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/FairForge/webpixels/internal/bridge"
	"github.com/FairForge/webpixels/internal/pixel"
	"github.com/FairForge/webpixels/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingSource struct {
	rec   *bridge.Recorder
	calls int
}

func (c *countingSource) Trackers(s pixel.Settings) map[pixel.Vendor]pixel.Tracker {
	c.calls++
	return c.rec.Trackers()
}

type failingStore struct {
	settings.Store
	err error
}

func (f failingStore) Get(context.Context, string) (*settings.Record, error) {
	return nil, f.err
}

// hookStore runs onGet after reading a record and before returning it.
type hookStore struct {
	settings.Store
	onGet func()
}

func (h *hookStore) Get(ctx context.Context, store string) (*settings.Record, error) {
	rec, err := h.Store.Get(ctx, store)
	if h.onGet != nil {
		fn := h.onGet
		h.onGet = nil
		fn()
	}
	return rec, err
}

type observed struct {
	outcomes []pixel.Outcome
}

func (o *observed) ObserveDispatch(_ pixel.Vendor, _ pixel.EventName, outcome pixel.Outcome) {
	o.outcomes = append(o.outcomes, outcome)
}

func seed(t *testing.T, ids map[string]string) *settings.MemoryStore {
	t.Helper()
	store := settings.NewMemoryStore()
	require.NoError(t, store.Create(context.Background(), &settings.Record{
		Store: "shop-1", PixelID: "px-1", Name: "Ads", Settings: ids,
	}))
	return store
}

var viewed = pixel.Event{
	Name: pixel.ProductViewed,
	Data: map[string]any{"product_id": "p1", "product_name": "Hat", "product_price": 10},
}

func TestRelay_Handle(t *testing.T) {
	store := seed(t, map[string]string{"facebook": "fb-1", "google": "G-1"})
	src := &countingSource{rec: bridge.NewRecorder()}
	r := New(store, src, zap.NewNop())

	sent, err := r.Handle(context.Background(), "shop-1", viewed)

	require.NoError(t, err)
	require.Len(t, sent, 2)
	assert.Equal(t, pixel.Facebook, sent[0].Vendor)
	assert.Equal(t, "ViewContent", sent[0].EventName)
	assert.Equal(t, pixel.Google, sent[1].Vendor)
	assert.Equal(t, "view_item", sent[1].EventName)
	assert.Len(t, src.rec.Calls(), 2)
}

func TestRelay_UnknownStore(t *testing.T) {
	src := &countingSource{rec: bridge.NewRecorder()}
	r := New(settings.NewMemoryStore(), src, zap.NewNop())

	sent, err := r.Handle(context.Background(), "nobody", viewed)

	require.NoError(t, err)
	assert.Empty(t, sent)
	assert.Empty(t, src.rec.Calls())
}

func TestRelay_StoreError(t *testing.T) {
	boom := errors.New("db down")
	r := New(failingStore{err: boom}, &countingSource{rec: bridge.NewRecorder()}, zap.NewNop())

	_, err := r.Handle(context.Background(), "shop-1", viewed)

	assert.ErrorIs(t, err, boom)
}

func TestRelay_CachesForwarder(t *testing.T) {
	store := seed(t, map[string]string{"tiktok": "tt-1"})
	src := &countingSource{rec: bridge.NewRecorder()}
	now := time.Unix(0, 0)
	r := New(store, src, zap.NewNop(), WithTTL(time.Minute))
	r.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := r.Handle(context.Background(), "shop-1", viewed)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, src.calls)

	now = now.Add(2 * time.Minute)
	_, err := r.Handle(context.Background(), "shop-1", viewed)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestRelay_InvalidatePicksUpNewSettings(t *testing.T) {
	store := seed(t, map[string]string{"tiktok": "tt-1"})
	src := &countingSource{rec: bridge.NewRecorder()}
	r := New(store, src, zap.NewNop(), WithTTL(time.Hour))

	sent, err := r.Handle(context.Background(), "shop-1", viewed)
	require.NoError(t, err)
	require.Len(t, sent, 1)

	rec, err := store.Get(context.Background(), "shop-1")
	require.NoError(t, err)
	rec.Settings = map[string]string{"snapchat": "sc-1", "google": "G-1"}
	require.NoError(t, store.Update(context.Background(), rec))

	r.Invalidate("shop-1")
	sent, err = r.Handle(context.Background(), "shop-1", viewed)
	require.NoError(t, err)
	require.Len(t, sent, 2)
	assert.Equal(t, pixel.Snapchat, sent[0].Vendor)
	assert.Equal(t, pixel.Google, sent[1].Vendor)
}

func TestRelay_Observer(t *testing.T) {
	store := seed(t, map[string]string{"facebook": "fb-1"})
	obs := &observed{}
	r := New(store, &countingSource{rec: bridge.NewRecorder()}, zap.NewNop(), WithObserver(obs))

	_, err := r.Handle(context.Background(), "shop-1", pixel.Event{Name: pixel.ProductRemovedFromCart})

	require.NoError(t, err)
	assert.Equal(t, []pixel.Outcome{
		pixel.OutcomeUnmapped,
		pixel.OutcomeUnconfigured,
		pixel.OutcomeUnconfigured,
		pixel.OutcomeUnconfigured,
	}, obs.outcomes)
}

func TestRelay_CacheStaysBounded(t *testing.T) {
	src := &countingSource{rec: bridge.NewRecorder()}
	r := New(settings.NewMemoryStore(), src, zap.NewNop(), WithTTL(time.Hour))
	r.limit = 8

	for i := 0; i < 100; i++ {
		_, err := r.Handle(context.Background(), fmt.Sprintf("made-up-%d", i), viewed)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(r.cache), r.limit)
	}
}

func TestRelay_FullCacheDropsExpiredFirst(t *testing.T) {
	store := seed(t, map[string]string{"tiktok": "tt-1"})
	src := &countingSource{rec: bridge.NewRecorder()}
	now := time.Unix(0, 0)
	r := New(store, src, zap.NewNop(), WithTTL(time.Minute))
	r.now = func() time.Time { return now }
	r.limit = 3

	for i := 0; i < 2; i++ {
		_, err := r.Handle(context.Background(), fmt.Sprintf("old-%d", i), viewed)
		require.NoError(t, err)
	}
	now = now.Add(2 * time.Minute)
	_, err := r.Handle(context.Background(), "shop-1", viewed)
	require.NoError(t, err)
	_, err = r.Handle(context.Background(), "new-1", viewed)
	require.NoError(t, err)

	assert.Len(t, r.cache, 2)
	assert.Contains(t, r.cache, "shop-1")
	assert.Contains(t, r.cache, "new-1")
}

func TestRelay_InvalidateDuringLoadSkipsCaching(t *testing.T) {
	mem := seed(t, map[string]string{"tiktok": "tt-1"})
	store := &hookStore{Store: mem}
	src := &countingSource{rec: bridge.NewRecorder()}
	r := New(store, src, zap.NewNop(), WithTTL(time.Hour))

	store.onGet = func() {
		rec, err := mem.Get(context.Background(), "shop-1")
		require.NoError(t, err)
		rec.Settings = map[string]string{"snapchat": "sc-1"}
		require.NoError(t, mem.Update(context.Background(), rec))
		r.Invalidate("shop-1")
	}

	sent, err := r.Handle(context.Background(), "shop-1", viewed)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, pixel.TikTok, sent[0].Vendor)
	assert.NotContains(t, r.cache, "shop-1")

	sent, err = r.Handle(context.Background(), "shop-1", viewed)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, pixel.Snapchat, sent[0].Vendor)
}
