package pixel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	vendor  Vendor
	name    string
	payload Payload
}

type recording struct {
	calls []call
}

func (r *recording) tracker(v Vendor) Tracker {
	return TrackerFunc(func(ctx context.Context, name string, p Payload) error {
		r.calls = append(r.calls, call{vendor: v, name: name, payload: p})
		return nil
	})
}

func (r *recording) trackers() map[Vendor]Tracker {
	out := make(map[Vendor]Tracker, len(Vendors))
	for _, v := range Vendors {
		out[v] = r.tracker(v)
	}
	return out
}

func (r *recording) byVendor() map[Vendor]call {
	out := make(map[Vendor]call)
	for _, c := range r.calls {
		out[c.vendor] = c
	}
	return out
}

func allConfigured() Settings {
	return Settings{
		PixelName: "main",
		Identifiers: map[Vendor]string{
			Facebook: "fb-1",
			TikTok:   "tt-1",
			Snapchat: "sc-1",
			Google:   "G-1",
		},
	}
}

func TestForward_ProductViewedAllVendors(t *testing.T) {
	rec := &recording{}
	f := NewForwarder(allConfigured(), rec.trackers())

	sent := f.Forward(context.Background(), Event{
		Name: ProductViewed,
		Data: map[string]any{"product_id": "p1", "product_name": "Shirt", "product_price": 50},
	})

	require.Len(t, sent, 4)
	calls := rec.byVendor()

	assert.Equal(t, "ViewContent", calls[Facebook].name)
	assert.Equal(t, Payload{
		"content_type": "product",
		"content_ids":  []any{"p1"},
		"content_name": "Shirt",
		"value":        50,
		"currency":     "SAR",
	}, calls[Facebook].payload)

	assert.Equal(t, "ViewContent", calls[TikTok].name)
	assert.Equal(t, Payload{
		"content_type": "product",
		"content_id":   "p1",
		"content_name": "Shirt",
		"value":        50,
		"currency":     "SAR",
	}, calls[TikTok].payload)

	assert.Equal(t, "VIEW_CONTENT", calls[Snapchat].name)
	assert.Equal(t, Payload{
		"item_ids": []any{"p1"},
		"price":    50,
		"currency": "SAR",
	}, calls[Snapchat].payload)

	assert.Equal(t, "view_item", calls[Google].name)
	assert.Equal(t, Payload{
		"items":    []Payload{{"item_id": "p1", "item_name": "Shirt", "price": 50}},
		"currency": "SAR",
		"value":    50,
	}, calls[Google].payload)
}

func TestForward_CartUpdatedFacebookOnly(t *testing.T) {
	rec := &recording{}
	settings := Settings{Identifiers: map[Vendor]string{Facebook: "fb-1"}}
	f := NewForwarder(settings, rec.trackers())

	f.Forward(context.Background(), Event{
		Name: CartUpdated,
		Data: map[string]any{"response": map[string]any{"product_id": "p2", "price": 30}},
	})

	require.Len(t, rec.calls, 1)
	assert.Equal(t, Facebook, rec.calls[0].vendor)
	assert.Equal(t, "AddToCart", rec.calls[0].name)
	assert.Equal(t, Payload{
		"content_type": "product",
		"content_ids":  []any{"p2"},
		"value":        30,
		"currency":     "SAR",
	}, rec.calls[0].payload)
}

func TestForward_CartUpdatedOtherVendorsUnmapped(t *testing.T) {
	rec := &recording{}
	f := NewForwarder(allConfigured(), rec.trackers())

	f.Forward(context.Background(), Event{
		Name: CartUpdated,
		Data: map[string]any{"response": map[string]any{"product_id": "p2", "price": 30}},
	})

	require.Len(t, rec.calls, 1)
	assert.Equal(t, Facebook, rec.calls[0].vendor)
}

func TestForward_CheckoutCompletedSnapchatAndGoogle(t *testing.T) {
	rec := &recording{}
	settings := Settings{Identifiers: map[Vendor]string{Snapchat: "sc-1", Google: "G-1"}}
	f := NewForwarder(settings, rec.trackers())

	f.Forward(context.Background(), Event{
		Name: CheckoutCompleted,
		Data: map[string]any{
			"response": map[string]any{"total": 199.5, "order_id": "ord-9"},
			"currency": "USD",
		},
	})

	calls := rec.byVendor()
	require.Len(t, calls, 2)

	assert.Equal(t, "PURCHASE", calls[Snapchat].name)
	assert.Equal(t, Payload{
		"price":          199.5,
		"currency":       "USD",
		"transaction_id": "ord-9",
	}, calls[Snapchat].payload)

	assert.Equal(t, "purchase", calls[Google].name)
	assert.Equal(t, Payload{
		"transaction_id": "ord-9",
		"value":          199.5,
		"currency":       "USD",
	}, calls[Google].payload)
}

func TestForward_UnknownEventDispatchesNothing(t *testing.T) {
	rec := &recording{}
	f := NewForwarder(allConfigured(), rec.trackers())

	sent := f.Forward(context.Background(), Event{Name: "unknown_custom_event", Data: map[string]any{}})

	assert.Empty(t, sent)
	assert.Empty(t, rec.calls)
}

func TestForward_UnconfiguredVendorsSkipped(t *testing.T) {
	rec := &recording{}
	settings := Settings{Identifiers: map[Vendor]string{
		Facebook: "   ",
		TikTok:   "",
		Google:   "G-1",
	}}
	f := NewForwarder(settings, rec.trackers())

	f.Forward(context.Background(), Event{Name: PageViewed})

	require.Len(t, rec.calls, 1)
	assert.Equal(t, Google, rec.calls[0].vendor)
	assert.Equal(t, "page_view", rec.calls[0].name)
	assert.Equal(t, Payload{}, rec.calls[0].payload)
}

func TestForward_VendorIsolation(t *testing.T) {
	rec := &recording{}
	trackers := rec.trackers()
	trackers[Facebook] = TrackerFunc(func(context.Context, string, Payload) error {
		return errors.New("sdk unavailable")
	})
	trackers[TikTok] = TrackerFunc(func(context.Context, string, Payload) error {
		panic("sdk blew up")
	})
	obs := &outcomes{}
	f := NewForwarder(allConfigured(), trackers, WithObserver(obs))

	sent := f.Forward(context.Background(), Event{
		Name: SearchSubmitted,
		Data: map[string]any{"query": "shoes"},
	})

	calls := rec.byVendor()
	require.Len(t, calls, 2)
	assert.Equal(t, Payload{"search_string": "shoes"}, calls[Snapchat].payload)
	assert.Equal(t, Payload{"search_term": "shoes"}, calls[Google].payload)
	assert.Len(t, sent, 2)

	assert.Equal(t, OutcomeFailed, obs.got[Facebook])
	assert.Equal(t, OutcomeFailed, obs.got[TikTok])
	assert.Equal(t, OutcomeSent, obs.got[Snapchat])
	assert.Equal(t, OutcomeSent, obs.got[Google])
}

func TestForward_MissingTrackerTreatedAsUnconfigured(t *testing.T) {
	rec := &recording{}
	trackers := map[Vendor]Tracker{Google: rec.tracker(Google)}
	f := NewForwarder(allConfigured(), trackers)

	f.Forward(context.Background(), Event{Name: CustomerRegistered})

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "sign_up", rec.calls[0].name)
}

func TestForward_ContactSubmittedOnlyFacebookAndTikTok(t *testing.T) {
	rec := &recording{}
	f := NewForwarder(allConfigured(), rec.trackers())

	f.Forward(context.Background(), Event{Name: ContactSubmitted})

	calls := rec.byVendor()
	require.Len(t, calls, 2)
	assert.Equal(t, "Contact", calls[Facebook].name)
	assert.Equal(t, "Contact", calls[TikTok].name)
}

func TestTranslate_Idempotent(t *testing.T) {
	ev := Event{
		Name: ProductAddedToCart,
		Data: map[string]any{"response": map[string]any{"product_id": "p3", "price": 12.5}},
	}
	for _, v := range Vendors {
		first, ok1 := Translate(v, ev)
		second, ok2 := Translate(v, ev)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, first, second, string(v))
	}
}

type outcomes struct {
	got map[Vendor]Outcome
}

func (o *outcomes) ObserveDispatch(v Vendor, _ EventName, outcome Outcome) {
	if o.got == nil {
		o.got = make(map[Vendor]Outcome)
	}
	o.got[v] = outcome
}
