// Package relay forwards canonical storefront events to the vendors a
// merchant has configured.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/FairForge/webpixels/internal/pixel"
	"github.com/FairForge/webpixels/internal/settings"
	"go.uber.org/zap"
)

// TrackerSource builds the vendor trackers for a merchant's settings.
type TrackerSource interface {
	Trackers(s pixel.Settings) map[pixel.Vendor]pixel.Tracker
}

// maxCachedStores bounds the forwarder cache. Store names arrive on an
// unauthenticated path, so unknown names must not grow it without limit.
const maxCachedStores = 10000

type entry struct {
	forwarder *pixel.Forwarder // nil when the store has no pixel
	expires   time.Time
}

// Relay resolves a store's forwarder and hands events to it. Forwarders are
// cached for a short TTL so a burst of events reuses the same tracker
// handles.
type Relay struct {
	store    settings.Store
	trackers TrackerSource
	observer pixel.Observer
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger

	mu    sync.Mutex
	cache map[string]entry
	limit int
	gen   uint64 // bumped by Invalidate
}

// Option configures a Relay.
type Option func(*Relay)

// WithObserver reports dispatch outcomes to o.
func WithObserver(o pixel.Observer) Option {
	return func(r *Relay) {
		r.observer = o
	}
}

// WithTTL sets how long a store's settings are cached. Zero disables the
// cache.
func WithTTL(ttl time.Duration) Option {
	return func(r *Relay) {
		r.ttl = ttl
	}
}

// New creates a relay over store and trackers.
func New(store settings.Store, trackers TrackerSource, logger *zap.Logger, opts ...Option) *Relay {
	r := &Relay{
		store:    store,
		trackers: trackers,
		ttl:      30 * time.Second,
		now:      time.Now,
		logger:   logger,
		cache:    make(map[string]entry),
		limit:    maxCachedStores,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle forwards ev for store and returns the delivered dispatches. A
// store without a pixel record gets no dispatches and no error.
func (r *Relay) Handle(ctx context.Context, store string, ev pixel.Event) ([]pixel.Dispatch, error) {
	f, err := r.forwarder(ctx, store)
	if err != nil {
		return nil, err
	}
	if f == nil {
		r.logger.Debug("no pixel configured for store", zap.String("store", store))
		return nil, nil
	}
	return f.Forward(ctx, ev), nil
}

// Invalidate drops the cached forwarder for store.
func (r *Relay) Invalidate(store string) {
	r.mu.Lock()
	delete(r.cache, store)
	r.gen++
	r.mu.Unlock()
}

func (r *Relay) forwarder(ctx context.Context, store string) (*pixel.Forwarder, error) {
	now := r.now()

	r.mu.Lock()
	e, ok := r.cache[store]
	gen := r.gen
	r.mu.Unlock()
	if ok && now.Before(e.expires) {
		return e.forwarder, nil
	}

	rec, err := r.store.Get(ctx, store)
	if err != nil && !errors.Is(err, settings.ErrNotFound) {
		return nil, fmt.Errorf("load settings for %s: %w", store, err)
	}

	var f *pixel.Forwarder
	if rec != nil {
		s := rec.PixelSettings()
		opts := []pixel.ForwarderOption{pixel.WithLogger(r.logger.With(zap.String("store", store)))}
		if r.observer != nil {
			opts = append(opts, pixel.WithObserver(r.observer))
		}
		f = pixel.NewForwarder(s, r.trackers.Trackers(s), opts...)
	}

	if r.ttl > 0 {
		r.mu.Lock()
		// An Invalidate during the load means rec may already be stale.
		if r.gen == gen {
			r.makeRoom(now)
			r.cache[store] = entry{forwarder: f, expires: now.Add(r.ttl)}
		}
		r.mu.Unlock()
	}
	return f, nil
}

// makeRoom drops expired entries once the cache is full, and everything if
// that is not enough. Callers hold r.mu.
func (r *Relay) makeRoom(now time.Time) {
	if len(r.cache) < r.limit {
		return
	}
	for store, e := range r.cache {
		if !now.Before(e.expires) {
			delete(r.cache, store)
		}
	}
	if len(r.cache) >= r.limit {
		r.cache = make(map[string]entry)
	}
}
