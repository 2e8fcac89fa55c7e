package bridge

import (
	"context"
	"net/http"
	"time"

	"github.com/FairForge/webpixels/internal/config"
	"github.com/FairForge/webpixels/internal/pixel"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Registry builds vendor trackers for a merchant's settings. Limiters and
// circuit breakers are shared per vendor across merchants since they guard
// the vendor endpoint, not the merchant.
type Registry struct {
	cfg      config.VendorsConfig
	client   *http.Client
	limiters map[pixel.Vendor]*rate.Limiter
	breakers map[pixel.Vendor]*CircuitBreaker
	now      func() time.Time
	logger   *zap.Logger
}

// NewRegistry creates a registry from the vendor credential config.
func NewRegistry(cfg config.VendorsConfig, logger *zap.Logger) *Registry {
	r := &Registry{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiters: make(map[pixel.Vendor]*rate.Limiter),
		breakers: make(map[pixel.Vendor]*CircuitBreaker),
		now:      time.Now,
		logger:   logger,
	}
	for _, v := range pixel.Vendors {
		if cfg.RatePerSecond > 0 {
			burst := cfg.Burst
			if burst < 1 {
				burst = cfg.RatePerSecond
			}
			r.limiters[v] = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
		}
		opts := []CircuitOption{WithCircuitLogger(logger.With(zap.String("vendor", string(v))))}
		if cfg.FailureThreshold > 0 {
			opts = append(opts, WithFailureThreshold(cfg.FailureThreshold))
		}
		if cfg.ResetTimeout > 0 {
			opts = append(opts, WithResetTimeout(cfg.ResetTimeout))
		}
		r.breakers[v] = NewCircuitBreaker(opts...)
	}
	return r
}

// BreakerState reports the circuit state for vendor v.
func (r *Registry) BreakerState(v pixel.Vendor) State {
	if cb, ok := r.breakers[v]; ok {
		return cb.State()
	}
	return StateClosed
}

// Trackers returns one lazily-initialised tracker per configured vendor.
// Vendors without server credentials get a tracker that only logs.
func (r *Registry) Trackers(settings pixel.Settings) map[pixel.Vendor]pixel.Tracker {
	out := make(map[pixel.Vendor]pixel.Tracker)
	for _, v := range settings.Configured() {
		id, _ := settings.Identifier(v)
		out[v] = NewLazy(func() (pixel.Tracker, error) {
			return r.build(v, id), nil
		})
	}
	return out
}

func (r *Registry) build(v pixel.Vendor, id string) pixel.Tracker {
	e := endpoint{
		vendor:  v,
		client:  r.client,
		limiter: r.limiters[v],
		breaker: r.breakers[v],
		now:     r.now,
		logger:  r.logger,
	}

	switch v {
	case pixel.Facebook:
		if c := r.cfg.Facebook; c.AccessToken != "" {
			return newFacebookTracker(e, c.Endpoint, c.APIVersion, id, c.AccessToken, c.TestEventCode)
		}
	case pixel.TikTok:
		if c := r.cfg.TikTok; c.AccessToken != "" {
			return newTikTokTracker(e, c.Endpoint, id, c.AccessToken)
		}
	case pixel.Snapchat:
		if c := r.cfg.Snapchat; c.AccessToken != "" {
			return newSnapchatTracker(e, c.Endpoint, id, c.AccessToken)
		}
	case pixel.Google:
		if c := r.cfg.Google; c.APISecret != "" {
			return newGoogleTracker(e, c.Endpoint, id, c.APISecret)
		}
	}

	r.logger.Info("no server credentials for vendor, logging events only",
		zap.String("vendor", string(v)))
	return NewLogTracker(v, id, r.logger)
}

// LogTracker writes each vendor call to the log instead of sending it.
type LogTracker struct {
	vendor pixel.Vendor
	id     string
	logger *zap.Logger
}

// NewLogTracker creates a logging tracker for vendor v and pixel id.
func NewLogTracker(v pixel.Vendor, id string, logger *zap.Logger) *LogTracker {
	return &LogTracker{vendor: v, id: id, logger: logger}
}

// Track implements pixel.Tracker.
func (t *LogTracker) Track(_ context.Context, eventName string, payload pixel.Payload) error {
	t.logger.Info("pixel event",
		zap.String("vendor", string(t.vendor)),
		zap.String("pixel_id", t.id),
		zap.String("event", eventName),
		zap.Any("payload", payload))
	return nil
}
