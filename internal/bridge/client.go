// Package bridge delivers translated pixel events to each vendor's
// server-side conversion API.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/FairForge/webpixels/internal/pixel"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a call is dropped by the vendor limiter.
var ErrRateLimited = errors.New("vendor rate limit exceeded")

// StatusError reports a non-2xx answer from a vendor endpoint.
type StatusError struct {
	Vendor pixel.Vendor
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Vendor, e.Status, e.Body)
}

type contextKey string

const visitorKey contextKey = "visitor"

// Visitor describes the storefront visitor an event belongs to. Every field
// is optional.
type Visitor struct {
	ClientID  string
	SourceURL string
	IPAddress string
	UserAgent string
}

// WithVisitor attaches visitor details to ctx for the vendor payload
// envelopes.
func WithVisitor(ctx context.Context, v Visitor) context.Context {
	return context.WithValue(ctx, visitorKey, v)
}

// VisitorFrom returns the visitor attached to ctx, if any.
func VisitorFrom(ctx context.Context) Visitor {
	v, _ := ctx.Value(visitorKey).(Visitor)
	return v
}

// endpoint is the shared transport of every vendor tracker: a non-blocking
// limiter, a circuit breaker, and a single POST without retries.
type endpoint struct {
	vendor  pixel.Vendor
	client  *http.Client
	limiter *rate.Limiter
	breaker *CircuitBreaker
	now     func() time.Time
	logger  *zap.Logger
}

func (e *endpoint) postJSON(ctx context.Context, url string, header http.Header, body any) error {
	if e.limiter != nil && !e.limiter.Allow() {
		return ErrRateLimited
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", e.vendor, err)
	}

	send := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
		if err != nil {
			return fmt.Errorf("%s: build request: %w", e.vendor, err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, vals := range header {
			for _, v := range vals {
				req.Header.Add(k, v)
			}
		}

		resp, err := e.client.Do(req)
		if err != nil {
			return fmt.Errorf("%s: send: %w", e.vendor, err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &StatusError{Vendor: e.vendor, Status: resp.StatusCode, Body: string(snippet)}
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	start := e.now()
	if e.breaker != nil {
		err = e.breaker.Execute(ctx, send)
	} else {
		err = send(ctx)
	}
	e.logger.Debug("vendor call",
		zap.String("vendor", string(e.vendor)),
		zap.Duration("latency", e.now().Sub(start)),
		zap.Bool("ok", err == nil))
	return err
}
