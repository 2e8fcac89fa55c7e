package pixel

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Translate maps ev onto vendor v. It returns false when v has no mapping
// for the event name, including names outside the canonical set.
func Translate(v Vendor, ev Event) (Dispatch, bool) {
	name, ok := VendorEventName(v, ev.Name)
	if !ok {
		return Dispatch{}, false
	}
	return Dispatch{
		Vendor:    v,
		EventName: name,
		Payload:   routes[v].mapper(ev.Name, ev.Data),
	}, true
}

// MapPayload returns the payload vendor v would receive for the named event.
// Names the vendor does not map produce an empty payload.
func MapPayload(v Vendor, name EventName, data map[string]any) Payload {
	r, ok := routes[v]
	if !ok {
		return Payload{}
	}
	return r.mapper(name, data)
}

// Tracker delivers a vendor event. Implementations are best-effort; the
// forwarder never retries a failed call.
type Tracker interface {
	Track(ctx context.Context, eventName string, payload Payload) error
}

// TrackerFunc adapts a function to Tracker.
type TrackerFunc func(ctx context.Context, eventName string, payload Payload) error

// Track calls f.
func (f TrackerFunc) Track(ctx context.Context, eventName string, payload Payload) error {
	return f(ctx, eventName, payload)
}

// Outcome labels what happened to one vendor branch of an event.
type Outcome string

const (
	OutcomeSent         Outcome = "sent"
	OutcomeFailed       Outcome = "failed"
	OutcomeUnconfigured Outcome = "unconfigured"
	OutcomeUnmapped     Outcome = "unmapped"
)

// Observer is notified of every vendor branch outcome.
type Observer interface {
	ObserveDispatch(v Vendor, event EventName, outcome Outcome)
}

// Forwarder replays canonical events to every configured vendor.
type Forwarder struct {
	settings Settings
	trackers map[Vendor]Tracker
	observer Observer
	logger   *zap.Logger
}

// ForwarderOption configures a Forwarder.
type ForwarderOption func(*Forwarder)

// WithObserver attaches an outcome observer.
func WithObserver(o Observer) ForwarderOption {
	return func(f *Forwarder) {
		f.observer = o
	}
}

// WithLogger sets the forwarder logger.
func WithLogger(logger *zap.Logger) ForwarderOption {
	return func(f *Forwarder) {
		f.logger = logger
	}
}

// NewForwarder creates a forwarder for one merchant. Settings and trackers
// are read-only for the lifetime of the forwarder.
func NewForwarder(settings Settings, trackers map[Vendor]Tracker, opts ...ForwarderOption) *Forwarder {
	f := &Forwarder{
		settings: settings,
		trackers: trackers,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Forward dispatches ev to each configured vendor that maps it and returns
// the dispatches that were delivered without error. Vendor branches are
// independent: a failing or panicking tracker only loses its own call.
func (f *Forwarder) Forward(ctx context.Context, ev Event) []Dispatch {
	var sent []Dispatch
	for _, v := range Vendors {
		d, outcome := f.forwardOne(ctx, v, ev)
		if f.observer != nil {
			f.observer.ObserveDispatch(v, ev.Name, outcome)
		}
		if outcome == OutcomeSent {
			sent = append(sent, d)
		}
	}
	return sent
}

func (f *Forwarder) forwardOne(ctx context.Context, v Vendor, ev Event) (d Dispatch, outcome Outcome) {
	if _, ok := f.settings.Identifier(v); !ok {
		return Dispatch{}, OutcomeUnconfigured
	}
	tracker, ok := f.trackers[v]
	if !ok || tracker == nil {
		return Dispatch{}, OutcomeUnconfigured
	}
	d, ok = Translate(v, ev)
	if !ok {
		f.logger.Debug("no mapping for event",
			zap.String("vendor", string(v)),
			zap.String("event", string(ev.Name)))
		return Dispatch{}, OutcomeUnmapped
	}

	if err := safeTrack(ctx, tracker, d); err != nil {
		f.logger.Warn("vendor dispatch failed",
			zap.String("vendor", string(v)),
			zap.String("event", d.EventName),
			zap.Error(err))
		return d, OutcomeFailed
	}
	return d, OutcomeSent
}

func safeTrack(ctx context.Context, t Tracker, d Dispatch) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tracker panic: %v", r)
		}
	}()
	return t.Track(ctx, d.EventName, d.Payload)
}
