package bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/FairForge/webpixels/internal/pixel"
	"github.com/google/uuid"
)

// Facebook Conversions API

type facebookRequest struct {
	Data          []facebookEvent `json:"data"`
	TestEventCode string          `json:"test_event_code,omitempty"`
}

type facebookEvent struct {
	EventName      string         `json:"event_name"`
	EventTime      int64          `json:"event_time"`
	EventID        string         `json:"event_id"`
	EventSourceURL string         `json:"event_source_url,omitempty"`
	ActionSource   string         `json:"action_source"`
	UserData       map[string]any `json:"user_data"`
	CustomData     pixel.Payload  `json:"custom_data,omitempty"`
}

type facebookTracker struct {
	endpoint
	url           string
	testEventCode string
}

func newFacebookTracker(e endpoint, base, version, pixelID, token, testEventCode string) *facebookTracker {
	u := fmt.Sprintf("%s/%s/%s/events?access_token=%s",
		strings.TrimRight(base, "/"), version, url.PathEscape(pixelID), url.QueryEscape(token))
	return &facebookTracker{endpoint: e, url: u, testEventCode: testEventCode}
}

func (t *facebookTracker) Track(ctx context.Context, eventName string, payload pixel.Payload) error {
	v := VisitorFrom(ctx)
	body := facebookRequest{
		Data: []facebookEvent{{
			EventName:      eventName,
			EventTime:      t.now().Unix(),
			EventID:        uuid.NewString(),
			EventSourceURL: v.SourceURL,
			ActionSource:   "website",
			UserData:       userData(v, "client_ip_address", "client_user_agent"),
			CustomData:     payload,
		}},
		TestEventCode: t.testEventCode,
	}
	return t.postJSON(ctx, t.url, nil, body)
}

// TikTok Events API

type tiktokRequest struct {
	EventSource   string        `json:"event_source"`
	EventSourceID string        `json:"event_source_id"`
	Data          []tiktokEvent `json:"data"`
}

type tiktokEvent struct {
	Event      string            `json:"event"`
	EventTime  int64             `json:"event_time"`
	EventID    string            `json:"event_id"`
	User       map[string]any    `json:"user,omitempty"`
	Page       map[string]string `json:"page,omitempty"`
	Properties pixel.Payload     `json:"properties,omitempty"`
}

type tiktokTracker struct {
	endpoint
	url     string
	token   string
	pixelID string
}

func newTikTokTracker(e endpoint, base, pixelID, token string) *tiktokTracker {
	return &tiktokTracker{
		endpoint: e,
		url:      strings.TrimRight(base, "/") + "/open_api/v1.3/event/track/",
		token:    token,
		pixelID:  pixelID,
	}
}

func (t *tiktokTracker) Track(ctx context.Context, eventName string, payload pixel.Payload) error {
	v := VisitorFrom(ctx)
	ev := tiktokEvent{
		Event:      eventName,
		EventTime:  t.now().Unix(),
		EventID:    uuid.NewString(),
		User:       userData(v, "ip", "user_agent"),
		Properties: payload,
	}
	if v.SourceURL != "" {
		ev.Page = map[string]string{"url": v.SourceURL}
	}
	body := tiktokRequest{
		EventSource:   "web",
		EventSourceID: t.pixelID,
		Data:          []tiktokEvent{ev},
	}
	header := http.Header{}
	header.Set("Access-Token", t.token)
	return t.postJSON(ctx, t.url, header, body)
}

// Snapchat Conversions API

type snapchatRequest struct {
	Data []snapchatEvent `json:"data"`
}

type snapchatEvent struct {
	EventName      string         `json:"event_name"`
	EventTime      int64          `json:"event_time"`
	EventSourceURL string         `json:"event_source_url,omitempty"`
	ActionSource   string         `json:"action_source"`
	UserData       map[string]any `json:"user_data"`
	CustomData     pixel.Payload  `json:"custom_data,omitempty"`
}

type snapchatTracker struct {
	endpoint
	url string
}

func newSnapchatTracker(e endpoint, base, pixelID, token string) *snapchatTracker {
	u := fmt.Sprintf("%s/v3/%s/events?access_token=%s",
		strings.TrimRight(base, "/"), url.PathEscape(pixelID), url.QueryEscape(token))
	return &snapchatTracker{endpoint: e, url: u}
}

func (t *snapchatTracker) Track(ctx context.Context, eventName string, payload pixel.Payload) error {
	v := VisitorFrom(ctx)
	body := snapchatRequest{
		Data: []snapchatEvent{{
			EventName:      eventName,
			EventTime:      t.now().Unix(),
			EventSourceURL: v.SourceURL,
			ActionSource:   "WEB",
			UserData:       userData(v, "client_ip_address", "client_user_agent"),
			CustomData:     payload,
		}},
	}
	return t.postJSON(ctx, t.url, nil, body)
}

// Google Analytics 4 Measurement Protocol

type googleRequest struct {
	ClientID string        `json:"client_id"`
	Events   []googleEvent `json:"events"`
}

type googleEvent struct {
	Name   string        `json:"name"`
	Params pixel.Payload `json:"params,omitempty"`
}

type googleTracker struct {
	endpoint
	url string
}

func newGoogleTracker(e endpoint, base, measurementID, apiSecret string) *googleTracker {
	u := fmt.Sprintf("%s/mp/collect?measurement_id=%s&api_secret=%s",
		strings.TrimRight(base, "/"), url.QueryEscape(measurementID), url.QueryEscape(apiSecret))
	return &googleTracker{endpoint: e, url: u}
}

func (t *googleTracker) Track(ctx context.Context, eventName string, payload pixel.Payload) error {
	clientID := VisitorFrom(ctx).ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	body := googleRequest{
		ClientID: clientID,
		Events:   []googleEvent{{Name: eventName, Params: payload}},
	}
	return t.postJSON(ctx, t.url, nil, body)
}

func userData(v Visitor, ipKey, uaKey string) map[string]any {
	ud := map[string]any{}
	if v.IPAddress != "" {
		ud[ipKey] = v.IPAddress
	}
	if v.UserAgent != "" {
		ud[uaKey] = v.UserAgent
	}
	return ud
}
