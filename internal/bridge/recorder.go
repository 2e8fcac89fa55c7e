package bridge

import (
	"context"
	"sync"

	"github.com/FairForge/webpixels/internal/pixel"
)

// Call is one vendor tracking call captured by a Recorder.
type Call struct {
	Vendor    pixel.Vendor  `json:"vendor"`
	EventName string        `json:"event_name"`
	Payload   pixel.Payload `json:"payload"`
}

// Recorder captures tracking calls in memory instead of sending them.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Tracker returns a tracker that records calls for vendor v.
func (r *Recorder) Tracker(v pixel.Vendor) pixel.Tracker {
	return pixel.TrackerFunc(func(_ context.Context, eventName string, payload pixel.Payload) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, Call{Vendor: v, EventName: eventName, Payload: payload})
		return nil
	})
}

// Trackers returns recording trackers for every vendor.
func (r *Recorder) Trackers() map[pixel.Vendor]pixel.Tracker {
	out := make(map[pixel.Vendor]pixel.Tracker, len(pixel.Vendors))
	for _, v := range pixel.Vendors {
		out[v] = r.Tracker(v)
	}
	return out
}

// Calls returns a copy of the captured calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Reset drops all captured calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
