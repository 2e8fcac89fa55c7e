package bridge

import (
	"context"
	"sync"

	"github.com/FairForge/webpixels/internal/pixel"
)

// Lazy initialises its tracker on the first Track call and reuses it
// afterwards. An initialisation error is kept and returned on every call.
type Lazy struct {
	once    sync.Once
	init    func() (pixel.Tracker, error)
	tracker pixel.Tracker
	err     error
}

// NewLazy wraps init in a lazily-initialised tracker handle.
func NewLazy(init func() (pixel.Tracker, error)) *Lazy {
	return &Lazy{init: init}
}

// Track implements pixel.Tracker.
func (l *Lazy) Track(ctx context.Context, eventName string, payload pixel.Payload) error {
	t, err := l.get()
	if err != nil {
		return err
	}
	return t.Track(ctx, eventName, payload)
}

func (l *Lazy) get() (pixel.Tracker, error) {
	l.once.Do(func() {
		l.tracker, l.err = l.init()
	})
	return l.tracker, l.err
}
