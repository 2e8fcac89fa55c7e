// Package settings persists each merchant store's web pixel record.
package settings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/FairForge/webpixels/internal/pixel"
)

var (
	ErrNotFound = errors.New("pixel settings not found")
	ErrExists   = errors.New("pixel settings already exist")
)

// Record is the stored web pixel for one store.
type Record struct {
	Store     string            `json:"store"`
	PixelID   string            `json:"pixel_id"`
	Name      string            `json:"name"`
	Settings  map[string]string `json:"settings"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// PixelSettings converts the record into translator settings. Keys that are
// not a known vendor are dropped.
func (r *Record) PixelSettings() pixel.Settings {
	s := pixel.Settings{
		PixelName:   r.Name,
		Identifiers: make(map[pixel.Vendor]string, len(r.Settings)),
	}
	for key, id := range r.Settings {
		if v, ok := pixel.ParseVendor(key); ok {
			s.Identifiers[v] = id
		}
	}
	return s
}

// Identifiers builds a settings map from raw form values, keeping only the
// non-empty trimmed identifiers of known vendors.
func Identifiers(raw map[string]string) map[string]string {
	out := make(map[string]string, len(raw))
	for key, id := range raw {
		if _, ok := pixel.ParseVendor(key); !ok {
			continue
		}
		if id = strings.TrimSpace(id); id != "" {
			out[key] = id
		}
	}
	return out
}

// Store provides pixel record lookup and persistence.
type Store interface {
	Get(ctx context.Context, store string) (*Record, error)
	Create(ctx context.Context, rec *Record) error
	Update(ctx context.Context, rec *Record) error
	CreateTables(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
