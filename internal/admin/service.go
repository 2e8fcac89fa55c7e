// Package admin implements the merchant-facing pixel settings form.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/FairForge/webpixels/internal/platform"
	"github.com/FairForge/webpixels/internal/settings"
	"go.uber.org/zap"
)

const (
	IntentCreate = "create"
	IntentUpdate = "update"
)

const (
	msgNoPixel       = "no pixel to update"
	msgUnknownIntent = "unknown action"
)

// View is the current pixel shown on the settings page.
type View struct {
	PixelID  string            `json:"pixel_id"`
	Name     string            `json:"name"`
	Settings map[string]string `json:"settings"`
}

// Form is a submitted settings form.
type Form struct {
	Intent   string `json:"intent"`
	Name     string `json:"name"`
	Facebook string `json:"facebook"`
	TikTok   string `json:"tiktok"`
	Snapchat string `json:"snapchat"`
	Google   string `json:"google"`
}

// Settings returns the vendor identifiers the form carries.
func (f Form) Settings() map[string]string {
	return settings.Identifiers(map[string]string{
		"facebook": f.Facebook,
		"tiktok":   f.TikTok,
		"snapchat": f.Snapchat,
		"google":   f.Google,
	})
}

// Result is the outcome of a form submission.
type Result struct {
	OK      bool   `json:"ok"`
	PixelID string `json:"pixel_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ChangeListener is told when a store's settings were written.
type ChangeListener func(store string)

// Service loads and saves pixel settings. The platform is updated before
// the local record so a rejected mutation leaves the store untouched.
type Service struct {
	store    settings.Store
	platform platform.Pixels
	onChange ChangeListener
	logger   *zap.Logger
}

// NewService creates an admin service.
func NewService(store settings.Store, pixels platform.Pixels, logger *zap.Logger) *Service {
	return &Service{store: store, platform: pixels, logger: logger}
}

// OnChange registers fn to run after every successful save.
func (s *Service) OnChange(fn ChangeListener) {
	s.onChange = fn
}

// Load returns the store's pixel, or nil if none has been created.
func (s *Service) Load(ctx context.Context, store string) (*View, error) {
	rec, err := s.store.Get(ctx, store)
	if errors.Is(err, settings.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pixel: %w", err)
	}

	view := &View{PixelID: rec.PixelID, Name: rec.Name, Settings: rec.Settings}
	if view.Settings == nil {
		view.Settings = map[string]string{}
	}
	return view, nil
}

// Submit applies a form submission for store.
func (s *Service) Submit(ctx context.Context, store string, form Form) Result {
	var (
		res Result
		err error
	)
	switch form.Intent {
	case IntentCreate:
		res, err = s.create(ctx, store, form)
	case IntentUpdate:
		res, err = s.update(ctx, store, form)
	default:
		return Result{Error: msgUnknownIntent}
	}

	if err != nil {
		s.logger.Error("pixel settings submit failed",
			zap.String("store", store),
			zap.String("intent", form.Intent),
			zap.Error(err))
		return Result{Error: err.Error()}
	}
	if res.OK && s.onChange != nil {
		s.onChange(store)
	}
	return res
}

func (s *Service) create(ctx context.Context, store string, form Form) (Result, error) {
	in := platform.PixelInput{Name: form.Name, Settings: form.Settings()}

	pixelID, err := s.platform.CreateWebPixel(ctx, in)
	if err != nil {
		return Result{}, err
	}

	rec := &settings.Record{Store: store, PixelID: pixelID, Name: in.Name, Settings: in.Settings}
	if err := s.store.Create(ctx, rec); err != nil {
		return Result{}, fmt.Errorf("save pixel: %w", err)
	}

	s.logger.Info("web pixel created",
		zap.String("store", store),
		zap.String("pixel_id", pixelID))
	return Result{OK: true, PixelID: pixelID}, nil
}

func (s *Service) update(ctx context.Context, store string, form Form) (Result, error) {
	rec, err := s.store.Get(ctx, store)
	if errors.Is(err, settings.ErrNotFound) {
		return Result{Error: msgNoPixel}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("load pixel: %w", err)
	}

	in := platform.PixelInput{Name: form.Name, Settings: form.Settings()}
	if err := s.platform.UpdateWebPixel(ctx, rec.PixelID, in); err != nil {
		return Result{}, err
	}

	rec.Name = in.Name
	rec.Settings = in.Settings
	if err := s.store.Update(ctx, rec); err != nil {
		return Result{}, fmt.Errorf("save pixel: %w", err)
	}

	s.logger.Info("web pixel updated",
		zap.String("store", store),
		zap.String("pixel_id", rec.PixelID))
	return Result{OK: true, PixelID: rec.PixelID}, nil
}
