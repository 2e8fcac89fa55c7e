package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/FairForge/webpixels/internal/platform"
	"github.com/FairForge/webpixels/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePlatform struct {
	nextID    string
	createErr error
	updateErr error
	created   []platform.PixelInput
	updated   map[string]platform.PixelInput
}

func (f *fakePlatform) CreateWebPixel(_ context.Context, in platform.PixelInput) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, in)
	return f.nextID, nil
}

func (f *fakePlatform) UpdateWebPixel(_ context.Context, id string, in platform.PixelInput) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updated == nil {
		f.updated = map[string]platform.PixelInput{}
	}
	f.updated[id] = in
	return nil
}

func newService(p *fakePlatform) (*Service, *settings.MemoryStore) {
	store := settings.NewMemoryStore()
	return NewService(store, p, zap.NewNop()), store
}

func TestService_LoadEmpty(t *testing.T) {
	svc, _ := newService(&fakePlatform{})

	view, err := svc.Load(context.Background(), "shop-1")

	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestService_Create(t *testing.T) {
	p := &fakePlatform{nextID: "px-1"}
	svc, store := newService(p)

	var changed []string
	svc.OnChange(func(s string) { changed = append(changed, s) })

	res := svc.Submit(context.Background(), "shop-1", Form{
		Intent:   IntentCreate,
		Name:     "Ads",
		Facebook: "123",
		TikTok:   "",
		Google:   " G-1 ",
	})

	assert.Equal(t, Result{OK: true, PixelID: "px-1"}, res)
	require.Len(t, p.created, 1)
	assert.Equal(t, map[string]string{"facebook": "123", "google": "G-1"}, p.created[0].Settings)

	rec, err := store.Get(context.Background(), "shop-1")
	require.NoError(t, err)
	assert.Equal(t, "px-1", rec.PixelID)
	assert.Equal(t, "Ads", rec.Name)
	assert.Equal(t, []string{"shop-1"}, changed)

	view, err := svc.Load(context.Background(), "shop-1")
	require.NoError(t, err)
	assert.Equal(t, &View{PixelID: "px-1", Name: "Ads", Settings: map[string]string{"facebook": "123", "google": "G-1"}}, view)
}

func TestService_CreateRejectedByPlatform(t *testing.T) {
	p := &fakePlatform{createErr: errors.New("pixel limit reached")}
	svc, store := newService(p)

	res := svc.Submit(context.Background(), "shop-1", Form{Intent: IntentCreate, Name: "Ads"})

	assert.False(t, res.OK)
	assert.Equal(t, "pixel limit reached", res.Error)
	_, err := store.Get(context.Background(), "shop-1")
	assert.ErrorIs(t, err, settings.ErrNotFound)
}

func TestService_CreateTwice(t *testing.T) {
	svc, _ := newService(&fakePlatform{nextID: "px-1"})

	require.True(t, svc.Submit(context.Background(), "shop-1", Form{Intent: IntentCreate}).OK)
	res := svc.Submit(context.Background(), "shop-1", Form{Intent: IntentCreate})

	assert.False(t, res.OK)
	assert.Contains(t, res.Error, settings.ErrExists.Error())
}

func TestService_Update(t *testing.T) {
	p := &fakePlatform{nextID: "px-1"}
	svc, store := newService(p)
	require.True(t, svc.Submit(context.Background(), "shop-1", Form{Intent: IntentCreate, Name: "Ads", Facebook: "123"}).OK)

	res := svc.Submit(context.Background(), "shop-1", Form{Intent: IntentUpdate, Name: "Ads v2", Snapchat: "snap-1"})

	assert.Equal(t, Result{OK: true, PixelID: "px-1"}, res)
	assert.Equal(t, platform.PixelInput{Name: "Ads v2", Settings: map[string]string{"snapchat": "snap-1"}}, p.updated["px-1"])

	rec, err := store.Get(context.Background(), "shop-1")
	require.NoError(t, err)
	assert.Equal(t, "Ads v2", rec.Name)
	assert.Equal(t, map[string]string{"snapchat": "snap-1"}, rec.Settings)
}

func TestService_UpdateWithoutPixel(t *testing.T) {
	p := &fakePlatform{}
	svc, _ := newService(p)

	res := svc.Submit(context.Background(), "shop-1", Form{Intent: IntentUpdate, Name: "Ads"})

	assert.Equal(t, Result{Error: "no pixel to update"}, res)
	assert.Empty(t, p.updated)
}

func TestService_UpdateRejectedKeepsRecord(t *testing.T) {
	p := &fakePlatform{nextID: "px-1"}
	svc, store := newService(p)
	require.True(t, svc.Submit(context.Background(), "shop-1", Form{Intent: IntentCreate, Name: "Ads"}).OK)

	p.updateErr = errors.New("not allowed")
	res := svc.Submit(context.Background(), "shop-1", Form{Intent: IntentUpdate, Name: "Other"})

	assert.Equal(t, Result{Error: "not allowed"}, res)
	rec, err := store.Get(context.Background(), "shop-1")
	require.NoError(t, err)
	assert.Equal(t, "Ads", rec.Name)
}

func TestService_UnknownIntent(t *testing.T) {
	svc, _ := newService(&fakePlatform{})

	res := svc.Submit(context.Background(), "shop-1", Form{Intent: "delete"})

	assert.Equal(t, Result{Error: "unknown action"}, res)
}
