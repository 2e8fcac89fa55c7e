package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/FairForge/webpixels/internal/config"
	"github.com/FairForge/webpixels/internal/merchant"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSessions() *Sessions {
	return NewSessions(config.AuthConfig{
		JWTSecret:  "test-secret",
		Issuer:     "webpixels",
		SessionTTL: time.Hour,
	}, zap.NewNop())
}

func TestSessions_IssueAndValidate(t *testing.T) {
	s := newSessions()

	token, err := s.Issue("shop-1", "u-1")
	require.NoError(t, err)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "shop-1", claims.Store)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "webpixels", claims.Issuer)
}

func TestSessions_IssueRequiresStore(t *testing.T) {
	_, err := newSessions().Issue("", "u-1")
	assert.Error(t, err)
}

func TestSessions_ValidateRejects(t *testing.T) {
	s := newSessions()
	token, err := s.Issue("shop-1", "u-1")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewSessions(config.AuthConfig{JWTSecret: "other", Issuer: "webpixels"}, zap.NewNop())
		_, err := other.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		late := newSessions()
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewSessions(config.AuthConfig{JWTSecret: "test-secret", Issuer: "someone-else"}, zap.NewNop())
		_, err := other.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Store: "shop-1"})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = s.Validate(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := s.Validate("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRequireSession(t *testing.T) {
	s := newSessions()
	token, err := s.Issue("shop-1", "u-1")
	require.NoError(t, err)

	var seen *merchant.Merchant
	handler := s.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = merchant.MustFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, http.StatusNoContent},
		{"session cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token}) }, http.StatusNoContent},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized},
		{"invalid", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/pixel", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusNoContent {
				require.NotNil(t, seen)
				assert.Equal(t, "shop-1", seen.Store)
			} else {
				assert.Nil(t, seen)
				assert.Contains(t, rec.Body.String(), "error")
			}
		})
	}
}
