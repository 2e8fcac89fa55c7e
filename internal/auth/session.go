// Package auth issues and checks merchant admin sessions.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/FairForge/webpixels/internal/config"
	"github.com/FairForge/webpixels/internal/merchant"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// SessionCookie is the cookie the admin UI stores the session token in.
const SessionCookie = "session"

// ErrInvalidToken is returned for a token that fails to parse or verify.
var ErrInvalidToken = errors.New("invalid session token")

// Claims are the JWT claims of an admin session.
type Claims struct {
	Store  string `json:"store"`
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Sessions signs and validates HS256 session tokens.
type Sessions struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewSessions creates a session service from cfg.
func NewSessions(cfg config.AuthConfig, logger *zap.Logger) *Sessions {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Sessions{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Issue creates a session token for userID on store.
func (s *Sessions) Issue(store, userID string) (string, error) {
	if store == "" {
		return "", errors.New("issue session: store is required")
	}
	now := s.now()
	claims := Claims{
		Store:  store,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a session token.
func (s *Sessions) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Store == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RequireSession rejects requests without a valid session and places the
// merchant into the request context. The token is read from a Bearer
// Authorization header or the session cookie.
func (s *Sessions) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			unauthorized(w, "missing session")
			return
		}

		claims, err := s.Validate(token)
		if err != nil {
			s.logger.Debug("rejected session", zap.Error(err))
			unauthorized(w, "invalid session")
			return
		}

		ctx := merchant.WithMerchant(r.Context(), &merchant.Merchant{
			Store:  claims.Store,
			UserID: claims.UserID,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
