// Package merchant carries the authenticated merchant through a request.
package merchant

import (
	"context"
	"errors"
)

type contextKey string

const contextKeyMerchant contextKey = "merchant"

// ErrNoMerchant is returned when no merchant was put into the context.
var ErrNoMerchant = errors.New("no merchant in context")

// Merchant is the store owner an admin session belongs to.
type Merchant struct {
	Store  string
	UserID string
}

// WithMerchant adds m to ctx.
func WithMerchant(ctx context.Context, m *Merchant) context.Context {
	return context.WithValue(ctx, contextKeyMerchant, m)
}

// FromContext extracts the merchant from ctx.
func FromContext(ctx context.Context) (*Merchant, error) {
	m, ok := ctx.Value(contextKeyMerchant).(*Merchant)
	if !ok || m == nil {
		return nil, ErrNoMerchant
	}
	return m, nil
}

// MustFromContext extracts the merchant or panics. Only use behind the
// session middleware.
func MustFromContext(ctx context.Context) *Merchant {
	m, err := FromContext(ctx)
	if err != nil {
		panic("session middleware not applied: " + err.Error())
	}
	return m
}
