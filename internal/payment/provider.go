package payment

import "context"

// Provider creates a hosted payment session for a freshly assembled order.
type Provider interface {
	Name() string
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}
