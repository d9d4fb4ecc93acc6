package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Provider abstracts the external payment processor. Authorize returns the
// processor's opaque reference for the attempt; Capture and Refund act on it.
type Provider interface {
	Name() string
	Authorize(ctx context.Context, orderID uuid.UUID, amountCents int64) (string, error)
	Capture(ctx context.Context, providerRef string) error
	Refund(ctx context.Context, providerRef string) error
}

// NewProvider resolves the configured provider by name.
func NewProvider(name string) (Provider, error) {
	switch name {
	case "", "mock":
		return &mockProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", name)
	}
}

// mockProvider approves every request and issues unique references. It is the
// only provider wired today; real processors plug in behind the same interface.
type mockProvider struct{}

func (mockProvider) Name() string {
	return "mock"
}

func (mockProvider) Authorize(_ context.Context, orderID uuid.UUID, amountCents int64) (string, error) {
	if orderID == uuid.Nil {
		return "", fmt.Errorf("order id required")
	}
	if amountCents <= 0 {
		return "", fmt.Errorf("amount must be positive")
	}
	return "mock-" + uuid.NewString(), nil
}

func (mockProvider) Capture(_ context.Context, providerRef string) error {
	if providerRef == "" {
		return fmt.Errorf("provider ref required")
	}
	return nil
}

func (mockProvider) Refund(_ context.Context, providerRef string) error {
	if providerRef == "" {
		return fmt.Errorf("provider ref required")
	}
	return nil
}
