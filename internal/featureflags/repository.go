package featureflags

import (
	"context"
	"errors"
)

// ErrFlagNotFound is returned when the store holds no override for a key.
var ErrFlagNotFound = errors.New("feature flag not found")

// Repository persists flag overrides. Keys without an override resolve to
// the service defaults.
type Repository interface {
	GetFlag(ctx context.Context, key string) (*Flag, error)
	GetAllFlags(ctx context.Context) (map[string]*Flag, error)

	// SetFlags stores a validated batch. Either every flag is written or none.
	SetFlags(ctx context.Context, flags []*Flag) error

	// DeleteFlag drops an override so the key falls back to its default.
	DeleteFlag(ctx context.Context, key string) error
}
