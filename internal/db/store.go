package db

import (
	"context"
	"errors"
)

var (
	// ErrQuotaExceeded is returned when a write would exceed the medium's size quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrNilCollection is returned by stores constructed without a backing collection or client.
	ErrNilCollection = errors.New("store backend is nil")
)

// KeyValueStore is the raw string key-value medium the persistence shim writes to.
// It plays the role browser local storage plays for the console.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}
