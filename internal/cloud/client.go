// Package cloud is the persistence shim between the fleet state and the raw
// key-value medium. It namespaces keys per tenant, recovers values saved under
// pre-tenant key shapes, and adds a fixed latency to every call so callers
// behave as they would against a remote service.
package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/moto-fleet/internal/db"
)

// KeyPrefix is the version prefix of every canonical key.
const KeyPrefix = "mf_v2_"

// Default artificial latencies.
const (
	DefaultFetchDelay   = 600 * time.Millisecond
	DefaultPersistDelay = 300 * time.Millisecond
)

// Client reads and writes one tenant's silos.
type Client struct {
	store        db.KeyValueStore
	tenant       string
	fetchDelay   time.Duration
	persistDelay time.Duration
	log          *log.Entry
}

// Option configures a Client.
type Option func(*Client)

// WithDelays overrides the artificial fetch and persist latencies.
func WithDelays(fetch, persist time.Duration) Option {
	return func(c *Client) {
		c.fetchDelay = fetch
		c.persistDelay = persist
	}
}

// WithLogger sets the logger entry used for warnings.
func WithLogger(entry *log.Entry) Option {
	return func(c *Client) {
		c.log = entry
	}
}

// NewClient creates a shim for tenant on top of store.
func NewClient(store db.KeyValueStore, tenant string, opts ...Option) *Client {
	c := &Client{
		store:        store,
		tenant:       tenant,
		fetchDelay:   DefaultFetchDelay,
		persistDelay: DefaultPersistDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = log.WithField("component", "cloud")
	}
	c.log = c.log.WithField("tenant", tenant)
	return c
}

// Tenant returns the tenant id the client is scoped to.
func (c *Client) Tenant() string { return c.tenant }

// Key returns the canonical storage key for an entity key.
func (c *Client) Key(key string) string {
	return KeyPrefix + c.tenant + "_" + key
}

// LegacyKeys lists the pre-tenant key shapes for key in lookup order:
// double-prefixed, single-prefixed, unprefixed.
func LegacyKeys(key string) []string {
	return []string{KeyPrefix + KeyPrefix + key, KeyPrefix + key, key}
}

// Load decodes the value stored under key into out, which must be a non-nil
// pointer. It reports whether a value was decoded. When nothing usable is
// stored, or the stored JSON is malformed, out is left untouched and found
// is false; malformed data is logged, not returned. Errors come only from
// the medium or from ctx.
func (c *Client) Load(ctx context.Context, key string, out any) (bool, error) {
	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return false, fmt.Errorf("load %q: out must be a non-nil pointer", key)
	}
	if err := sleep(ctx, c.fetchDelay); err != nil {
		return false, err
	}

	raw, err := c.read(ctx, key)
	if err != nil {
		return false, err
	}
	if raw == "" {
		return false, nil
	}

	fresh := reflect.New(target.Elem().Type())
	if err := json.Unmarshal([]byte(raw), fresh.Interface()); err != nil {
		c.log.WithError(err).WithField("key", c.Key(key)).Warn("Malformed stored value, using default")
		return false, nil
	}
	target.Elem().Set(fresh.Elem())
	return true, nil
}

// read returns the raw canonical value, migrating from a legacy key when the
// canonical one was never written. A stored empty list is kept as is so
// deleted records stay deleted.
func (c *Client) read(ctx context.Context, key string) (string, error) {
	canonical := c.Key(key)
	raw, _, err := c.store.Get(ctx, canonical)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", canonical, err)
	}
	if !unset(raw) {
		return raw, nil
	}

	for _, legacy := range LegacyKeys(key) {
		v, found, err := c.store.Get(ctx, legacy)
		if err != nil {
			return "", fmt.Errorf("read %q: %w", legacy, err)
		}
		if !found || isEmpty(v) {
			continue
		}
		if err := c.store.Set(ctx, canonical, v); err != nil {
			c.log.WithError(err).WithField("legacy_key", legacy).Warn("Failed to migrate legacy value")
		} else {
			c.log.WithFields(log.Fields{"legacy_key": legacy, "key": canonical}).Info("Migrated legacy value")
		}
		return v, nil
	}
	return raw, nil
}

// Save encodes data and writes it under key after the persist delay. Errors
// from the medium, such as ErrQuotaExceeded, are returned as-is wrapped.
func (c *Client) Save(ctx context.Context, key string, data any) error {
	if err := sleep(ctx, c.persistDelay); err != nil {
		return err
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	canonical := c.Key(key)
	if err := c.store.Set(ctx, canonical, string(encoded)); err != nil {
		return fmt.Errorf("write %q: %w", canonical, err)
	}
	return nil
}

// Fetch loads key into a value of type T, returning def when nothing usable is stored.
func Fetch[T any](ctx context.Context, c *Client, key string, def T) (T, error) {
	var v T
	found, err := c.Load(ctx, key, &v)
	if err != nil || !found {
		return def, err
	}
	return v, nil
}

// Stored reports which entity keys already have a canonical value for the
// tenant.
func (c *Client) Stored(ctx context.Context) ([]string, error) {
	prefix := c.Key("")
	keys, err := c.store.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	stored := make([]string, 0, len(keys))
	for _, k := range keys {
		stored = append(stored, strings.TrimPrefix(k, prefix))
	}
	return stored, nil
}

func unset(raw string) bool {
	switch strings.TrimSpace(raw) {
	case "", "null":
		return true
	}
	return false
}

func isEmpty(raw string) bool {
	return unset(raw) || strings.TrimSpace(raw) == "[]"
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
