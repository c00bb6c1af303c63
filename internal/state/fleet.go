// Package state holds each tenant's fleet records in memory and mirrors every
// change through an injected persistence port.
package state

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/moto-fleet/internal/automation"
	"github.com/ukydev/moto-fleet/internal/ids"
	"github.com/ukydev/moto-fleet/internal/models"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("record not found")
	// ErrUnknownFleet is returned for a tenant that is not in the registry.
	ErrUnknownFleet = errors.New("unknown fleet")
	// ErrFleetExists is returned when registering a tenant id twice.
	ErrFleetExists = errors.New("fleet already exists")
	// ErrInvalidInput is returned for an unknown status, check or fleet name.
	ErrInvalidInput = errors.New("invalid input")
)

// Persistence is the storage port a Fleet reads and writes its collections through.
type Persistence interface {
	Load(ctx context.Context, key string, out any) (bool, error)
	Save(ctx context.Context, key string, data any) error
}

// Notifier receives freshly queued notifications.
type Notifier interface {
	Publish(ctx context.Context, fleetID string, batch []models.Notification) error
}

// Options tune a Fleet.
type Options struct {
	WeeklyTarget      float64
	NotificationLimit int
	VerifyDelay       time.Duration
	NewID             ids.Generator
	Now               func() time.Time
	Notifier          Notifier
}

func (o Options) withDefaults() Options {
	if o.WeeklyTarget == 0 {
		o.WeeklyTarget = 650
	}
	if o.NotificationLimit == 0 {
		o.NotificationLimit = automation.DefaultLimit
	}
	if o.NewID == nil {
		o.NewID = ids.New
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Fleet is the application state of one tenant.
type Fleet struct {
	mu   sync.RWMutex
	info models.FleetInfo
	port Persistence
	data models.Payload
	opts Options
	log  *log.Entry
}

// Open loads every collection of a tenant through port. Collections with
// nothing stored start empty.
func Open(ctx context.Context, info models.FleetInfo, port Persistence, opts Options) (*Fleet, error) {
	f := &Fleet{
		info: info,
		port: port,
		opts: opts.withDefaults(),
		log:  log.WithFields(log.Fields{"component": "state", "fleet": info.ID}),
	}

	g, gctx := errgroup.WithContext(ctx)
	for key, target := range collections(&f.data) {
		g.Go(func() error {
			if _, err := port.Load(gctx, key, target); err != nil {
				return fmt.Errorf("load %s: %w", key, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	f.data.Normalize()

	f.log.WithFields(log.Fields{
		"bikes":    len(f.data.Bikes),
		"drivers":  len(f.data.Drivers),
		"payments": len(f.data.Payments),
	}).Info("Fleet loaded")
	return f, nil
}

// Info returns the tenant registry entry.
func (f *Fleet) Info() models.FleetInfo { return f.info }

// WeeklyTarget returns the configured weekly rental target.
func (f *Fleet) WeeklyTarget() float64 { return f.opts.WeeklyTarget }

// Now returns the fleet clock's current time.
func (f *Fleet) Now() time.Time { return f.opts.Now() }

// Snapshot returns a copy of every collection.
func (f *Fleet) Snapshot() models.Payload {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return clonePayload(f.data)
}

// Apply replaces the whole payload with fn's result and persists every
// collection. fn sees a copy of the current payload. When any collection
// fails to save, the ones already written are restored to their previous
// value and memory is left unchanged.
func (f *Fleet) Apply(ctx context.Context, fn func(models.Payload) (models.Payload, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next, err := fn(clonePayload(f.data))
	if err != nil {
		return err
	}
	next.Normalize()

	var (
		mu      sync.Mutex
		written []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for key, value := range values(next) {
		g.Go(func() error {
			if err := f.port.Save(gctx, key, value); err != nil {
				return fmt.Errorf("persist %s: %w", key, err)
			}
			mu.Lock()
			written = append(written, key)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if rbErr := f.rollback(ctx, written); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	f.data = next
	return nil
}

// rollback rewrites keys with the in-memory collections. It runs even when
// ctx is already cancelled. Callers hold f.mu.
func (f *Fleet) rollback(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	prev := values(f.data)
	var errs []error
	for _, key := range keys {
		if err := f.port.Save(ctx, key, prev[key]); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", key, err))
		}
	}
	if len(errs) > 0 {
		f.log.WithField("keys", keys).Error("Failed to restore collections after a partial write")
		return errors.Join(errs...)
	}
	f.log.WithField("keys", keys).Warn("Restored collections after a partial write")
	return nil
}

// collections maps silo keys to pointers into p for loading.
func collections(p *models.Payload) map[string]any {
	return map[string]any{
		models.KeyBikes:         &p.Bikes,
		models.KeyDrivers:       &p.Drivers,
		models.KeyPayments:      &p.Payments,
		models.KeyMaintenance:   &p.Maintenance,
		models.KeyFines:         &p.Fines,
		models.KeyAccidents:     &p.Accidents,
		models.KeyWorkshops:     &p.Workshops,
		models.KeyNotifications: &p.Notifications,
	}
}

// values maps silo keys to the collections of p for saving.
func values(p models.Payload) map[string]any {
	return map[string]any{
		models.KeyBikes:         p.Bikes,
		models.KeyDrivers:       p.Drivers,
		models.KeyPayments:      p.Payments,
		models.KeyMaintenance:   p.Maintenance,
		models.KeyFines:         p.Fines,
		models.KeyAccidents:     p.Accidents,
		models.KeyWorkshops:     p.Workshops,
		models.KeyNotifications: p.Notifications,
	}
}

func clonePayload(p models.Payload) models.Payload {
	out := models.Payload{
		Bikes:         slices.Clone(p.Bikes),
		Drivers:       slices.Clone(p.Drivers),
		Payments:      slices.Clone(p.Payments),
		Maintenance:   slices.Clone(p.Maintenance),
		Fines:         slices.Clone(p.Fines),
		Accidents:     slices.Clone(p.Accidents),
		Workshops:     slices.Clone(p.Workshops),
		Notifications: slices.Clone(p.Notifications),
	}
	out.Normalize()
	return out
}

// commit persists next under key and, on success, swaps it into *list.
// Callers hold f.mu.
func commit[T any](ctx context.Context, f *Fleet, key string, list *[]T, next []T) error {
	if err := f.port.Save(ctx, key, next); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	*list = next
	return nil
}

func insert[T models.Entity](ctx context.Context, f *Fleet, key string, list *[]T, item T) error {
	next := append(slices.Clone(*list), item)
	return commit(ctx, f, key, list, next)
}

func replace[T models.Entity](ctx context.Context, f *Fleet, key string, list *[]T, item T) error {
	i := slices.IndexFunc(*list, func(e T) bool { return e.EntityID() == item.EntityID() })
	if i < 0 {
		return fmt.Errorf("%s %q: %w", key, item.EntityID(), ErrNotFound)
	}
	next := slices.Clone(*list)
	next[i] = item
	return commit(ctx, f, key, list, next)
}

func remove[T models.Entity](ctx context.Context, f *Fleet, key string, list *[]T, id string) error {
	next := slices.DeleteFunc(slices.Clone(*list), func(e T) bool { return e.EntityID() == id })
	if len(next) == len(*list) {
		return fmt.Errorf("%s %q: %w", key, id, ErrNotFound)
	}
	return commit(ctx, f, key, list, next)
}

func find[T models.Entity](list []T, id string) (T, bool) {
	for _, e := range list {
		if e.EntityID() == id {
			return e, true
		}
	}
	var zero T
	return zero, false
}
