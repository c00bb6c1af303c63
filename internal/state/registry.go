package state

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/moto-fleet/internal/cloud"
	"github.com/ukydev/moto-fleet/internal/db"
	"github.com/ukydev/moto-fleet/internal/models"
	"golang.org/x/sync/errgroup"
)

// RegistryKey is the flat, unprefixed key holding the tenant list.
const RegistryKey = "mf_master_registry"

// Registry is the master list of tenants.
type Registry struct {
	store db.KeyValueStore
	mu    sync.Mutex
}

// NewRegistry creates a registry on top of store.
func NewRegistry(store db.KeyValueStore) *Registry {
	return &Registry{store: store}
}

// List returns every registered tenant. An unreadable registry is treated as
// empty.
func (r *Registry) List(ctx context.Context) ([]models.FleetInfo, error) {
	raw, found, err := r.store.Get(ctx, RegistryKey)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	fleets := []models.FleetInfo{}
	if !found || raw == "" {
		return fleets, nil
	}
	if err := json.Unmarshal([]byte(raw), &fleets); err != nil {
		log.WithError(err).Warn("Ignoring malformed fleet registry")
		return []models.FleetInfo{}, nil
	}
	return fleets, nil
}

// Get returns the tenant with id.
func (r *Registry) Get(ctx context.Context, id string) (models.FleetInfo, error) {
	fleets, err := r.List(ctx)
	if err != nil {
		return models.FleetInfo{}, err
	}
	for _, f := range fleets {
		if f.ID == id {
			return f, nil
		}
	}
	return models.FleetInfo{}, fmt.Errorf("%q: %w", id, ErrUnknownFleet)
}

// Add registers a tenant. An empty id is derived from the name.
func (r *Registry) Add(ctx context.Context, info models.FleetInfo) (models.FleetInfo, error) {
	info.Name = strings.TrimSpace(info.Name)
	if info.Name == "" {
		return info, fmt.Errorf("%w: fleet name is required", ErrInvalidInput)
	}
	if info.ID == "" {
		info.ID = Slug(info.Name)
	}
	if info.ID == "" {
		return info, fmt.Errorf("%w: fleet name %q has no usable characters", ErrInvalidInput, info.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fleets, err := r.List(ctx)
	if err != nil {
		return info, err
	}
	for _, f := range fleets {
		if f.ID == info.ID {
			return info, fmt.Errorf("%q: %w", info.ID, ErrFleetExists)
		}
	}
	fleets = append(fleets, info)
	raw, err := json.Marshal(fleets)
	if err != nil {
		return info, err
	}
	if err := r.store.Set(ctx, RegistryKey, string(raw)); err != nil {
		return info, fmt.Errorf("write registry: %w", err)
	}
	return info, nil
}

// Slug lowercases name and joins its alphanumeric runs with dashes.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

// Manager opens tenant fleets on demand and keeps them cached.
type Manager struct {
	store      db.KeyValueStore
	registry   *Registry
	opts       Options
	clientOpts []cloud.Option

	mu     sync.Mutex
	fleets map[string]*Fleet
}

// NewManager creates a manager whose fleets persist through cloud clients on
// top of store.
func NewManager(store db.KeyValueStore, opts Options, clientOpts ...cloud.Option) *Manager {
	return &Manager{
		store:      store,
		registry:   NewRegistry(store),
		opts:       opts,
		clientOpts: clientOpts,
		fleets:     make(map[string]*Fleet),
	}
}

// Registry returns the tenant registry.
func (m *Manager) Registry() *Registry { return m.registry }

// List returns every registered tenant.
func (m *Manager) List(ctx context.Context) ([]models.FleetInfo, error) {
	return m.registry.List(ctx)
}

// Add registers a new tenant and writes an empty list to each of its silos
// that has nothing stored yet, so a new tenant never picks up legacy
// pre-tenant data. Silos left over from an earlier registration are kept.
func (m *Manager) Add(ctx context.Context, info models.FleetInfo) (models.FleetInfo, error) {
	info, err := m.registry.Add(ctx, info)
	if err != nil {
		return info, err
	}

	client := m.client(info)
	stored, err := client.Stored(ctx)
	if err != nil {
		return info, err
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, key := range models.CollectionKeys {
		if slices.Contains(stored, key) {
			continue
		}
		g.Go(func() error {
			return client.Save(gctx, key, []struct{}{})
		})
	}
	if err := g.Wait(); err != nil {
		return info, fmt.Errorf("provision fleet %q: %w", info.ID, err)
	}
	if len(stored) > 0 {
		log.WithFields(log.Fields{"fleet": info.ID, "silos": len(stored)}).Info("Kept existing fleet data")
	}
	return info, nil
}

func (m *Manager) client(info models.FleetInfo) *cloud.Client {
	opts := append([]cloud.Option{cloud.WithLogger(log.WithField("fleet", info.Name))}, m.clientOpts...)
	return cloud.NewClient(m.store, info.ID, opts...)
}

// Fleet returns the opened fleet for a registered tenant.
func (m *Manager) Fleet(ctx context.Context, id string) (*Fleet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.fleets[id]; ok {
		return f, nil
	}
	info, err := m.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	f, err := Open(ctx, info, m.client(info), m.opts)
	if err != nil {
		return nil, err
	}
	m.fleets[id] = f
	return f, nil
}

// EnsureDefault registers info when the registry has no tenants yet.
func (m *Manager) EnsureDefault(ctx context.Context, info models.FleetInfo) error {
	fleets, err := m.registry.List(ctx)
	if err != nil {
		return err
	}
	if len(fleets) > 0 {
		return nil
	}
	if _, err := m.registry.Add(ctx, info); err != nil {
		return err
	}
	log.WithField("fleet", info.ID).Info("Registered default fleet")
	return nil
}
