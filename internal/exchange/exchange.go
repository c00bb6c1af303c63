// Package exchange reads and writes the portable backup file of one fleet and
// merges imported records into existing ones.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/moto-fleet/internal/models"
	"github.com/ukydev/moto-fleet/internal/state"
)

// Version is the envelope version written by Export.
const Version = "2.0"

// Extension is the backup file suffix.
const Extension = ".mfleet"

// ErrSchemaMismatch is returned for a document without a version or payload.
var ErrSchemaMismatch = errors.New("backup schema mismatch")

// Envelope is the on-disk backup format.
type Envelope struct {
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	FleetID   string          `json:"fleetId"`
	FleetName string          `json:"fleetName"`
	Payload   *models.Payload `json:"payload"`
}

// Export wraps a fleet's collections in a versioned envelope.
func Export(info models.FleetInfo, p models.Payload, now time.Time) Envelope {
	p.Normalize()
	return Envelope{
		Version:   Version,
		Timestamp: now.UTC(),
		FleetID:   info.ID,
		FleetName: info.Name,
		Payload:   &p,
	}
}

// Encode writes env as indented JSON.
func Encode(w io.Writer, env Envelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// Decode reads an envelope and checks that it carries a version and a payload.
func Decode(r io.Reader) (Envelope, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return Envelope{}, fmt.Errorf("read backup: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if env.Version == "" {
		return Envelope{}, fmt.Errorf("%w: missing version", ErrSchemaMismatch)
	}
	if env.Payload == nil {
		return Envelope{}, fmt.Errorf("%w: missing payload", ErrSchemaMismatch)
	}
	env.Payload.Normalize()
	return env, nil
}

// FileName returns the download name of a backup taken at now.
func FileName(info models.FleetInfo, now time.Time) string {
	id := state.Slug(info.ID)
	if id == "" {
		id = "fleet"
	}
	return fmt.Sprintf("%s-backup-%s%s", id, now.Format("2006-01-02"), Extension)
}

// Counts reports how many records a merge appended per collection.
type Counts map[string]int

// Total sums every collection.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Merge returns base with every record of incoming whose id base does not
// already hold appended. Records present in both keep the base version.
func Merge(base, incoming models.Payload) (models.Payload, Counts) {
	counts := Counts{}
	base.Bikes, counts[models.KeyBikes] = mergeByID(base.Bikes, incoming.Bikes)
	base.Drivers, counts[models.KeyDrivers] = mergeByID(base.Drivers, incoming.Drivers)
	base.Payments, counts[models.KeyPayments] = mergeByID(base.Payments, incoming.Payments)
	base.Maintenance, counts[models.KeyMaintenance] = mergeByID(base.Maintenance, incoming.Maintenance)
	base.Fines, counts[models.KeyFines] = mergeByID(base.Fines, incoming.Fines)
	base.Accidents, counts[models.KeyAccidents] = mergeByID(base.Accidents, incoming.Accidents)
	base.Workshops, counts[models.KeyWorkshops] = mergeByID(base.Workshops, incoming.Workshops)
	base.Notifications, counts[models.KeyNotifications] = mergeByID(base.Notifications, incoming.Notifications)
	base.Normalize()
	return base, counts
}

func mergeByID[T models.Entity](base, incoming []T) ([]T, int) {
	seen := make(map[string]struct{}, len(base))
	out := make([]T, 0, len(base)+len(incoming))
	for _, e := range base {
		seen[e.EntityID()] = struct{}{}
		out = append(out, e)
	}
	added := 0
	for _, e := range incoming {
		if _, ok := seen[e.EntityID()]; ok {
			continue
		}
		seen[e.EntityID()] = struct{}{}
		out = append(out, e)
		added++
	}
	return out, added
}

// Import replaces every collection of f with the envelope's payload.
func Import(ctx context.Context, f *state.Fleet, env Envelope) error {
	if env.Payload == nil {
		return fmt.Errorf("%w: missing payload", ErrSchemaMismatch)
	}
	incoming := *env.Payload
	if err := f.Apply(ctx, func(models.Payload) (models.Payload, error) {
		return incoming, nil
	}); err != nil {
		return fmt.Errorf("import into %s: %w", f.Info().ID, err)
	}
	log.WithFields(log.Fields{"fleet": f.Info().ID, "source": env.FleetID}).Info("Backup imported")
	return nil
}

// Sync merges the envelope's records into f by id.
func Sync(ctx context.Context, f *state.Fleet, env Envelope) (Counts, error) {
	if env.Payload == nil {
		return nil, fmt.Errorf("%w: missing payload", ErrSchemaMismatch)
	}
	var counts Counts
	err := f.Apply(ctx, func(current models.Payload) (models.Payload, error) {
		var merged models.Payload
		merged, counts = Merge(current, *env.Payload)
		return merged, nil
	})
	if err != nil {
		return nil, fmt.Errorf("sync into %s: %w", f.Info().ID, err)
	}
	log.WithFields(log.Fields{"fleet": f.Info().ID, "added": counts.Total()}).Info("Backup merged")
	return counts, nil
}
