// Command fleetctl administers fleet tenants directly against the configured
// store: registry listing, backups, restores and arrears checks.
package main

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/moto-fleet/internal/cloud"
	"github.com/ukydev/moto-fleet/internal/config"
	"github.com/ukydev/moto-fleet/internal/db"
	"github.com/ukydev/moto-fleet/internal/state"
)

// app holds what every subcommand shares.
type app struct {
	envFile string
	timeout time.Duration
	target  float64

	// openStore is swapped out in tests.
	openStore func(cfg *config.Config) (db.KeyValueStore, func() error, error)
}

func newApp() *app {
	return &app{openStore: db.Open}
}

// manager opens the store and returns a tenant manager over it. The CLI runs
// without the simulated network delays.
func (a *app) manager() (*state.Manager, func(), error) {
	cfg := config.Load(a.envFile)
	cfg.ConfigureLogging()

	store, closeStore, err := a.openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	target := cfg.WeeklyTarget
	if a.target > 0 {
		target = a.target
	}
	m := state.NewManager(store, state.Options{
		WeeklyTarget:      target,
		NotificationLimit: cfg.NotificationLimit,
	}, cloud.WithDelays(0, 0))

	return m, func() {
		if err := closeStore(); err != nil {
			log.WithError(err).Warn("Failed to close store")
		}
	}, nil
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.timeout)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "fleetctl",
		Short:         "Administer moto fleet tenants",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Environment file to load before the process environment")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", time.Minute, "Operation timeout")

	root.AddCommand(
		newFleetsCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newSyncCmd(a),
		newCheckArrearsCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		log.WithError(err).Error("fleetctl failed")
		os.Exit(1)
	}
}
