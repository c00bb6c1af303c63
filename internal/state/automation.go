package state

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/moto-fleet/internal/automation"
	"github.com/ukydev/moto-fleet/internal/models"
)

// RunAutomation queues an arrears reminder for every driver below the weekly
// target, persists the capped notification list and hands the new batch to the
// notifier. Publishing failures are logged and do not fail the run.
func (f *Fleet) RunAutomation(ctx context.Context) ([]models.Notification, error) {
	f.mu.Lock()
	fresh := automation.CheckArrears(f.data.Drivers, f.data.Payments, f.opts.WeeklyTarget, f.opts.Now(), f.opts.NewID)
	next := automation.Prepend(fresh, f.data.Notifications, f.opts.NotificationLimit)
	err := commit(ctx, f, models.KeyNotifications, &f.data.Notifications, next)
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	f.log.WithField("queued", len(fresh)).Info("Arrears check completed")

	if len(fresh) > 0 && f.opts.Notifier != nil {
		if err := f.opts.Notifier.Publish(ctx, f.info.ID, fresh); err != nil {
			f.log.WithError(err).Warn("Failed to publish notifications")
		}
	}
	return fresh, nil
}

// VerifyDriver runs a simulated third-party check and marks the driver as
// verified for it. The check always succeeds once the delay has passed.
func (f *Fleet) VerifyDriver(ctx context.Context, id string, check models.VerificationCheck) (models.Driver, error) {
	if !models.IsValidCheck(check) {
		return models.Driver{}, fmt.Errorf("%w: verification check %q", ErrInvalidInput, check)
	}
	if _, ok := f.Driver(id); !ok {
		return models.Driver{}, fmt.Errorf("%s %q: %w", models.KeyDrivers, id, ErrNotFound)
	}

	if f.opts.VerifyDelay > 0 {
		t := time.NewTimer(f.opts.VerifyDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return models.Driver{}, ctx.Err()
		case <-t.C:
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := find(f.data.Drivers, id)
	if !ok {
		return d, fmt.Errorf("%s %q: %w", models.KeyDrivers, id, ErrNotFound)
	}
	switch check {
	case models.CheckEnatis:
		d.EnatisVerified = true
	case models.CheckContact:
		d.ContactVerified = true
	}
	if err := replace(ctx, f, models.KeyDrivers, &f.data.Drivers, d); err != nil {
		return d, err
	}
	f.log.WithFields(log.Fields{"driver": id, "check": check}).Info("Driver verified")
	return d, nil
}

// ClearNotifications drops every retained notification.
func (f *Fleet) ClearNotifications(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return commit(ctx, f, models.KeyNotifications, &f.data.Notifications, []models.Notification{})
}
