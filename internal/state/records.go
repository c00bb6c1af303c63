package state

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/ukydev/moto-fleet/internal/ids"
	"github.com/ukydev/moto-fleet/internal/models"
	"github.com/ukydev/moto-fleet/internal/status"
	"github.com/ukydev/moto-fleet/internal/validators"
)

// Bikes returns every bike.
func (f *Fleet) Bikes() []models.Bike {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.data.Bikes)
}

// Bike finds a bike by id.
func (f *Fleet) Bike(id string) (models.Bike, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return find(f.data.Bikes, id)
}

// AddBike assigns an id to b and stores it.
func (f *Fleet) AddBike(ctx context.Context, b models.Bike) (models.Bike, error) {
	if err := validators.Struct(b); err != nil {
		return b, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b.ID = f.opts.NewID(ids.Bike)
	return b, insert(ctx, f, models.KeyBikes, &f.data.Bikes, b)
}

// UpdateBike replaces the bike with the same id.
func (f *Fleet) UpdateBike(ctx context.Context, b models.Bike) error {
	if err := validators.Struct(b); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return replace(ctx, f, models.KeyBikes, &f.data.Bikes, b)
}

// DeleteBike removes a bike. Records referencing it are left as they are.
func (f *Fleet) DeleteBike(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return remove(ctx, f, models.KeyBikes, &f.data.Bikes, id)
}

// Drivers returns every driver.
func (f *Fleet) Drivers() []models.Driver {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.data.Drivers)
}

// Driver finds a driver by id.
func (f *Fleet) Driver(id string) (models.Driver, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return find(f.data.Drivers, id)
}

// AddDriver assigns an id to d and stores it.
func (f *Fleet) AddDriver(ctx context.Context, d models.Driver) (models.Driver, error) {
	if err := validators.Struct(d); err != nil {
		return d, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d.ID = f.opts.NewID(ids.Driver)
	if d.JoinedAt.IsZero() {
		d.JoinedAt = models.DateOf(f.opts.Now())
	}
	return d, insert(ctx, f, models.KeyDrivers, &f.data.Drivers, d)
}

// UpdateDriver replaces the driver with the same id.
func (f *Fleet) UpdateDriver(ctx context.Context, d models.Driver) error {
	if err := validators.Struct(d); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return replace(ctx, f, models.KeyDrivers, &f.data.Drivers, d)
}

// DeleteDriver removes a driver. Bikes, payments and fines that reference the
// driver keep the dangling id.
func (f *Fleet) DeleteDriver(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return remove(ctx, f, models.KeyDrivers, &f.data.Drivers, id)
}

// Payments returns every payment.
func (f *Fleet) Payments() []models.Payment {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.data.Payments)
}

// AddPayment stores a payment, defaulting the date to today and the week
// number to the date's day-of-month bucket.
func (f *Fleet) AddPayment(ctx context.Context, p models.Payment) (models.Payment, error) {
	if err := validators.Struct(p); err != nil {
		return p, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.opts.NewID(ids.Payment)
	fillPayment(&p, f.opts.Now)
	return p, insert(ctx, f, models.KeyPayments, &f.data.Payments, p)
}

// UpdatePayment replaces the payment with the same id.
func (f *Fleet) UpdatePayment(ctx context.Context, p models.Payment) error {
	if err := validators.Struct(p); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	fillPayment(&p, f.opts.Now)
	return replace(ctx, f, models.KeyPayments, &f.data.Payments, p)
}

// DeletePayment removes a payment.
func (f *Fleet) DeletePayment(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return remove(ctx, f, models.KeyPayments, &f.data.Payments, id)
}

func fillPayment(p *models.Payment, now func() time.Time) {
	if p.Date.IsZero() {
		p.Date = models.DateOf(now())
	}
	if p.WeekNumber == 0 {
		p.WeekNumber = status.WeekOfMonth(p.Date)
	}
}

// Maintenance returns every maintenance record.
func (f *Fleet) Maintenance() []models.MaintenanceRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.data.Maintenance)
}

// AddMaintenance stores a maintenance record.
func (f *Fleet) AddMaintenance(ctx context.Context, m models.MaintenanceRecord) (models.MaintenanceRecord, error) {
	if err := validators.Struct(m); err != nil {
		return m, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = f.opts.NewID(ids.Maintenance)
	if m.Date.IsZero() {
		m.Date = models.DateOf(f.opts.Now())
	}
	return m, insert(ctx, f, models.KeyMaintenance, &f.data.Maintenance, m)
}

// UpdateMaintenance replaces the record with the same id.
func (f *Fleet) UpdateMaintenance(ctx context.Context, m models.MaintenanceRecord) error {
	if err := validators.Struct(m); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return replace(ctx, f, models.KeyMaintenance, &f.data.Maintenance, m)
}

// DeleteMaintenance removes a maintenance record.
func (f *Fleet) DeleteMaintenance(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return remove(ctx, f, models.KeyMaintenance, &f.data.Maintenance, id)
}

// Fines returns every traffic fine.
func (f *Fleet) Fines() []models.TrafficFine {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.data.Fines)
}

// AddFine stores a traffic fine.
func (f *Fleet) AddFine(ctx context.Context, fine models.TrafficFine) (models.TrafficFine, error) {
	if err := validators.Struct(fine); err != nil {
		return fine, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	fine.ID = f.opts.NewID(ids.Fine)
	return fine, insert(ctx, f, models.KeyFines, &f.data.Fines, fine)
}

// UpdateFine replaces the fine with the same id.
func (f *Fleet) UpdateFine(ctx context.Context, fine models.TrafficFine) error {
	if err := validators.Struct(fine); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return replace(ctx, f, models.KeyFines, &f.data.Fines, fine)
}

// SetFineStatus sets a fine's status. Any status may follow any other.
func (f *Fleet) SetFineStatus(ctx context.Context, id string, s models.FineStatus) (models.TrafficFine, error) {
	if !models.IsValidFineStatus(s) {
		return models.TrafficFine{}, fmt.Errorf("%w: fine status %q", ErrInvalidInput, s)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	fine, ok := find(f.data.Fines, id)
	if !ok {
		return fine, fmt.Errorf("%s %q: %w", models.KeyFines, id, ErrNotFound)
	}
	fine.Status = s
	return fine, replace(ctx, f, models.KeyFines, &f.data.Fines, fine)
}

// DeleteFine removes a fine.
func (f *Fleet) DeleteFine(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return remove(ctx, f, models.KeyFines, &f.data.Fines, id)
}

// Accidents returns every accident report.
func (f *Fleet) Accidents() []models.AccidentReport {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.data.Accidents)
}

// AddAccident stores an accident report.
func (f *Fleet) AddAccident(ctx context.Context, a models.AccidentReport) (models.AccidentReport, error) {
	if a.Status == "" {
		a.Status = models.AccidentReported
	}
	if err := validators.Struct(a); err != nil {
		return a, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = f.opts.NewID(ids.Accident)
	return a, insert(ctx, f, models.KeyAccidents, &f.data.Accidents, a)
}

// UpdateAccident replaces the report with the same id.
func (f *Fleet) UpdateAccident(ctx context.Context, a models.AccidentReport) error {
	if err := validators.Struct(a); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return replace(ctx, f, models.KeyAccidents, &f.data.Accidents, a)
}

// SetAccidentStatus sets a report's status. Any status may follow any other.
func (f *Fleet) SetAccidentStatus(ctx context.Context, id string, s models.AccidentStatus) (models.AccidentReport, error) {
	if !models.IsValidAccidentStatus(s) {
		return models.AccidentReport{}, fmt.Errorf("%w: accident status %q", ErrInvalidInput, s)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := find(f.data.Accidents, id)
	if !ok {
		return a, fmt.Errorf("%s %q: %w", models.KeyAccidents, id, ErrNotFound)
	}
	a.Status = s
	return a, replace(ctx, f, models.KeyAccidents, &f.data.Accidents, a)
}

// DeleteAccident removes an accident report.
func (f *Fleet) DeleteAccident(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return remove(ctx, f, models.KeyAccidents, &f.data.Accidents, id)
}

// Workshops returns every partner workshop.
func (f *Fleet) Workshops() []models.Workshop {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.data.Workshops)
}

// Workshop finds a workshop by id.
func (f *Fleet) Workshop(id string) (models.Workshop, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return find(f.data.Workshops, id)
}

// AddWorkshop stores a workshop.
func (f *Fleet) AddWorkshop(ctx context.Context, w models.Workshop) (models.Workshop, error) {
	if err := validators.Struct(w); err != nil {
		return w, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	w.ID = f.opts.NewID(ids.Workshop)
	return w, insert(ctx, f, models.KeyWorkshops, &f.data.Workshops, w)
}

// UpdateWorkshop replaces the workshop with the same id. Maintenance records
// still carry the old name after a rename.
func (f *Fleet) UpdateWorkshop(ctx context.Context, w models.Workshop) error {
	if err := validators.Struct(w); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return replace(ctx, f, models.KeyWorkshops, &f.data.Workshops, w)
}

// DeleteWorkshop removes a workshop.
func (f *Fleet) DeleteWorkshop(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return remove(ctx, f, models.KeyWorkshops, &f.data.Workshops, id)
}

// Notifications returns the retained notifications, newest first.
func (f *Fleet) Notifications() []models.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.data.Notifications)
}
