// Package status derives display statuses from fleet records and the current
// time. Every function is pure; nothing is cached.
package status

import (
	"math"
	"time"

	"github.com/ukydev/moto-fleet/internal/models"
)

// ExpiryStatus buckets a compliance date.
type ExpiryStatus string

const (
	Valid   ExpiryStatus = "valid"
	Warning ExpiryStatus = "warning"
	Expired ExpiryStatus = "expired"
)

// ServiceStatus buckets the time since a bike's last maintenance.
type ServiceStatus string

const (
	ServiceGood    ServiceStatus = "good"
	ServiceDue     ServiceStatus = "due"
	ServiceOverdue ServiceStatus = "overdue"
)

// Thresholds shared by every screen.
const (
	ExpiryWarningDays  = 30
	ServiceDueDays     = 75
	ServiceOverdueDays = 90
)

// Unknown and NotAvailable are shown for dangling references.
const (
	Unknown      = "Unknown"
	NotAvailable = "N/A"
)

// DaysRemaining returns whole days from now until date, negative once past.
func DaysRemaining(date models.Date, now time.Time) int {
	return int(math.Floor(date.Sub(now).Hours() / 24))
}

// Expiry classifies a compliance date: expired once the date is before now,
// warning inside the 30 day window, valid otherwise. An unset date is expired.
func Expiry(date models.Date, now time.Time) ExpiryStatus {
	if date.IsZero() || date.Before(now) {
		return Expired
	}
	if DaysRemaining(date, now) < ExpiryWarningDays {
		return Warning
	}
	return Valid
}

// LastService returns the most recent maintenance record for bikeID.
func LastService(records []models.MaintenanceRecord, bikeID string) (models.MaintenanceRecord, bool) {
	var latest models.MaintenanceRecord
	found := false
	for _, r := range records {
		if r.BikeID != bikeID {
			continue
		}
		if !found || r.Date.After(latest.Date.Time) {
			latest = r
			found = true
		}
	}
	return latest, found
}

// Service classifies a bike by the age of its latest maintenance record.
func Service(records []models.MaintenanceRecord, bikeID string, now time.Time) ServiceStatus {
	latest, ok := LastService(records, bikeID)
	if !ok {
		return ServiceOverdue
	}
	age := -DaysRemaining(latest.Date, now)
	switch {
	case age > ServiceOverdueDays:
		return ServiceOverdue
	case age > ServiceDueDays:
		return ServiceDue
	default:
		return ServiceGood
	}
}

// WarrantyUntil returns the end of a record's warranty window.
func WarrantyUntil(record models.MaintenanceRecord) (models.Date, bool) {
	if record.WarrantyMonths <= 0 || record.Date.IsZero() {
		return models.Date{}, false
	}
	return record.Date.AddMonths(record.WarrantyMonths), true
}

// WarrantyActive reports whether now falls inside the record's warranty window.
func WarrantyActive(record models.MaintenanceRecord, now time.Time) bool {
	until, ok := WarrantyUntil(record)
	return ok && !until.Before(now)
}

// Utilization is the percentage of bikes that are active and assigned to a driver.
func Utilization(bikes []models.Bike) float64 {
	if len(bikes) == 0 {
		return 0
	}
	busy := 0
	for _, b := range bikes {
		if b.Status == models.BikeActive && b.AssignedDriverID != "" {
			busy++
		}
	}
	return float64(busy) / float64(len(bikes)) * 100
}

// DriverName resolves a driver id to a name, or Unknown.
func DriverName(drivers []models.Driver, id string) string {
	for _, d := range drivers {
		if d.ID == id {
			return d.Name
		}
	}
	return Unknown
}

// BikeLabel resolves a bike id to its licence number, or N/A.
func BikeLabel(bikes []models.Bike, id string) string {
	for _, b := range bikes {
		if b.ID == id {
			return b.LicenseNumber
		}
	}
	return NotAvailable
}
