// Package automation produces reminder notifications from fleet records.
package automation

import (
	"fmt"
	"time"

	"github.com/ukydev/moto-fleet/internal/ids"
	"github.com/ukydev/moto-fleet/internal/models"
	"github.com/ukydev/moto-fleet/internal/status"
)

// DefaultLimit is how many notifications are retained.
const DefaultLimit = 100

// CheckArrears returns one queued notification for every driver whose
// all-time payment total is below a single weeklyTarget.
//
// The comparison is cumulative over every payment ever recorded, not the
// current week: a driver who once paid more than the target is never flagged
// again. Repeated runs flag the same drivers again; nothing is de-duplicated.
func CheckArrears(drivers []models.Driver, payments []models.Payment, weeklyTarget float64, now time.Time, newID ids.Generator) []models.Notification {
	if newID == nil {
		newID = ids.New
	}
	var out []models.Notification
	for _, d := range drivers {
		paid := status.TotalPaid(payments, d.ID)
		if paid >= weeklyTarget {
			continue
		}
		out = append(out, models.Notification{
			ID:         newID(ids.Notification),
			DriverID:   d.ID,
			DriverName: d.Name,
			Type:       models.NotificationArrears,
			Message:    fmt.Sprintf("Hi %s, your rental payments total R%.2f, below the weekly target of R%.2f. Please settle the outstanding R%.2f.", d.Name, paid, weeklyTarget, weeklyTarget-paid),
			AmountDue:  weeklyTarget - paid,
			Status:     models.NotificationQueued,
			Timestamp:  now,
		})
	}
	return out
}

// Prepend puts fresh in front of existing and keeps at most limit entries,
// dropping the oldest.
func Prepend(fresh, existing []models.Notification, limit int) []models.Notification {
	merged := make([]models.Notification, 0, len(fresh)+len(existing))
	merged = append(merged, fresh...)
	merged = append(merged, existing...)
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
