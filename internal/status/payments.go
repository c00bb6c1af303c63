package status

import (
	"time"

	"github.com/ukydev/moto-fleet/internal/models"
)

// MaxWeek is the highest week bucket in a month.
const MaxWeek = 5

// DefaultBillingWeeks is the number of weekly dues charged per month.
const DefaultBillingWeeks = 4

// WeekOfMonth buckets a date by its day of month: 1-7 is week 1, 8-14 week 2,
// 15-21 week 3, 22-28 week 4 and 29 onwards week 5. These are not ISO weeks.
func WeekOfMonth(date models.Date) int {
	week := (date.Day()-1)/7 + 1
	if week > MaxWeek {
		week = MaxWeek
	}
	return week
}

// WeeksInMonth returns how many week buckets the month spans.
func WeeksInMonth(year int, month time.Month) int {
	days := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return (days + 6) / 7
}

// Statement is a driver's payment position for one month.
type Statement struct {
	DriverID     string           `json:"driverId"`
	Year         int              `json:"year"`
	Month        time.Month       `json:"month"`
	Weeks        [MaxWeek]float64 `json:"weeks"`
	Payments     []models.Payment `json:"payments"`
	Total        float64          `json:"total"`
	Due          float64          `json:"due"`
	Balance      float64          `json:"balance"`
	WeeklyTarget float64          `json:"weeklyTarget"`
	BilledWeeks  int              `json:"billedWeeks"`
}

// InArrears reports whether the month closed short of its dues.
func (s Statement) InArrears() bool { return s.Balance < 0 }

// MonthlyStatement sums a driver's payments dated in year/month into week
// buckets and compares the total with weeks × weeklyTarget.
func MonthlyStatement(payments []models.Payment, driverID string, year int, month time.Month, weeks int, weeklyTarget float64) Statement {
	s := Statement{
		DriverID:     driverID,
		Year:         year,
		Month:        month,
		Payments:     []models.Payment{},
		WeeklyTarget: weeklyTarget,
		BilledWeeks:  weeks,
	}
	for _, p := range payments {
		if p.DriverID != driverID || p.Date.Year() != year || p.Date.Month() != month {
			continue
		}
		s.Weeks[WeekOfMonth(p.Date)-1] += p.Amount
		s.Total += p.Amount
		s.Payments = append(s.Payments, p)
	}
	s.Due = float64(weeks) * weeklyTarget
	s.Balance = s.Total - s.Due
	return s
}

// Balance returns sum(payments for driver in [from, to]) − weeks × weeklyTarget.
func Balance(payments []models.Payment, driverID string, from, to models.Date, weeks int, weeklyTarget float64) float64 {
	var total float64
	for _, p := range payments {
		if p.DriverID != driverID || p.Date.Before(from.Time) || p.Date.After(to.Time) {
			continue
		}
		total += p.Amount
	}
	return total - float64(weeks)*weeklyTarget
}

// TotalPaid returns a driver's all-time payment total.
func TotalPaid(payments []models.Payment, driverID string) float64 {
	var total float64
	for _, p := range payments {
		if p.DriverID == driverID {
			total += p.Amount
		}
	}
	return total
}
