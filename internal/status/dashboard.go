package status

import (
	"sort"
	"time"

	"github.com/ukydev/moto-fleet/internal/models"
)

// Alert is a compliance or service item needing attention.
type Alert struct {
	Kind     string `json:"kind"` // "license", "pdp", "license_disk", "service"
	EntityID string `json:"entityId"`
	Label    string `json:"label"`
	Status   string `json:"status"`
	Days     int    `json:"days"`
}

// DriverArrears is a driver's position for the current month.
type DriverArrears struct {
	DriverID string  `json:"driverId"`
	Name     string  `json:"name"`
	Paid     float64 `json:"paid"`
	Balance  float64 `json:"balance"`
}

// Summary holds the dashboard figures.
type Summary struct {
	TotalBikes       int             `json:"totalBikes"`
	ActiveBikes      int             `json:"activeBikes"`
	MaintenanceBikes int             `json:"maintenanceBikes"`
	IdleBikes        int             `json:"idleBikes"`
	Utilization      float64         `json:"utilization"`
	Drivers          int             `json:"drivers"`
	MonthRevenue     float64         `json:"monthRevenue"`
	MonthMaintenance float64         `json:"monthMaintenance"`
	UnpaidFines      int             `json:"unpaidFines"`
	UnpaidFineTotal  float64         `json:"unpaidFineTotal"`
	OpenAccidents    int             `json:"openAccidents"`
	Alerts           []Alert         `json:"alerts"`
	Arrears          []DriverArrears `json:"arrears"`
}

// Dashboard computes the dashboard summary for the month containing now.
func Dashboard(p models.Payload, now time.Time, weeklyTarget float64, weeks int) Summary {
	s := Summary{
		TotalBikes:  len(p.Bikes),
		Utilization: Utilization(p.Bikes),
		Drivers:     len(p.Drivers),
		Alerts:      []Alert{},
		Arrears:     []DriverArrears{},
	}
	year, month := now.Year(), now.Month()

	for _, b := range p.Bikes {
		switch b.Status {
		case models.BikeActive:
			s.ActiveBikes++
		case models.BikeMaintenance:
			s.MaintenanceBikes++
		case models.BikeIdle:
			s.IdleBikes++
		}
		s.addExpiry("license_disk", b.ID, b.LicenseNumber, b.LicenseDiskExpiry, now)
		if st := Service(p.Maintenance, b.ID, now); st != ServiceGood {
			days := -1
			if last, ok := LastService(p.Maintenance, b.ID); ok {
				days = -DaysRemaining(last.Date, now)
			}
			s.Alerts = append(s.Alerts, Alert{Kind: "service", EntityID: b.ID, Label: b.LicenseNumber, Status: string(st), Days: days})
		}
	}

	for _, d := range p.Drivers {
		s.addExpiry("license", d.ID, d.Name, d.LicenseExpiry, now)
		s.addExpiry("pdp", d.ID, d.Name, d.PDPExpiry, now)

		st := MonthlyStatement(p.Payments, d.ID, year, month, weeks, weeklyTarget)
		if st.InArrears() {
			s.Arrears = append(s.Arrears, DriverArrears{DriverID: d.ID, Name: d.Name, Paid: st.Total, Balance: st.Balance})
		}
	}
	sort.SliceStable(s.Arrears, func(i, j int) bool { return s.Arrears[i].Balance < s.Arrears[j].Balance })

	for _, pay := range p.Payments {
		if pay.Date.Year() == year && pay.Date.Month() == month {
			s.MonthRevenue += pay.Amount
		}
	}
	for _, m := range p.Maintenance {
		if m.Date.Year() == year && m.Date.Month() == month {
			s.MonthMaintenance += m.Cost
		}
	}
	for _, f := range p.Fines {
		if f.Status == models.FineUnpaid {
			s.UnpaidFines++
			s.UnpaidFineTotal += f.Amount
		}
	}
	for _, a := range p.Accidents {
		if a.Status != models.AccidentClosed {
			s.OpenAccidents++
		}
	}
	return s
}

func (s *Summary) addExpiry(kind, id, label string, date models.Date, now time.Time) {
	st := Expiry(date, now)
	if st == Valid {
		return
	}
	days := 0
	if !date.IsZero() {
		days = DaysRemaining(date, now)
	}
	s.Alerts = append(s.Alerts, Alert{Kind: kind, EntityID: id, Label: label, Status: string(st), Days: days})
}
