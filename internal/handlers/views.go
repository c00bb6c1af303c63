package handlers

import (
	"github.com/ukydev/moto-fleet/internal/models"
	"github.com/ukydev/moto-fleet/internal/state"
	"github.com/ukydev/moto-fleet/internal/status"
)

// maintenanceView adds the warranty window and the bike's plate to a record.
type maintenanceView struct {
	models.MaintenanceRecord
	Bike           string       `json:"bike"`
	WarrantyUntil  *models.Date `json:"warrantyUntil,omitempty"`
	WarrantyActive bool         `json:"warrantyActive"`
}

func maintenanceViews(f *state.Fleet, records []models.MaintenanceRecord) any {
	bikes, now := f.Bikes(), f.Now()
	out := make([]maintenanceView, 0, len(records))
	for _, m := range records {
		v := maintenanceView{MaintenanceRecord: m, Bike: status.BikeLabel(bikes, m.BikeID)}
		if until, ok := status.WarrantyUntil(m); ok {
			v.WarrantyUntil = &until
			v.WarrantyActive = status.WarrantyActive(m, now)
		}
		out = append(out, v)
	}
	return out
}

type fineView struct {
	models.TrafficFine
	Bike       string `json:"bike"`
	DriverName string `json:"driverName"`
}

func fineViews(f *state.Fleet, fines []models.TrafficFine) any {
	bikes, drivers := f.Bikes(), f.Drivers()
	out := make([]fineView, 0, len(fines))
	for _, fine := range fines {
		out = append(out, fineView{
			TrafficFine: fine,
			Bike:        status.BikeLabel(bikes, fine.BikeID),
			DriverName:  status.DriverName(drivers, fine.DriverID),
		})
	}
	return out
}

type accidentView struct {
	models.AccidentReport
	Bike       string `json:"bike"`
	DriverName string `json:"driverName"`
}

func accidentViews(f *state.Fleet, reports []models.AccidentReport) any {
	bikes, drivers := f.Bikes(), f.Drivers()
	out := make([]accidentView, 0, len(reports))
	for _, a := range reports {
		out = append(out, accidentView{
			AccidentReport: a,
			Bike:           status.BikeLabel(bikes, a.BikeID),
			DriverName:     status.DriverName(drivers, a.DriverID),
		})
	}
	return out
}

// balanceResponse is a driver's arrears position over an arbitrary period.
type balanceResponse struct {
	DriverID     string      `json:"driverId"`
	From         models.Date `json:"from"`
	To           models.Date `json:"to"`
	Weeks        int         `json:"weeks"`
	WeeklyTarget float64     `json:"weeklyTarget"`
	Balance      float64     `json:"balance"`
}
