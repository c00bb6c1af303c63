package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/moto-fleet/internal/models"
)

func TestWeekOfMonth(t *testing.T) {
	tests := []struct {
		day  int
		week int
	}{
		{1, 1}, {7, 1}, {8, 2}, {14, 2}, {15, 3}, {21, 3},
		{22, 4}, {28, 4}, {29, 5}, {30, 5}, {31, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.week, WeekOfMonth(models.NewDate(2024, time.January, tt.day)), "day %d", tt.day)
	}
}

func TestWeekOfMonth_LateDaysAlwaysWeekFive(t *testing.T) {
	for _, d := range []models.Date{
		models.NewDate(2024, time.February, 29),
		models.NewDate(2023, time.April, 30),
		models.NewDate(2023, time.December, 31),
		models.NewDate(2023, time.November, 29),
	} {
		assert.Equal(t, 5, WeekOfMonth(d), d.String())
	}
}

func TestWeeksInMonth(t *testing.T) {
	assert.Equal(t, 4, WeeksInMonth(2023, time.February))
	assert.Equal(t, 5, WeeksInMonth(2024, time.February))
	assert.Equal(t, 5, WeeksInMonth(2024, time.January))
}

func TestMonthlyStatement_ArrearsScenario(t *testing.T) {
	pay := func(amount float64, day int) models.Payment {
		return models.Payment{DriverID: "drv-1", Amount: amount, Date: models.NewDate(2024, time.March, day), Type: models.PaymentRental}
	}
	payments := []models.Payment{
		pay(650, 1),
		pay(0, 8),
		pay(-400, 15),
		pay(1700, 22),
		{DriverID: "drv-2", Amount: 9999, Date: models.NewDate(2024, time.March, 2)},
		{DriverID: "drv-1", Amount: 650, Date: models.NewDate(2024, time.February, 28)},
	}

	s := MonthlyStatement(payments, "drv-1", 2024, time.March, 4, 650)
	assert.Equal(t, 1950.0, s.Total)
	assert.Equal(t, 2600.0, s.Due)
	assert.Equal(t, -650.0, s.Balance)
	assert.True(t, s.InArrears())
	assert.Equal(t, [MaxWeek]float64{650, 0, -400, 1700, 0}, s.Weeks)
	require.Len(t, s.Payments, 4)
}

func TestBalance(t *testing.T) {
	payments := []models.Payment{
		{DriverID: "drv-1", Amount: 650, Date: models.NewDate(2024, time.March, 1)},
		{DriverID: "drv-1", Amount: 650, Date: models.NewDate(2024, time.March, 14)},
		{DriverID: "drv-1", Amount: 650, Date: models.NewDate(2024, time.March, 15)},
	}
	from := models.NewDate(2024, time.March, 1)
	to := models.NewDate(2024, time.March, 14)
	assert.Equal(t, 0.0, Balance(payments, "drv-1", from, to, 2, 650))
	assert.Equal(t, 1950.0, TotalPaid(payments, "drv-1"))
}

func TestDashboard(t *testing.T) {
	now := time.Date(2024, time.March, 25, 9, 0, 0, 0, time.UTC)
	p := models.Payload{
		Bikes: []models.Bike{
			{ID: "bike-1", LicenseNumber: "AA1", Status: models.BikeActive, AssignedDriverID: "drv-1", LicenseDiskExpiry: models.NewDate(2025, time.January, 1)},
			{ID: "bike-2", LicenseNumber: "AA2", Status: models.BikeMaintenance, LicenseDiskExpiry: models.NewDate(2024, time.April, 1)},
		},
		Drivers: []models.Driver{
			{ID: "drv-1", Name: "Thabo", LicenseExpiry: models.NewDate(2026, time.January, 1), PDPExpiry: models.NewDate(2024, time.March, 1)},
			{ID: "drv-2", Name: "Lerato", LicenseExpiry: models.NewDate(2026, time.January, 1), PDPExpiry: models.NewDate(2026, time.January, 1)},
		},
		Payments: []models.Payment{
			{DriverID: "drv-1", Amount: 2600, Date: models.NewDate(2024, time.March, 3)},
			{DriverID: "drv-2", Amount: 650, Date: models.NewDate(2024, time.March, 3)},
		},
		Maintenance: []models.MaintenanceRecord{
			{BikeID: "bike-1", Date: models.NewDate(2024, time.March, 10), Cost: 800},
		},
		Fines: []models.TrafficFine{
			{Status: models.FineUnpaid, Amount: 500},
			{Status: models.FinePaid, Amount: 300},
		},
		Accidents: []models.AccidentReport{
			{Status: models.AccidentReported},
			{Status: models.AccidentClosed},
		},
	}

	s := Dashboard(p, now, 650, 4)
	assert.Equal(t, 2, s.TotalBikes)
	assert.Equal(t, 1, s.ActiveBikes)
	assert.Equal(t, 1, s.MaintenanceBikes)
	assert.Equal(t, 50.0, s.Utilization)
	assert.Equal(t, 3250.0, s.MonthRevenue)
	assert.Equal(t, 800.0, s.MonthMaintenance)
	assert.Equal(t, 1, s.UnpaidFines)
	assert.Equal(t, 500.0, s.UnpaidFineTotal)
	assert.Equal(t, 1, s.OpenAccidents)

	require.Len(t, s.Arrears, 1)
	assert.Equal(t, "drv-2", s.Arrears[0].DriverID)
	assert.Equal(t, -1950.0, s.Arrears[0].Balance)

	kinds := map[string]string{}
	for _, a := range s.Alerts {
		kinds[a.Kind+":"+a.EntityID] = a.Status
	}
	assert.Equal(t, "warning", kinds["license_disk:bike-2"])
	assert.Equal(t, "expired", kinds["pdp:drv-1"])
	assert.Equal(t, "overdue", kinds["service:bike-2"])
	_, ok := kinds["service:bike-1"]
	assert.False(t, ok)
}
