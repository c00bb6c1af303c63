package models

import "time"

// BikeStatus is the lifecycle state of a bike.
type BikeStatus string

const (
	BikeActive      BikeStatus = "active"
	BikeMaintenance BikeStatus = "maintenance"
	BikeIdle        BikeStatus = "idle"
)

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Tracker is the last telemetry snapshot reported by a bike's GPS unit.
// It is entered by hand and never refreshed live.
type Tracker struct {
	Location
	Status    string     `json:"status"` // "online", "offline", "parked"
	Battery   float64    `json:"battery" validate:"gte=0,lte=100"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Bike represents a rental motorcycle.
type Bike struct {
	ID                string     `json:"id"`
	Make              string     `json:"make" validate:"required"`
	Model             string     `json:"model"`
	Year              int        `json:"year,omitempty" validate:"omitempty,gte=1950,lte=2100"`
	LicenseNumber     string     `json:"licenseNumber" validate:"required"`
	VIN               string     `json:"vin"`
	Status            BikeStatus `json:"status" validate:"required,oneof=active maintenance idle"`
	AssignedDriverID  string     `json:"assignedDriverId,omitempty"`
	LicenseDiskExpiry Date       `json:"licenseDiskExpiry"`
	Tracker           *Tracker   `json:"tracker,omitempty"`
}

// EntityID returns the bike id.
func (b Bike) EntityID() string { return b.ID }
