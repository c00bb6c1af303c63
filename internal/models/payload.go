package models

// Collection keys, used both as silo names and as export payload fields.
const (
	KeyBikes         = "bikes"
	KeyDrivers       = "drivers"
	KeyPayments      = "payments"
	KeyMaintenance   = "maintenance"
	KeyFines         = "fines"
	KeyAccidents     = "accidents"
	KeyWorkshops     = "workshops"
	KeyNotifications = "notifications"
)

// CollectionKeys lists every tenant silo in load order.
var CollectionKeys = []string{
	KeyBikes, KeyDrivers, KeyPayments, KeyMaintenance,
	KeyFines, KeyAccidents, KeyWorkshops, KeyNotifications,
}

// Payload is the full set of one tenant's collections.
type Payload struct {
	Bikes         []Bike              `json:"bikes"`
	Drivers       []Driver            `json:"drivers"`
	Payments      []Payment           `json:"payments"`
	Maintenance   []MaintenanceRecord `json:"maintenance"`
	Fines         []TrafficFine       `json:"fines"`
	Accidents     []AccidentReport    `json:"accidents"`
	Workshops     []Workshop          `json:"workshops"`
	Notifications []Notification      `json:"notifications"`
}

// Normalize replaces nil collections with empty ones so they encode as [].
func (p *Payload) Normalize() {
	if p.Bikes == nil {
		p.Bikes = []Bike{}
	}
	if p.Drivers == nil {
		p.Drivers = []Driver{}
	}
	if p.Payments == nil {
		p.Payments = []Payment{}
	}
	if p.Maintenance == nil {
		p.Maintenance = []MaintenanceRecord{}
	}
	if p.Fines == nil {
		p.Fines = []TrafficFine{}
	}
	if p.Accidents == nil {
		p.Accidents = []AccidentReport{}
	}
	if p.Workshops == nil {
		p.Workshops = []Workshop{}
	}
	if p.Notifications == nil {
		p.Notifications = []Notification{}
	}
}

// Entity is any record keyed by an opaque string id.
type Entity interface {
	EntityID() string
}
