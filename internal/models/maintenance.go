package models

// ServiceType is the kind of work done on a bike.
type ServiceType string

const (
	ServiceRoutine    ServiceType = "routine"
	ServiceRepair     ServiceType = "repair"
	ServiceTyres      ServiceType = "tyres"
	ServiceBrakes     ServiceType = "brakes"
	ServiceEngine     ServiceType = "engine"
	ServiceElectrical ServiceType = "electrical"
	ServiceOther      ServiceType = "other"
)

// MaintenanceRecord represents a bike maintenance record.
//
// PerformedBy holds the workshop name rather than its id, so renaming or
// deleting a workshop leaves older records pointing at a name that no longer
// exists.
type MaintenanceRecord struct {
	ID             string      `json:"id"`
	BikeID         string      `json:"bikeId" validate:"required"`
	Date           Date        `json:"date"`
	ServiceType    ServiceType `json:"serviceType" validate:"required,oneof=routine repair tyres brakes engine electrical other"`
	Description    string      `json:"description"`
	Cost           float64     `json:"cost" validate:"gte=0"`
	PerformedBy    string      `json:"performedBy"`
	WarrantyMonths int         `json:"warrantyMonths,omitempty" validate:"gte=0"`
	Odometer       float64     `json:"odometer,omitempty" validate:"gte=0"` // in kilometers
}

// EntityID returns the record id.
func (m MaintenanceRecord) EntityID() string { return m.ID }
