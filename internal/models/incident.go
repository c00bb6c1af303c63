package models

// FineStatus is the settlement state of a traffic fine.
type FineStatus string

const (
	FineUnpaid      FineStatus = "unpaid"
	FinePaid        FineStatus = "paid"
	FineDisputed    FineStatus = "disputed"
	FineTransferred FineStatus = "transferred"
)

// IsValidFineStatus checks if a fine status is known
func IsValidFineStatus(s FineStatus) bool {
	switch s {
	case FineUnpaid, FinePaid, FineDisputed, FineTransferred:
		return true
	default:
		return false
	}
}

// TrafficFine is a fine issued against a bike while a driver had it.
type TrafficFine struct {
	ID          string     `json:"id"`
	BikeID      string     `json:"bikeId" validate:"required"`
	DriverID    string     `json:"driverId"`
	Date        Date       `json:"date"`
	Amount      float64    `json:"amount" validate:"gte=0"`
	Reference   string     `json:"reference"`
	Description string     `json:"description"`
	Location    string     `json:"location,omitempty"`
	Status      FineStatus `json:"status" validate:"required,oneof=unpaid paid disputed transferred"`
}

// EntityID returns the fine id.
func (f TrafficFine) EntityID() string { return f.ID }

// AccidentStatus is the handling state of an accident report.
type AccidentStatus string

const (
	AccidentReported  AccidentStatus = "reported"
	AccidentAssessing AccidentStatus = "assessing"
	AccidentRepairing AccidentStatus = "repairing"
	AccidentClosed    AccidentStatus = "closed"
)

// IsValidAccidentStatus checks if an accident status is known
func IsValidAccidentStatus(s AccidentStatus) bool {
	switch s {
	case AccidentReported, AccidentAssessing, AccidentRepairing, AccidentClosed:
		return true
	default:
		return false
	}
}

// AccidentReport records an accident involving a bike and driver.
type AccidentReport struct {
	ID          string         `json:"id"`
	BikeID      string         `json:"bikeId" validate:"required"`
	DriverID    string         `json:"driverId"`
	Date        Date           `json:"date"`
	Location    string         `json:"location"`
	Description string         `json:"description"`
	Severity    string         `json:"severity" validate:"omitempty,oneof=minor moderate severe"`
	Status      AccidentStatus `json:"status" validate:"required,oneof=reported assessing repairing closed"`
	RepairCost  float64        `json:"repairCost,omitempty" validate:"gte=0"`
}

// EntityID returns the report id.
func (a AccidentReport) EntityID() string { return a.ID }
