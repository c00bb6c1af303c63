package models

// PaymentType classifies a payment.
type PaymentType string

const (
	PaymentRental  PaymentType = "rental"
	PaymentDeposit PaymentType = "deposit"
	PaymentFine    PaymentType = "fine"
)

// Payment is money received from a driver. Negative amounts are corrections
// or refunds.
type Payment struct {
	ID         string      `json:"id"`
	DriverID   string      `json:"driverId" validate:"required"`
	Amount     float64     `json:"amount"`
	Date       Date        `json:"date"`
	WeekNumber int         `json:"weekNumber" validate:"gte=0,lte=5"` // 1..5, bucketed from day of month
	Type       PaymentType `json:"type" validate:"required,oneof=rental deposit fine"`
	Notes      string      `json:"notes,omitempty"`
}

// EntityID returns the payment id.
func (p Payment) EntityID() string { return p.ID }
