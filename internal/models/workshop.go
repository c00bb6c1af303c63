package models

import "time"

// Workshop is a partner repair shop.
type Workshop struct {
	ID        string  `json:"id"`
	Name      string  `json:"name" validate:"required"`
	Phone     string  `json:"phone"`
	Address   string  `json:"address,omitempty"`
	Specialty string  `json:"specialty,omitempty"`
	Rating    float64 `json:"rating,omitempty" validate:"gte=0,lte=5"`
}

// EntityID returns the workshop id.
func (w Workshop) EntityID() string { return w.ID }

// NotificationQueued is the only status the automation checker emits.
const NotificationQueued = "queued"

// NotificationArrears marks a payment arrears reminder.
const NotificationArrears = "arrears"

// Notification is a reminder produced by the automation checker.
type Notification struct {
	ID         string    `json:"id"`
	DriverID   string    `json:"driverId"`
	DriverName string    `json:"driverName"`
	Type       string    `json:"type"`
	Message    string    `json:"message"`
	AmountDue  float64   `json:"amountDue"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// EntityID returns the notification id.
func (n Notification) EntityID() string { return n.ID }

// FleetInfo is an entry in the master tenant registry.
type FleetInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
