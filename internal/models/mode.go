package models

// Mode represents the console mode a session runs in
type Mode string

const (
	ModeAdmin    Mode = "admin"
	ModeDriver   Mode = "driver"
	ModeMechanic Mode = "mechanic"
)

// View names a console screen.
type View string

const (
	ViewDashboard     View = "dashboard"
	ViewFleet         View = "fleet"
	ViewDrivers       View = "drivers"
	ViewPayments      View = "payments"
	ViewMaintenance   View = "maintenance"
	ViewFines         View = "fines"
	ViewAccidents     View = "accidents"
	ViewWorkshops     View = "workshops"
	ViewNotifications View = "notifications"
	ViewSettings      View = "settings"
)

// Claims represents session token claims
type Claims struct {
	Mode     Mode   `json:"mode"`
	FleetID  string `json:"fleet_id"`
	DeviceID string `json:"device_id,omitempty"`
	Exp      int64  `json:"exp"`
}

// SessionRequest opens a console session in the requested mode.
type SessionRequest struct {
	Mode        Mode   `json:"mode"`
	FleetID     string `json:"fleetId"`
	Passcode    string `json:"passcode,omitempty"`
	DeviceID    string `json:"deviceId,omitempty"`
	TrustDevice bool   `json:"trustDevice,omitempty"`
}

// SessionResponse is returned when a session is opened
type SessionResponse struct {
	Token    string `json:"token"`
	Mode     Mode   `json:"mode"`
	FleetID  string `json:"fleetId"`
	DeviceID string `json:"deviceId,omitempty"`
	Trusted  bool   `json:"trusted"`
}

// IsValidMode checks if a mode is valid
func IsValidMode(mode Mode) bool {
	switch mode {
	case ModeAdmin, ModeDriver, ModeMechanic:
		return true
	default:
		return false
	}
}

// CanView reports whether the mode may open the given view.
func (m Mode) CanView(view View) bool {
	switch m {
	case ModeAdmin:
		return true
	case ModeDriver:
		return view == ViewPayments || view == ViewFines || view == ViewAccidents
	case ModeMechanic:
		return view == ViewFleet || view == ViewMaintenance ||
			view == ViewWorkshops || view == ViewAccidents
	default:
		return false
	}
}
