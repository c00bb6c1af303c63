package models

// Driver represents a rider who rents a bike.
type Driver struct {
	ID              string `json:"id"`
	Name            string `json:"name" validate:"required"`
	IDNumber        string `json:"idNumber" validate:"required"`
	Phone           string `json:"phone"`
	Email           string `json:"email,omitempty" validate:"omitempty,email"`
	Address         string `json:"address,omitempty"`
	LicenseExpiry   Date   `json:"licenseExpiry"`
	PDPExpiry       Date   `json:"pdpExpiry"`
	EnatisVerified  bool   `json:"enatisVerified"`
	ContactVerified bool   `json:"contactVerified"`
	JoinedAt        Date   `json:"joinedAt"`
}

// EntityID returns the driver id.
func (d Driver) EntityID() string { return d.ID }

// VerificationCheck names one of the simulated third-party driver checks.
type VerificationCheck string

const (
	CheckEnatis  VerificationCheck = "enatis"
	CheckContact VerificationCheck = "contact"
)

// IsValidCheck checks if a verification check is known
func IsValidCheck(c VerificationCheck) bool {
	return c == CheckEnatis || c == CheckContact
}
