// Package ids generates entity identifiers.
package ids

import "github.com/google/uuid"

// Entity id prefixes.
const (
	Bike         = "bike"
	Driver       = "drv"
	Payment      = "pay"
	Maintenance  = "mnt"
	Fine         = "fine"
	Accident     = "acc"
	Workshop     = "ws"
	Notification = "ntf"
)

// Generator produces a new id for a prefix.
type Generator func(prefix string) string

// New returns "{prefix}-{uuid}". Unlike the timestamp ids found in older
// data, two calls within the same millisecond never collide.
func New(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
