// Package permissions evaluates the opaque permission strings carried in
// access-token claims. Permission management lives upstream; this package
// only answers "does this set grant resource/action".
package permissions

import "strings"

// Resources gated in this backend.
const (
	ResourceRoomManagement    = "ROOM_MANAGEMENT"
	ResourceBookingManagement = "BOOKING_MANAGEMENT"
	ResourceRefundManagement  = "REFUND_MANAGEMENT"
)

// Actions on a resource.
const (
	ActionRead  = "READ"
	ActionWrite = "WRITE"
)

// Checker evaluates permission strings of the form "RESOURCE.ACTION".
// "RESOURCE.*" grants every action on a resource and "*" grants everything.
type Checker struct{}

// NewChecker creates a new Checker
func NewChecker() *Checker { return &Checker{} }

// Has reports whether the permission set grants action on resource.
func (c *Checker) Has(userPermissions []string, resource, action string) bool {
	want := resource + "." + action
	wildcard := resource + ".*"
	for _, p := range userPermissions {
		p = strings.TrimSpace(p)
		if p == "*" || p == want || p == wildcard {
			return true
		}
	}
	return false
}
