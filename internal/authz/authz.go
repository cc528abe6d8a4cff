// Package authz resolves what a user may do from their role and
// verification state. Every authorization check goes through Resolve.
package authz

import "parking-share-backend/internal/model"

// Capability is a single permission.
type Capability int

const (
	// CapBook allows reserving other residents' spots.
	CapBook Capability = iota
	// CapOffer allows claiming and listing spots.
	CapOffer
	// CapApprove allows approving claims and spots and running admin tasks.
	CapApprove
)

func (c Capability) String() string {
	switch c {
	case CapBook:
		return "book"
	case CapOffer:
		return "offer"
	case CapApprove:
		return "approve"
	}
	return "unknown"
}

// Capabilities is the resolved permission set of one user.
type Capabilities struct {
	CanBook    bool `json:"can_book"`
	CanOffer   bool `json:"can_offer"`
	CanApprove bool `json:"can_approve"`
}

// Resolve maps user state to capabilities. A nil user has none.
func Resolve(u *model.User) Capabilities {
	if u == nil {
		return Capabilities{}
	}
	return Capabilities{
		CanBook:    u.Verified,
		CanOffer:   u.Verified && u.Role == model.RoleResident,
		CanApprove: u.Role == model.RoleAdmin,
	}
}

// Has reports whether the set contains c.
func (c Capabilities) Has(want Capability) bool {
	switch want {
	case CapBook:
		return c.CanBook
	case CapOffer:
		return c.CanOffer
	case CapApprove:
		return c.CanApprove
	}
	return false
}
