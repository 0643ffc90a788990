package domain

// Role values forwarded by the identity provider.
const (
	RoleCreator = "creator"
	RoleViewer  = "viewer"
	RoleAdmin   = "administrator"
)

// Identity is the authenticated requester as asserted by the upstream
// identity provider.
type Identity struct {
	UserID string
	Role   string
}

// CanAccessTrip reports whether the identity may export or inspect the trip.
// Administrators see every trip; everyone else only their own.
func (i Identity) CanAccessTrip(t Trip) bool {
	return i.Role == RoleAdmin || (i.UserID != "" && i.UserID == t.OwnerID)
}
