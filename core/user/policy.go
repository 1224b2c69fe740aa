package user

// AccessPolicy is the single capability check consulted before any
// consumer-scoped operation.
type AccessPolicy interface {
	CanActFor(actor Actor, schoolID uint64) bool
}

// ScopePolicy grants admins everything and school users their own school
// only.
type ScopePolicy struct{}

func (ScopePolicy) CanActFor(actor Actor, schoolID uint64) bool {
	if actor.Role == RoleAdmin {
		return true
	}
	return actor.SchoolID != 0 && actor.SchoolID == schoolID
}
