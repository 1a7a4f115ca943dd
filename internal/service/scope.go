package service

import "consultdesk/internal/models"

// ListScope says which consultations a caller may see.
type ListScope struct {
	All     bool
	OwnerID string
}

// ScopeFor derives the listing scope from the verified identity and the
// caller's stored profile. Only an admin profile belonging to the same
// identity widens the scope.
func ScopeFor(identity *models.Identity, user *models.User) ListScope {
	if identity == nil {
		return ListScope{}
	}
	if user != nil && user.IsAdmin && user.ID == identity.ID {
		return ListScope{All: true}
	}
	return ListScope{OwnerID: identity.ID}
}

// Allows reports whether a consultation falls inside the scope.
func (s ListScope) Allows(c *models.Consultation) bool {
	if s.All {
		return true
	}
	return s.OwnerID != "" && c.UserID == s.OwnerID
}
