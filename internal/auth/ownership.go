package auth

// OwnershipPolicy authorizes mutations of user-owned resources.
type OwnershipPolicy struct{}

// Authorize allows the principal iff it authored the resource.
func (OwnershipPolicy) Authorize(p *Principal, resourceAuthorID string) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if p.UserID == "" || p.UserID != resourceAuthorID {
		return ErrForbidden
	}
	return nil
}
