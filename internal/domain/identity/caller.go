package identity

import (
	"github.com/google/uuid"
	"github.com/pharmanet/backend/internal/domain/shared"
)

// Caller is the authenticated identity on whose behalf an operation runs.
// It is passed explicitly into every workflow operation.
type Caller struct {
	ID   uuid.UUID
	Role Role
}

// NewCaller builds a caller from an account id and role
func NewCaller(id uuid.UUID, role Role) Caller {
	return Caller{ID: id, Role: role}
}

func (c Caller) IsBuyer() bool {
	return c.Role == RoleBuyer
}

func (c Caller) IsSeller() bool {
	return c.Role == RoleSeller
}

// Is reports whether the caller is the given account
func (c Caller) Is(accountID uuid.UUID) bool {
	return c.ID != uuid.Nil && c.ID == accountID
}

// RequireRole fails with UNAUTHORIZED unless the caller holds role
func (c Caller) RequireRole(role Role, action string) error {
	if c.ID == uuid.Nil || c.Role != role {
		return shared.NewUnauthorizedError(action, c.ID)
	}
	return nil
}

// RequireParty fails with UNAUTHORIZED unless the caller is one of the given accounts
func (c Caller) RequireParty(action string, accountIDs ...uuid.UUID) error {
	for _, id := range accountIDs {
		if c.Is(id) {
			return nil
		}
	}
	return shared.NewUnauthorizedError(action, c.ID)
}
