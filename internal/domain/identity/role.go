package identity

import (
	"strings"

	"github.com/pharmanet/backend/internal/domain/shared"
)

// Role is the single party role carried by an account
type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
)

// Aliases accepted on input. Pharmacists buy, suppliers sell.
const (
	aliasPharmacist = "PHARMACIST"
	aliasSupplier   = "SUPPLIER"
)

// IsValid checks if the role is one of the known roles
func (r Role) IsValid() bool {
	return r == RoleBuyer || r == RoleSeller
}

func (r Role) String() string {
	return string(r)
}

// ParseRole resolves a role name, accepting PHARMACIST and SUPPLIER as aliases
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(RoleBuyer), aliasPharmacist:
		return RoleBuyer, nil
	case string(RoleSeller), aliasSupplier:
		return RoleSeller, nil
	}
	return "", shared.NewInvalidInputError("role", "role must be BUYER (PHARMACIST) or SELLER (SUPPLIER)")
}
