package domain

import (
	"strings"

	dErrors "pharmledger/pkg/domain-errors"
)

// Role is a capability flag held by an account, gating which mutating
// operations it may invoke. An account may hold any number of the four domain
// roles at once.
//
// Admin is a distinct bootstrap capability fixed at initialization. It is
// deliberately not parseable: AssignRole must reject attempts to (re)grant it.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleManufacturer Role = "manufacturer"
	RoleDoctor       Role = "doctor"
	RoleWholesaler   Role = "wholesaler"
	RolePharmacy     Role = "pharmacy"
)

// DomainRoles lists the assignable roles in a stable order.
var DomainRoles = []Role{RoleManufacturer, RoleDoctor, RoleWholesaler, RolePharmacy}

// IssuerRoles are the roles with credential-issuing capability.
var IssuerRoles = []Role{RoleDoctor, RoleManufacturer, RolePharmacy}

// ParseRole validates an assignable domain role. Admin never parses: it is
// not granted through the assignment path.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleManufacturer:
		return RoleManufacturer, nil
	case RoleDoctor:
		return RoleDoctor, nil
	case RoleWholesaler:
		return RoleWholesaler, nil
	case RolePharmacy:
		return RolePharmacy, nil
	default:
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown role %q", s)
	}
}

func (r Role) String() string { return string(r) }
