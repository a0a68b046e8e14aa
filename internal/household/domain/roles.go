package household

// Role represents an account-level permission tier.
type Role string

const (
	// RoleTrusted may revoke membership.
	RoleTrusted Role = "trusted"
	// RoleOperator may mutate the portfolio and trigger payments.
	RoleOperator Role = "operator"
)

// NormalizeRole validates and normalizes a role string.
func NormalizeRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleTrusted, RoleOperator:
		return Role(value), true
	default:
		return "", false
	}
}

// RoleSet is a bitset of granted roles for a principal.
type RoleSet uint8

const (
	roleBitTrusted RoleSet = 1 << iota
	roleBitOperator
)

func roleBit(role Role) RoleSet {
	switch role {
	case RoleTrusted:
		return roleBitTrusted
	case RoleOperator:
		return roleBitOperator
	default:
		return 0
	}
}

// Has reports whether the set contains the role.
func (s RoleSet) Has(role Role) bool {
	bit := roleBit(role)
	return bit != 0 && s&bit != 0
}

// Grant returns the set with the role added.
func (s RoleSet) Grant(role Role) RoleSet {
	return s | roleBit(role)
}

// Revoke returns the set with the role removed.
func (s RoleSet) Revoke(role Role) RoleSet {
	return s &^ roleBit(role)
}
