package model

// Role decides which access scope a user receives.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RolePartner Role = "PARTNER"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RolePartner
}
