package models

// Account is the user record owned by the external user store.
type Account struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

// Identity maps the record onto a request principal. Roles the portal does
// not know about collapse to RoleUser.
func (a Account) Identity() Identity {
	role, ok := ParseRole(a.Role)
	if !ok {
		role = RoleUser
	}

	return Identity{ID: a.ID, Role: role}
}
