// Package domain contains the timesheet entities shared by all modules.
package domain

// Role represents a user's role. Roles are a flat enumeration, not a hierarchy.
type Role string

// Roles.
const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// IsValid checks if the role is valid.
func (r Role) IsValid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User represents a person who logs or reviews time.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}

// Actor is the identity performing a request.
type Actor struct {
	ID   string
	Role Role
}
