package domain

import "time"

// Platform roles, matching the user-record enum.
const (
	RoleAdmin     = "admin"
	RoleUser      = "user"
	RoleRecruiter = "recruiter"
)

type User struct {
	ID           string
	Email        string // normalized (lowercase, trimmed)
	FullName     string
	PasswordHash string // argon2id PHC encoded
	Role         string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the verified, read-only view of a user handed to request
// handlers. It is derived once per verification and never mutated; a later
// request that observes different user state produces a new Identity.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
	Role        string
	Active      bool
}

// IdentityOf derives an Identity snapshot from a user record.
func IdentityOf(u User) Identity {
	return Identity{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.FullName,
		Role:        u.Role,
		Active:      u.Active,
	}
}
