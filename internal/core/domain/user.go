package domain

// RoleUser is the only role assigned by this service.
const RoleUser = "user"

// User is a principal known to the system. Users are created lazily on first
// contact and never modified afterwards.
type User struct {
	ID        Principal `json:"user_principal"`
	CreatedAt uint64    `json:"created_at"`
	Role      string    `json:"role"`
}

// NewUser creates a user record stamped with now (nanoseconds).
func NewUser(id Principal, now uint64) User {
	return User{
		ID:        id,
		CreatedAt: now,
		Role:      RoleUser,
	}
}
