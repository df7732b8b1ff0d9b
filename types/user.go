package types

// User represents a dashboard account.
// Users are created out-of-band by the seed-admin command and are never
// mutated by the HTTP API.
type User struct {
	// ID is the numeric identifier of the user.
	ID int `json:"id" db:"id"`

	// UUID is the external-facing identifier of the user.
	UUID string `json:"uuid" db:"uuid"`

	// Name is the user's display name. It doubles as a login identifier.
	Name string `json:"name" db:"name"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Role is a free-form authorization label (e.g., "admin").
	Role string `json:"role" db:"role"`
}

// SafeUser is the projection of a User that may be returned to clients
// and stored inside a session payload.
type SafeUser struct {
	ID    int    `json:"id"`
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Safe returns the client-safe projection of the user.
func (u User) Safe() SafeUser {
	return SafeUser{
		ID:    u.ID,
		UUID:  u.UUID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
