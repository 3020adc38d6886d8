package domain

import (
	"errors"
	"strings"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser          Role = "USER"
	RoleAdministrator Role = "ADMINISTRATOR"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdministrator
}

// CanActFor reports whether an actor with this role may act on the account
// owned by ownerID: owners always may, administrators may for anyone.
func (r Role) CanActFor(actorID, ownerID int64) bool {
	return actorID == ownerID || r == RoleAdministrator
}

// User is the core account entity. Password holds the bcrypt hash, never the
// plaintext.
type User struct {
	ID        int64
	Email     string
	Password  string
	Username  string
	Bio       string
	Role      Role
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeEmail lowercases and trims an email for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate validates the user for persistence. Returns an error describing
// the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Password == "" {
		return errors.New("password hash is required")
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if !u.Role.Valid() {
		return errors.New("unknown role")
	}
	return nil
}
