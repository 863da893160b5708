// Package model defines the data structures used throughout the application.
// Entities are plain structs with explicit foreign-key ID fields; persistence
// lives behind the repository interfaces.
package model

import (
	"fmt"
	"time"
)

// Role is the closed set of user roles. A user has no role until they
// complete their profile, and the role is immutable once assigned.
type Role string

const (
	RoleMentee Role = "MENTEE"
	RoleMentor Role = "MENTOR"
)

// ParseRole converts a stored or client-supplied string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleMentee, RoleMentor:
		return Role(s), nil
	}
	return "", fmt.Errorf("model: unknown role %q", s)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleMentee || r == RoleMentor
}

// DefaultQuota is the letter allowance assigned to a new user. Each sent
// letter (mentee submission or mentor reply) consumes one.
const DefaultQuota = 5

// User is a registered account.
//
// Identity comes from the OAuth provider, so (Provider, ProviderID) is the
// unique external key; we still generate our own xid primary key rather than
// adopting the provider's numbering. Role, BirdID and CategoryID stay empty
// until the user completes their profile after signup.
type User struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	ProviderID  string    `json:"providerId"`
	Email       string    `json:"email"`
	Nickname    string    `json:"nickname"`
	BirthYear   int       `json:"birthYear"`
	Role        Role      `json:"role"`
	BirdID      string    `json:"birdId"`
	CategoryID  string    `json:"categoryId"`
	Quota       int       `json:"quota"`
	RefreshHash string    `json:"-"` // bcrypt hash of the refresh token secret
	CreatedAt   time.Time `json:"createdAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}

// Bird is the avatar a user picks during profile completion.
type Bird struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Category is a letter topic. Letters carry the category name denormalised
// so the content record stays immutable even if reference data changes.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
