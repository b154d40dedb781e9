// Package model defines domain entities for the application.
package model

import "time"

// Role is the fixed authorization role of a user.
type Role string

// Role constants.
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is an account that logs time or administers projects.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // Never serialize
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin returns true for ADMIN accounts.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AuthContext holds the identity resolved from a session token.
// It is injected into the request context by the auth middleware.
type AuthContext struct {
	UserID    string
	Email     string
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}
