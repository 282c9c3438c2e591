// Package model defines the data structures used throughout the application.
package model

import "time"

// Well-known group names. Group membership drives both which users the rep
// resource lists and who may see restricted fields.
const (
	GroupRep    = "Rep"
	GroupMentor = "Mentor"
	GroupAdmin  = "Admin"
)

// User is an account that can sign in. Profiles hang off users 1:1.
//
// WHY GitHubLogin *string?
// Linking a GitHub account is optional, and the column is UNIQUE. SQLite
// allows many NULLs under a UNIQUE constraint but only one empty string, so
// "not linked" has to be NULL rather than "".
type User struct {
	ID           string    `json:"id"          db:"id"`
	Username     string    `json:"username"    db:"username"`
	Email        string    `json:"email"       db:"email"`
	FirstName    string    `json:"firstName"   db:"first_name"`
	LastName     string    `json:"lastName"    db:"last_name"`
	PasswordHash string    `json:"-"           db:"password_hash"`
	GitHubLogin  *string   `json:"githubLogin" db:"github_login"`
	IsActive     bool      `json:"isActive"    db:"is_active"`
	DateJoined   time.Time `json:"dateJoined"  db:"date_joined"`
	CreatedAt    time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"   db:"updated_at"`
}

// FullName joins first and last name, dropping the separator when either
// half is missing.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
