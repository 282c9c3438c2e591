package model

import (
	"time"

	"github.com/samber/lo"
)

// UserProfile holds the contact, social and location details of a user.
//
// Nullable columns are pointers: nil means "never set", which the API renders
// as null. The exceptions are PrivateEmailVisible and InitialCouncil, which
// are NOT NULL booleans with defaults (true and false respectively).
type UserProfile struct {
	ID                  string     `db:"id"`
	UserID              string     `db:"user_id"`
	BirthDate           *time.Time `db:"birth_date"`
	City                *string    `db:"city"`
	Region              *string    `db:"region"`
	Country             *string    `db:"country"`
	Lon                 *float64   `db:"lon"`
	Lat                 *float64   `db:"lat"`
	DisplayName         *string    `db:"display_name"`
	PrivateEmail        *string    `db:"private_email"`
	PrivateEmailVisible bool       `db:"private_email_visible"`
	MozilliansURL       string     `db:"mozillians_profile_url"`
	TwitterAccount      *string    `db:"twitter_account"`
	GPGKey              *string    `db:"gpg_key"`
	IRCName             *string    `db:"irc_name"`
	LinkedInURL         *string    `db:"linkedin_url"`
	FacebookURL         *string    `db:"facebook_url"`
	DiasporaURL         *string    `db:"diaspora_url"`
	PersonalWebsiteURL  *string    `db:"personal_website_url"`
	PersonalBlogFeed    *string    `db:"personal_blog_feed"`
	MentorID            *string    `db:"mentor_id"`
	InitialCouncil      bool       `db:"initial_council"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// IRCChannel is a chat channel a profile can be a member of.
type IRCChannel struct {
	ID          string `json:"id"          db:"id"`
	Name        string `json:"name"        db:"name"`
	Description string `json:"description" db:"description"`
}

// Rep is the aggregate the rep resource is built from: the account, its
// profile, the names of its groups and its channel memberships.
type Rep struct {
	User     User
	Profile  UserProfile
	Groups   []string
	Channels []IRCChannel
}

// InGroup reports whether the rep's user belongs to the named group.
func (r *Rep) InGroup(name string) bool {
	return lo.Contains(r.Groups, name)
}
