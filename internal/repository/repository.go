// Package repository declares the storage interfaces the service layer
// depends on. The only implementation lives in repository/sqlite; tests use
// in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/remo/internal/model"
)

// Lookups a FieldFilter may use. LookupExact is the default when a filter
// key has no "__lookup" suffix.
const (
	LookupExact       = "exact"
	LookupIExact      = "iexact"
	LookupIContains   = "icontains"
	LookupIStartsWith = "istartswith"
)

// FieldFilter is one per-field condition, e.g. profile__display_name__iexact=zig
// becomes {Field: "profile__display_name", Lookup: "iexact", Value: "zig"}.
type FieldFilter struct {
	Field  string
	Lookup string
	Value  string
}

// RepFilter selects members of the Rep group.
//
// Query is free text matched case-insensitively as a substring against
// first name, last name, email, display name and IRC nick.
// Limit 0 means "no limit" (used by exports).
type RepFilter struct {
	Query  string
	Fields []FieldFilter
	Limit  int
	Offset int
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByGitHubLogin(ctx context.Context, login string) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
	AddUserToGroup(ctx context.Context, userID, group string) error
	UserGroups(ctx context.Context, userID string) ([]string, error)
}

type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile *model.UserProfile) error
	GetProfileByUserID(ctx context.Context, userID string) (*model.UserProfile, error)
}

type ChannelRepository interface {
	CreateChannel(ctx context.Context, channel *model.IRCChannel) error
	GetChannelByName(ctx context.Context, name string) (*model.IRCChannel, error)
	// JoinChannel is idempotent: joining a channel twice keeps one membership.
	JoinChannel(ctx context.Context, profileID, channelID string) error
	ProfileChannels(ctx context.Context, profileID string) ([]model.IRCChannel, error)
}

// RepRepository reads the Rep aggregate (user + profile + groups + channels).
type RepRepository interface {
	// ListReps returns one page of reps and the total number of matches.
	ListReps(ctx context.Context, filter RepFilter) ([]model.Rep, int, error)
	GetRep(ctx context.Context, userID string) (*model.Rep, error)
}

// Transactor runs fn inside a write transaction. Repository calls made with
// the ctx passed to fn join that transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
