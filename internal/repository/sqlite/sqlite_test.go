package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/remo/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" gives every test a fresh, fully migrated database that
// disappears when the connection closes. No files, no cleanup scripts, and
// tests can run in parallel without seeing each other's rows.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err, "creating test db")
	t.Cleanup(func() { db.Close() })
	return db
}

// repSeed describes one user to insert with createTestRep.
type repSeed struct {
	username    string
	first, last string
	email       string
	displayName string
	ircName     string
	city        string
	groups      []string
	channels    []string
	mentorID    *string
}

// createTestRep inserts a user, their profile, group memberships and
// channel memberships, creating channels on first use.
func createTestRep(t *testing.T, db *DB, s repSeed) model.Rep {
	t.Helper()
	ctx := context.Background()

	user := &model.User{
		Username:  s.username,
		Email:     s.email,
		FirstName: s.first,
		LastName:  s.last,
		IsActive:  true,
	}
	require.NoError(t, db.CreateUser(ctx, user))

	profile := &model.UserProfile{
		UserID:              user.ID,
		PrivateEmailVisible: true,
		MentorID:            s.mentorID,
	}
	if s.displayName != "" {
		profile.DisplayName = &s.displayName
	}
	if s.ircName != "" {
		profile.IRCName = &s.ircName
	}
	if s.city != "" {
		profile.City = &s.city
	}
	require.NoError(t, db.CreateProfile(ctx, profile))

	for _, g := range s.groups {
		require.NoError(t, db.AddUserToGroup(ctx, user.ID, g))
	}

	for _, name := range s.channels {
		ch, err := db.GetChannelByName(ctx, name)
		if err != nil {
			ch = &model.IRCChannel{Name: name}
			require.NoError(t, db.CreateChannel(ctx, ch))
		}
		require.NoError(t, db.JoinChannel(ctx, profile.ID, ch.ID))
	}

	return model.Rep{User: *user, Profile: *profile, Groups: s.groups}
}

func TestNew_MigratesToLatest(t *testing.T) {
	db := newTestDB(t)

	version, err := db.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)
}

func TestNew_SeedsDefaultGroups(t *testing.T) {
	db := newTestDB(t)

	var names []string
	err := db.Conn().Select(&names, `SELECT name FROM auth_groups ORDER BY name`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Admin", "Mentor", "Rep"}, names)
}

func TestNew_ForeignKeysEnforced(t *testing.T) {
	db := newTestDB(t)

	err := db.CreateProfile(context.Background(), &model.UserProfile{UserID: "no-such-user"})
	assert.Error(t, err, "profile for a missing user must violate the foreign key")
}
