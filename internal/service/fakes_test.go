package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/sakif/remo/internal/apperror"
	"github.com/sakif/remo/internal/model"
	"github.com/sakif/remo/internal/repository"
)

// =========================================================================
// FAKES
// =========================================================================
//
// fakeStore is one in-memory implementation of every repository interface.
// A fake (not a mocking framework) keeps the tests readable: what a call
// does is right here, in plain Go.
//
// Set the *Err fields to simulate storage failures.

type fakeStore struct {
	users    map[string]*model.User
	profiles map[string]*model.UserProfile // by user ID
	groups   map[string][]string           // by user ID
	channels map[string]*model.IRCChannel  // by ID
	joined   map[string][]string           // profile ID → channel IDs
	nextID   int

	listErr    error
	getUserErr error
	failOn     string // CreateProfile fails when DisplayName equals this
	txCalls    int
	lastFilter repository.RepFilter
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]*model.User{},
		profiles: map[string]*model.UserProfile{},
		groups:   map[string][]string{},
		channels: map[string]*model.IRCChannel{},
		joined:   map[string][]string{},
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

// addRep seeds a user with profile and groups, bypassing validation.
func (f *fakeStore) addRep(username, email, displayName string, groups ...string) *model.User {
	u := &model.User{ID: f.id("user"), Username: username, Email: email, FirstName: strings.ToUpper(username[:1]) + username[1:], IsActive: true}
	f.users[u.ID] = u
	p := &model.UserProfile{ID: f.id("profile"), UserID: u.ID, PrivateEmailVisible: true}
	if displayName != "" {
		p.DisplayName = &displayName
	}
	f.profiles[u.ID] = p
	f.groups[u.ID] = groups
	return u
}

// --- UserRepository ---

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return apperror.Conflict("user", "username", u.Username)
		}
	}
	u.ID = f.id("user")
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeStore) GetUserByGitHubLogin(_ context.Context, login string) (*model.User, error) {
	for _, u := range f.users {
		if u.GitHubLogin != nil && *u.GitHubLogin == login {
			return u, nil
		}
	}
	return nil, apperror.NotFound("user", login)
}

func (f *fakeStore) DeleteUser(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(f.users, id)
	delete(f.profiles, id)
	delete(f.groups, id)
	return nil
}

func (f *fakeStore) AddUserToGroup(_ context.Context, userID, group string) error {
	if !slices.Contains(f.groups[userID], group) {
		f.groups[userID] = append(f.groups[userID], group)
	}
	return nil
}

func (f *fakeStore) UserGroups(_ context.Context, userID string) ([]string, error) {
	g := slices.Clone(f.groups[userID])
	slices.Sort(g)
	return g, nil
}

// --- ProfileRepository ---

func (f *fakeStore) CreateProfile(_ context.Context, p *model.UserProfile) error {
	if p.DisplayName != nil && *p.DisplayName == f.failOn {
		return apperror.Conflict("profile", "display_name", f.failOn)
	}
	p.ID = f.id("profile")
	copied := *p
	f.profiles[p.UserID] = &copied
	return nil
}

func (f *fakeStore) GetProfileByUserID(_ context.Context, userID string) (*model.UserProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, apperror.NotFound("profile", userID)
	}
	return p, nil
}

// --- ChannelRepository ---

func (f *fakeStore) CreateChannel(_ context.Context, c *model.IRCChannel) error {
	c.ID = f.id("chan")
	copied := *c
	f.channels[c.ID] = &copied
	return nil
}

func (f *fakeStore) GetChannelByName(_ context.Context, name string) (*model.IRCChannel, error) {
	for _, c := range f.channels {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, apperror.NotFound("channel", name)
}

func (f *fakeStore) JoinChannel(_ context.Context, profileID, channelID string) error {
	if !slices.Contains(f.joined[profileID], channelID) {
		f.joined[profileID] = append(f.joined[profileID], channelID)
	}
	return nil
}

func (f *fakeStore) ProfileChannels(_ context.Context, profileID string) ([]model.IRCChannel, error) {
	out := []model.IRCChannel{}
	for _, id := range f.joined[profileID] {
		out = append(out, *f.channels[id])
	}
	return out, nil
}

// --- RepRepository ---

func (f *fakeStore) rep(userID string) (*model.Rep, bool) {
	u, ok := f.users[userID]
	if !ok {
		return nil, false
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, false
	}
	chans, _ := f.ProfileChannels(context.Background(), p.ID)
	groups, _ := f.UserGroups(context.Background(), userID)
	return &model.Rep{User: *u, Profile: *p, Groups: groups, Channels: chans}, true
}

// ListReps implements the query over username, email and display name only;
// the SQL version is tested against a real database.
func (f *fakeStore) ListReps(_ context.Context, filter repository.RepFilter) ([]model.Rep, int, error) {
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, 0, f.listErr
	}

	var out []model.Rep
	for id := range f.users {
		r, ok := f.rep(id)
		if !ok || !r.InGroup(model.GroupRep) {
			continue
		}
		q := strings.ToLower(filter.Query)
		display := ""
		if r.Profile.DisplayName != nil {
			display = *r.Profile.DisplayName
		}
		if q != "" && !strings.Contains(strings.ToLower(r.User.Email), q) &&
			!strings.Contains(strings.ToLower(display), q) &&
			!strings.Contains(strings.ToLower(r.User.Username), q) {
			continue
		}
		out = append(out, *r)
	}
	slices.SortFunc(out, func(a, b model.Rep) int { return strings.Compare(a.User.Username, b.User.Username) })

	total := len(out)
	if filter.Offset > 0 {
		out = out[min(filter.Offset, len(out)):]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (f *fakeStore) GetRep(_ context.Context, userID string) (*model.Rep, error) {
	r, ok := f.rep(userID)
	if !ok {
		return nil, apperror.NotFound("rep", userID)
	}
	return r, nil
}

// --- Transactor ---

// InTx snapshots the store and restores it when fn fails, which is all
// the rollback the tests need.
func (f *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txCalls++
	users, profiles := cloneMap(f.users), cloneMap(f.profiles)
	groups, joined := cloneMap(f.groups), cloneMap(f.joined)
	channels := cloneMap(f.channels)

	if err := fn(ctx); err != nil {
		f.users, f.profiles, f.groups, f.joined, f.channels = users, profiles, groups, joined, channels
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// discardLogger keeps test output quiet.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	_ repository.UserRepository    = (*fakeStore)(nil)
	_ repository.ProfileRepository = (*fakeStore)(nil)
	_ repository.ChannelRepository = (*fakeStore)(nil)
	_ repository.RepRepository     = (*fakeStore)(nil)
	_ repository.Transactor        = (*fakeStore)(nil)
)
