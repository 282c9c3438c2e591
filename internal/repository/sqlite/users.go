package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/remo/internal/apperror"
	"github.com/sakif/remo/internal/model"
	"github.com/sakif/remo/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, first_name, last_name, password_hash,
	github_login, is_active, date_joined, created_at, updated_at`

// CreateUser inserts a new user, filling in ID and timestamps.
// A duplicate username or GitHub login is reported as apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.DateJoined.IsZero() {
		user.DateJoined = now
	}

	_, err := db.q(ctx).ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.GitHubLogin,
		user.IsActive,
		user.DateJoined,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if column, ok := uniqueViolation(err); ok {
			value := user.Username
			if column == "github_login" && user.GitHubLogin != nil {
				value = *user.GitHubLogin
			}
			return apperror.Conflict("user", column, value)
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	return nil
}

// GetUserByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id", id)
}

// GetUserByUsername is used by password login.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUser(ctx, "username", username)
}

// GetUserByGitHubLogin is used by the GitHub OAuth callback.
func (db *DB) GetUserByGitHubLogin(ctx context.Context, login string) (*model.User, error) {
	return db.getUser(ctx, "github_login", login)
}

// getUser looks a user up by one unique column. column is always a
// constant supplied by the callers above, never user input.
func (db *DB) getUser(ctx context.Context, column, value string) (*model.User, error) {
	var u model.User
	err := sqlx.GetContext(ctx, db.q(ctx), &u,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s %q: %w", column, value, err)
	}
	return &u, nil
}

// DeleteUser removes a user. The profile, group memberships and channel
// memberships go with it (ON DELETE CASCADE); profiles that named this user
// as mentor keep existing with mentor_id set to NULL.
func (db *DB) DeleteUser(ctx context.Context, id string) error {
	result, err := db.q(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// AddUserToGroup makes userID a member of the named group, creating the
// group on first use. Adding an existing member again is a no-op.
func (db *DB) AddUserToGroup(ctx context.Context, userID, group string) error {
	q := db.q(ctx)

	if _, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO auth_groups (name) VALUES (?)`, group); err != nil {
		return fmt.Errorf("sqlite: ensuring group %q: %w", group, err)
	}

	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO auth_group_members (user_id, group_id)
		 SELECT ?, id FROM auth_groups WHERE name = ?`,
		userID, group,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding user %s to group %q: %w", userID, group, err)
	}
	return nil
}

// UserGroups returns the names of the groups userID belongs to, sorted.
func (db *DB) UserGroups(ctx context.Context, userID string) ([]string, error) {
	groups := []string{}
	err := sqlx.SelectContext(ctx, db.q(ctx), &groups,
		`SELECT g.name
		 FROM auth_group_members m
		 JOIN auth_groups g ON g.id = m.group_id
		 WHERE m.user_id = ?
		 ORDER BY g.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing groups of user %s: %w", userID, err)
	}
	return groups, nil
}
