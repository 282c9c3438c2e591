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

var _ repository.ProfileRepository = (*DB)(nil)

const profileColumns = `id, user_id, birth_date, city, region, country, lon, lat,
	display_name, private_email, private_email_visible, mozillians_profile_url,
	twitter_account, gpg_key, irc_name, linkedin_url, facebook_url, diaspora_url,
	personal_website_url, personal_blog_feed, mentor_id, initial_council,
	created_at, updated_at`

// CreateProfile inserts the profile of an existing user.
//
// UNIQUE columns: user_id (one profile per user) and display_name.
// Both surface as apperror.ErrConflict with Field set to the column.
func (db *DB) CreateProfile(ctx context.Context, p *model.UserProfile) error {
	now := time.Now().UTC()
	p.ID = xid.New().String()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := db.q(ctx).ExecContext(ctx,
		`INSERT INTO user_profiles (`+profileColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.UserID,
		p.BirthDate,
		p.City,
		p.Region,
		p.Country,
		p.Lon,
		p.Lat,
		p.DisplayName,
		p.PrivateEmail,
		p.PrivateEmailVisible,
		p.MozilliansURL,
		p.TwitterAccount,
		p.GPGKey,
		p.IRCName,
		p.LinkedInURL,
		p.FacebookURL,
		p.DiasporaURL,
		p.PersonalWebsiteURL,
		p.PersonalBlogFeed,
		p.MentorID,
		p.InitialCouncil,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if column, ok := uniqueViolation(err); ok {
			value := p.UserID
			if column == "display_name" && p.DisplayName != nil {
				value = *p.DisplayName
			}
			return apperror.Conflict("profile", column, value)
		}
		return fmt.Errorf("sqlite: inserting profile for user %s: %w", p.UserID, err)
	}
	return nil
}

// GetProfileByUserID returns the profile owned by userID.
func (db *DB) GetProfileByUserID(ctx context.Context, userID string) (*model.UserProfile, error) {
	var p model.UserProfile
	err := sqlx.GetContext(ctx, db.q(ctx), &p,
		`SELECT `+profileColumns+` FROM user_profiles WHERE user_id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", userID)
		}
		return nil, fmt.Errorf("sqlite: getting profile of user %s: %w", userID, err)
	}
	return &p, nil
}
