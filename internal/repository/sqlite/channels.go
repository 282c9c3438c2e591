package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/remo/internal/apperror"
	"github.com/sakif/remo/internal/model"
	"github.com/sakif/remo/internal/repository"
)

var _ repository.ChannelRepository = (*DB)(nil)

// CreateChannel inserts an IRC channel. Channels exist independently of
// profiles; profiles reference them through JoinChannel.
func (db *DB) CreateChannel(ctx context.Context, c *model.IRCChannel) error {
	c.ID = xid.New().String()

	_, err := db.q(ctx).ExecContext(ctx,
		`INSERT INTO irc_channels (id, name, description) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.Description,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting channel %q: %w", c.Name, err)
	}
	return nil
}

// GetChannelByName returns the first channel with that name.
func (db *DB) GetChannelByName(ctx context.Context, name string) (*model.IRCChannel, error) {
	var c model.IRCChannel
	err := sqlx.GetContext(ctx, db.q(ctx), &c,
		`SELECT id, name, description FROM irc_channels WHERE name = ? ORDER BY id LIMIT 1`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("channel", name)
		}
		return nil, fmt.Errorf("sqlite: getting channel %q: %w", name, err)
	}
	return &c, nil
}

// JoinChannel records that a profile is in a channel.
//
// The (profile_id, channel_id) pair is UNIQUE, and INSERT OR IGNORE turns a
// repeated join into a no-op, so membership behaves like a set.
func (db *DB) JoinChannel(ctx context.Context, profileID, channelID string) error {
	_, err := db.q(ctx).ExecContext(ctx,
		`INSERT OR IGNORE INTO user_profile_irc_channels (profile_id, channel_id) VALUES (?, ?)`,
		profileID, channelID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: joining profile %s to channel %s: %w", profileID, channelID, err)
	}
	return nil
}

// ProfileChannels lists a profile's channels ordered by name.
func (db *DB) ProfileChannels(ctx context.Context, profileID string) ([]model.IRCChannel, error) {
	channels := []model.IRCChannel{}
	err := sqlx.SelectContext(ctx, db.q(ctx), &channels,
		`SELECT c.id, c.name, c.description
		 FROM user_profile_irc_channels m
		 JOIN irc_channels c ON c.id = m.channel_id
		 WHERE m.profile_id = ?
		 ORDER BY c.name, c.id`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing channels of profile %s: %w", profileID, err)
	}
	return channels, nil
}
