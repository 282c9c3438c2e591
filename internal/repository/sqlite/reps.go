package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/sakif/remo/internal/apperror"
	"github.com/sakif/remo/internal/model"
	"github.com/sakif/remo/internal/repository"
)

var _ repository.RepRepository = (*DB)(nil)

// filterColumns maps the public filter names to SQL columns. It is the
// second line of defence behind the resource schema: a filter name that is
// not in this map never reaches the query text.
var filterColumns = map[string]string{
	"first_name":            "u.first_name",
	"last_name":             "u.last_name",
	"profile__display_name": "p.display_name",
	"profile__city":         "p.city",
	"profile__region":       "p.region",
	"profile__country":      "p.country",
	"profile__irc_name":     "p.irc_name",
}

// queryColumns are searched by the free-text query.
var queryColumns = []string{
	"u.first_name",
	"u.last_name",
	"u.email",
	"COALESCE(p.display_name, '')",
	"COALESCE(p.irc_name, '')",
}

// repRow is one joined users+profiles row. Columns are selected as
// "u.<col>" and "p.<col>" so sqlx fills the nested structs.
type repRow struct {
	User    model.User        `db:"u"`
	Profile model.UserProfile `db:"p"`
}

var repSelect = `SELECT ` + aliased("u", userColumns) + `, ` + aliased("p", profileColumns) + `
	FROM users u
	JOIN user_profiles p ON p.user_id = u.id`

// aliased turns "id, name" into `u.id AS "u.id", u.name AS "u.name"`.
func aliased(table, columns string) string {
	parts := strings.Split(columns, ",")
	for i, c := range parts {
		c = strings.TrimSpace(c)
		parts[i] = fmt.Sprintf(`%s.%s AS "%s.%s"`, table, c, table, c)
	}
	return strings.Join(parts, ", ")
}

// ListReps returns members of the Rep group matching filter, ordered by
// name, plus the total number of matches ignoring Limit/Offset.
func (db *DB) ListReps(ctx context.Context, filter repository.RepFilter) ([]model.Rep, int, error) {
	where, args, err := buildRepWhere(filter)
	if err != nil {
		return nil, 0, err
	}

	q := db.q(ctx)

	var total int
	err = sqlx.GetContext(ctx, q, &total,
		`SELECT COUNT(*) FROM users u JOIN user_profiles p ON p.user_id = u.id WHERE `+where,
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting reps: %w", err)
	}

	query := repSelect + ` WHERE ` + where + ` ORDER BY u.first_name, u.last_name, u.id`
	switch {
	case filter.Limit > 0:
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, max(filter.Offset, 0))
	case filter.Offset > 0:
		// SQLite has no OFFSET without LIMIT; -1 means unbounded.
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, filter.Offset)
	}

	var rows []repRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing reps: %w", err)
	}

	reps, err := db.assembleReps(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return reps, total, nil
}

// GetRep loads the aggregate for one user, whatever their groups.
// Returns apperror.ErrNotFound if the user or their profile is missing.
func (db *DB) GetRep(ctx context.Context, userID string) (*model.Rep, error) {
	var row repRow
	err := sqlx.GetContext(ctx, db.q(ctx), &row, repSelect+` WHERE u.id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("rep", userID)
		}
		return nil, fmt.Errorf("sqlite: getting rep %s: %w", userID, err)
	}

	reps, err := db.assembleReps(ctx, []repRow{row})
	if err != nil {
		return nil, err
	}
	return &reps[0], nil
}

// assembleReps attaches groups and channels to a page of rows with two
// IN (...) queries, instead of two queries per row.
func (db *DB) assembleReps(ctx context.Context, rows []repRow) ([]model.Rep, error) {
	reps := make([]model.Rep, 0, len(rows))
	if len(rows) == 0 {
		return reps, nil
	}

	userIDs := lo.Map(rows, func(r repRow, _ int) string { return r.User.ID })
	profileIDs := lo.Map(rows, func(r repRow, _ int) string { return r.Profile.ID })

	groups, err := db.groupsByUser(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	channels, err := db.channelsByProfile(ctx, profileIDs)
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		reps = append(reps, model.Rep{
			User:     r.User,
			Profile:  r.Profile,
			Groups:   lo.Ternary(groups[r.User.ID] != nil, groups[r.User.ID], []string{}),
			Channels: lo.Ternary(channels[r.Profile.ID] != nil, channels[r.Profile.ID], []model.IRCChannel{}),
		})
	}
	return reps, nil
}

func (db *DB) groupsByUser(ctx context.Context, userIDs []string) (map[string][]string, error) {
	query, args, err := sqlx.In(
		`SELECT m.user_id, g.name
		 FROM auth_group_members m
		 JOIN auth_groups g ON g.id = m.group_id
		 WHERE m.user_id IN (?)
		 ORDER BY g.name`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("sqlite: building group query: %w", err)
	}

	q := db.q(ctx)
	var rows []struct {
		UserID string `db:"user_id"`
		Name   string `db:"name"`
	}
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("sqlite: loading rep groups: %w", err)
	}

	out := make(map[string][]string, len(userIDs))
	for _, r := range rows {
		out[r.UserID] = append(out[r.UserID], r.Name)
	}
	return out, nil
}

func (db *DB) channelsByProfile(ctx context.Context, profileIDs []string) (map[string][]model.IRCChannel, error) {
	query, args, err := sqlx.In(
		`SELECT m.profile_id, c.id, c.name, c.description
		 FROM user_profile_irc_channels m
		 JOIN irc_channels c ON c.id = m.channel_id
		 WHERE m.profile_id IN (?)
		 ORDER BY c.name, c.id`, profileIDs)
	if err != nil {
		return nil, fmt.Errorf("sqlite: building channel query: %w", err)
	}

	q := db.q(ctx)
	var rows []struct {
		ProfileID string `db:"profile_id"`
		model.IRCChannel
	}
	if err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("sqlite: loading rep channels: %w", err)
	}

	out := make(map[string][]model.IRCChannel, len(profileIDs))
	for _, r := range rows {
		out[r.ProfileID] = append(out[r.ProfileID], r.IRCChannel)
	}
	return out, nil
}

// buildRepWhere turns a RepFilter into a WHERE clause and its arguments.
// Every value goes through a '?' placeholder; only column names from
// filterColumns/queryColumns are spliced into the SQL text.
func buildRepWhere(f repository.RepFilter) (string, []any, error) {
	clauses := []string{
		`EXISTS (SELECT 1 FROM auth_group_members m
		         JOIN auth_groups g ON g.id = m.group_id
		         WHERE m.user_id = u.id AND g.name = ?)`,
	}
	args := []any{model.GroupRep}

	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + escapeLike(fold(q)) + "%"
		ors := make([]string, 0, len(queryColumns))
		for _, col := range queryColumns {
			ors = append(ors, `casefold(`+col+`) LIKE ? ESCAPE '\'`)
			args = append(args, pattern)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}

	for _, ff := range f.Fields {
		col, ok := filterColumns[ff.Field]
		if !ok {
			return "", nil, apperror.ValidationFailed(ff.Field,
				fmt.Sprintf("filtering on %q is not allowed", ff.Field))
		}

		switch ff.Lookup {
		case repository.LookupExact, "":
			clauses = append(clauses, col+` = ?`)
			args = append(args, ff.Value)
		case repository.LookupIExact:
			clauses = append(clauses, `casefold(`+col+`) = ?`)
			args = append(args, fold(ff.Value))
		case repository.LookupIContains:
			clauses = append(clauses, `casefold(`+col+`) LIKE ? ESCAPE '\'`)
			args = append(args, "%"+escapeLike(fold(ff.Value))+"%")
		case repository.LookupIStartsWith:
			clauses = append(clauses, `casefold(`+col+`) LIKE ? ESCAPE '\'`)
			args = append(args, escapeLike(fold(ff.Value))+"%")
		default:
			return "", nil, apperror.ValidationFailed(ff.Field,
				fmt.Sprintf("lookup %q is not supported", ff.Lookup))
		}
	}

	return strings.Join(clauses, " AND "), args, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
