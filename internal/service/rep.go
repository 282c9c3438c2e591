// Package service holds the business rules of the reps directory.
//
// THE LAYERS:
//
//	Handler (HTTP)      → parses requests, writes JSON/CSV/XLSX
//	Service (rules)     → who is asking, what they may see, what is valid
//	Repository (data)   → SQL behind the interfaces in package repository
//
// Services take repository interfaces, not *sqlite.DB, so tests run them
// against small in-memory fakes (see fakes_test.go) and cmd/remoctl can
// reuse them without any HTTP in sight.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jonboulle/clockwork"

	"github.com/sakif/remo/internal/apperror"
	"github.com/sakif/remo/internal/model"
	"github.com/sakif/remo/internal/repository"
	"github.com/sakif/remo/internal/resource"
)

// RepService serves the read-only "rep" resource.
//
// DEPENDENCIES:
//   - reps      loads the rep aggregates
//   - users     resolves a viewer's groups
//   - projector applies the field policy
//   - clock     dates export files (a fake clock in tests)
type RepService struct {
	reps      repository.RepRepository
	users     repository.UserRepository
	projector *resource.Projector
	schema    resource.Schema
	clock     clockwork.Clock
	logger    *slog.Logger
}

// NewRepService wires a RepService with the default field policy.
func NewRepService(
	reps repository.RepRepository,
	users repository.UserRepository,
	clock clockwork.Clock,
	logger *slog.Logger,
) *RepService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RepService{
		reps:      reps,
		users:     users,
		projector: resource.NewProjector(resource.DefaultPolicy),
		schema:    resource.RepSchema(resource.DefaultPolicy),
		clock:     clock,
		logger:    logger,
	}
}

// RepPage is one page of the list endpoint.
type RepPage struct {
	Objects []resource.Object
	Total   int
	Filter  repository.RepFilter
}

// ExportFile is a rendered CSV/XLSX export.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// Schema returns the resource self-description. It is rebuilt per call so
// callers cannot mutate what the next caller sees.
func (s *RepService) Schema() resource.Schema {
	return resource.RepSchema(resource.DefaultPolicy)
}

// ParseListParams validates a list query string against the schema.
func (s *RepService) ParseListParams(values url.Values) (resource.ListParams, error) {
	return resource.ParseListParams(values, s.schema)
}

// Viewer resolves the identity behind a user ID from the session.
//
// An empty ID, a user deleted since the token was issued, or a deactivated
// account all yield the anonymous viewer: a stale session shows public data
// instead of failing the request.
func (s *RepService) Viewer(ctx context.Context, userID string) (resource.Viewer, error) {
	if userID == "" {
		return resource.Anonymous(), nil
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return resource.Anonymous(), nil
		}
		return resource.Viewer{}, fmt.Errorf("resolving viewer %s: %w", userID, err)
	}
	if !user.IsActive {
		return resource.Anonymous(), nil
	}

	groups, err := s.users.UserGroups(ctx, userID)
	if err != nil {
		return resource.Viewer{}, fmt.Errorf("loading groups of viewer %s: %w", userID, err)
	}
	return resource.Viewer{UserID: user.ID, Groups: groups}, nil
}

// List returns one page of reps as the viewer may see them.
func (s *RepService) List(ctx context.Context, viewer resource.Viewer, filter repository.RepFilter) (*RepPage, error) {
	reps, total, err := s.reps.ListReps(ctx, filter)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			return nil, err
		}
		s.logger.Error("failed to list reps", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing reps: %w", err)
	}

	return &RepPage{
		Objects: s.projector.ProjectAll(reps, viewer),
		Total:   total,
		Filter:  filter,
	}, nil
}

// Get returns one rep. Users outside the Rep group are reported as not
// found, exactly like users that do not exist.
func (s *RepService) Get(ctx context.Context, viewer resource.Viewer, userID string) (resource.Object, error) {
	rep, err := s.reps.GetRep(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !rep.InGroup(model.GroupRep) {
		return nil, apperror.NotFound("rep", userID)
	}
	return s.projector.Project(rep, viewer), nil
}

// Me returns the viewer's own projection, whatever their groups.
func (s *RepService) Me(ctx context.Context, viewer resource.Viewer) (resource.Object, error) {
	if !viewer.Authenticated() {
		return nil, apperror.Unauthorized("valid authentication required")
	}
	rep, err := s.reps.GetRep(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	return s.projector.Project(rep, viewer), nil
}

// Export renders every rep matching filter (no paging) in format.
//
// The rows are projected for viewer first, so an export never contains a
// value the same viewer could not see in the JSON listing. The file is
// named after today's date on s.clock.
func (s *RepService) Export(ctx context.Context, viewer resource.Viewer, filter repository.RepFilter, format resource.Format) (*ExportFile, error) {
	if !format.Export() {
		return nil, apperror.ValidationFailed(resource.ParamFormat,
			fmt.Sprintf("%q is not an export format", format))
	}

	filter.Limit, filter.Offset = 0, 0
	page, err := s.List(ctx, viewer, filter)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := resource.WriteExport(&buf, format, page.Objects); err != nil {
		s.logger.Error("failed to render export",
			slog.String("format", string(format)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("rendering %s export: %w", format, err)
	}

	file := &ExportFile{
		Filename:    resource.ExportFilename(s.clock.Now(), format),
		ContentType: resource.ContentType(format),
		Data:        buf.Bytes(),
		Rows:        len(page.Objects),
	}

	s.logger.Info("reps exported",
		slog.String("format", string(format)),
		slog.Int("rows", file.Rows),
		slog.Bool("authenticated", viewer.Authenticated()),
	)
	return file, nil
}
