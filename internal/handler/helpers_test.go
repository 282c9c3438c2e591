package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/remo/internal/auth"
	"github.com/sakif/remo/internal/handler"
	"github.com/sakif/remo/internal/model"
	"github.com/sakif/remo/internal/repository/sqlite"
	"github.com/sakif/remo/internal/service"
)

const testPassword = "correct horse"

// testEnv is a real in-memory database with the services on top. Handler
// tests talk to real SQL so the JSON they check is what production returns.
type testEnv struct {
	db       *sqlite.DB
	clock    *clockwork.FakeClock
	tokens   *auth.TokenService
	reps     *service.RepService
	auth     *service.AuthService
	profiles *service.ProfileService
	logger   *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := clockwork.NewFakeClockAt(time.Date(2012, time.March, 1, 10, 0, 0, 0, time.UTC))
	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", clock)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	return &testEnv{
		db:       db,
		clock:    clock,
		tokens:   tokens,
		reps:     service.NewRepService(db, db, clock, logger),
		auth:     service.NewAuthService(db, tokens, passwords, logger),
		profiles: service.NewProfileService(db, db, db, db, db, passwords, logger),
		logger:   logger,
	}
}

// register creates a user with a profile; every user's password is
// testPassword.
func (e *testEnv) register(t *testing.T, username, email, displayName string, groups ...string) *model.Rep {
	t.Helper()
	rep, err := e.profiles.Register(context.Background(), service.RegisterInput{
		Username:      username,
		Password:      testPassword,
		Email:         email,
		FirstName:     username,
		LastName:      "Tester",
		DisplayName:   displayName,
		City:          "Athens",
		MozilliansURL: "https://mozillians.org/u/" + username,
		Groups:        groups,
		Channels:      []string{"#remo"},
	})
	require.NoError(t, err)
	return rep
}

// router mounts the rep handlers the way the server does, minus the
// request transaction.
func (e *testEnv) router() http.Handler {
	h := handler.NewRepHandler(e.reps, e.logger)

	r := chi.NewRouter()
	r.Use(auth.OptionalAuth(e.tokens))
	r.Get("/api/v1/rep/", h.HandleList)
	r.Get("/api/v1/rep/schema/", h.HandleSchema)
	r.Get("/api/v1/rep/{id}/", h.HandleDetail)
	r.With(auth.RequireAuth(e.tokens)).Get("/api/me", h.HandleMe)
	return r
}

// get performs a GET, signed in as userID when it is not empty.
func (e *testEnv) get(t *testing.T, target, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if userID != "" {
		token, err := e.tokens.Generate(userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}
