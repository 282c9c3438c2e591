package handler_test

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sakif/remo/internal/model"
)

type listBody struct {
	Meta struct {
		Limit      int     `json:"limit"`
		Offset     int     `json:"offset"`
		TotalCount int     `json:"total_count"`
		Next       *string `json:"next"`
		Previous   *string `json:"previous"`
	} `json:"meta"`
	Objects []map[string]any `json:"objects"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

// =========================================================================
// LIST
// =========================================================================

func TestHandleList_EmailVisibility(t *testing.T) {
	env := newTestEnv(t)
	zig := env.register(t, "zig", "zig@example.com", "zig", model.GroupRep)
	other := env.register(t, "other", "other@example.com", "other", model.GroupRep)

	tests := []struct {
		name      string
		userID    string
		wantEmail bool
	}{
		{"anonymous", "", false},
		{"owner", zig.User.ID, true},
		{"another rep", other.User.ID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.get(t, "/api/v1/rep/?query=zig", tt.userID)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			body := decode[listBody](t, rr)
			require.Len(t, body.Objects, 1)
			_, hasEmail := body.Objects[0]["email"]
			assert.Equal(t, tt.wantEmail, hasEmail)
			assert.Equal(t, "/api/v1/rep/"+zig.User.ID+"/", body.Objects[0]["resource_uri"])
		})
	}
}

func TestHandleList_QueryByEmailOrDisplayName(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "zig", "zig@example.com", "zig", model.GroupRep)
	env.register(t, "anna", "anna@example.com", "annas", model.GroupRep)

	for _, q := range []string{"zig@example.com", "annas"} {
		rr := env.get(t, "/api/v1/rep/?query="+q, "")
		require.Equal(t, http.StatusOK, rr.Code)
		body := decode[listBody](t, rr)
		assert.Len(t, body.Objects, 1, q)
		assert.Equal(t, 1, body.Meta.TotalCount, q)
	}
}

func TestHandleList_Paging(t *testing.T) {
	env := newTestEnv(t)
	for _, name := range []string{"aa", "bb", "cc"} {
		env.register(t, name, name+"@example.com", name, model.GroupRep)
	}

	rr := env.get(t, "/api/v1/rep/?limit=1&offset=1", "")
	require.Equal(t, http.StatusOK, rr.Code)

	body := decode[listBody](t, rr)
	assert.Len(t, body.Objects, 1)
	assert.Equal(t, 3, body.Meta.TotalCount)
	assert.Equal(t, 1, body.Meta.Limit)
	require.NotNil(t, body.Meta.Next)
	require.NotNil(t, body.Meta.Previous)
	assert.Contains(t, *body.Meta.Next, "offset=2")
	assert.Contains(t, *body.Meta.Previous, "offset=0")
}

func TestHandleList_OnlyReps(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "zig", "zig@example.com", "zig", model.GroupRep)
	env.register(t, "boss", "boss@example.com", "boss", model.GroupAdmin)

	body := decode[listBody](t, env.get(t, "/api/v1/rep/", ""))
	assert.Equal(t, 1, body.Meta.TotalCount)
}

func TestHandleList_BadParams(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		target    string
		wantField string
	}{
		{"/api/v1/rep/?email=zig@example.com", "email"},
		{"/api/v1/rep/?limit=ten", "limit"},
		{"/api/v1/rep/?offset=-1", "offset"},
		{"/api/v1/rep/?format=pdf", "format"},
		{"/api/v1/rep/?profile__gpg_key=x", "profile__gpg_key"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr := env.get(t, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			body := decode[errorBody](t, rr)
			assert.Equal(t, "validation_error", body.Error)
			assert.Equal(t, tt.wantField, body.Field)
		})
	}
}

// =========================================================================
// EXPORT
// =========================================================================

func TestHandleList_CSVExport(t *testing.T) {
	env := newTestEnv(t)
	zig := env.register(t, "zig", "zig@example.com", "zig", model.GroupRep)
	env.register(t, "anna", "anna@example.com", "annas", model.GroupRep)

	rr := env.get(t, "/api/v1/rep/?format=csv&limit=1", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, `filename="reps-export-2012-03-01.csv"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))

	records, err := csv.NewReader(bytes.NewReader(rr.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header + both reps: exports ignore paging")
	for _, row := range records[1:] {
		assert.Empty(t, row[3], "anonymous export hides email")
	}

	// Signed in as zig: only zig's own row carries an email.
	rr = env.get(t, "/api/v1/rep/?format=CSV&query=zig", zig.User.ID)
	require.Equal(t, http.StatusOK, rr.Code)
	records, err = csv.NewReader(bytes.NewReader(rr.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "zig@example.com", records[1][3])
}

func TestHandleList_XLSXExport(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "zig", "zig@example.com", "zig", model.GroupRep)

	rr := env.get(t, "/api/v1/rep/?format=xlsx", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `filename="reps-export-2012-03-01.xlsx"`, rr.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Reps")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "first_name", rows[0][0])
	assert.Equal(t, "zig", rows[1][0])
}

// =========================================================================
// DETAIL / SCHEMA / ME
// =========================================================================

func TestHandleDetail(t *testing.T) {
	env := newTestEnv(t)
	zig := env.register(t, "zig", "zig@example.com", "zig", model.GroupRep)
	boss := env.register(t, "boss", "boss@example.com", "boss", model.GroupAdmin)

	rr := env.get(t, "/api/v1/rep/"+zig.User.ID+"/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	obj := decode[map[string]any](t, rr)
	assert.NotContains(t, obj, "email")
	assert.Equal(t, "zig Tester", obj["fullname"])

	// Admins see everyone's email.
	obj = decode[map[string]any](t, env.get(t, "/api/v1/rep/"+zig.User.ID+"/", boss.User.ID))
	assert.Equal(t, "zig@example.com", obj["email"])

	for _, id := range []string{"does-not-exist", boss.User.ID} {
		rr := env.get(t, "/api/v1/rep/"+id+"/", "")
		assert.Equal(t, http.StatusNotFound, rr.Code, id)
		assert.Equal(t, "not_found", decode[errorBody](t, rr).Error)
	}
}

func TestHandleSchema(t *testing.T) {
	env := newTestEnv(t)

	rr := env.get(t, "/api/v1/rep/schema/", "")
	require.Equal(t, http.StatusOK, rr.Code)

	schema := decode[map[string]any](t, rr)
	assert.Equal(t, []any{"get"}, schema["allowed_detail_http_methods"])
	assert.Equal(t, []any{"get"}, schema["allowed_list_http_methods"])
	assert.Equal(t, "application/json", schema["default_format"])
	assert.EqualValues(t, 20, schema["default_limit"])
	assert.Equal(t, map[string]any{"first_name": 1.0, "last_name": 1.0, "profile": 2.0}, schema["filtering"])

	fields, ok := schema["fields"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, fields, 6)
	email := fields["email"].(map[string]any)
	assert.Equal(t, true, email["restricted"])
}

func TestHandleMe(t *testing.T) {
	env := newTestEnv(t)
	boss := env.register(t, "boss", "boss@example.com", "boss", model.GroupAdmin)

	rr := env.get(t, "/api/me", boss.User.ID)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "boss@example.com", decode[map[string]any](t, rr)["email"])

	assert.Equal(t, http.StatusUnauthorized, env.get(t, "/api/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.get(t, "/api/me", "deleted-user").Code,
		"valid token for a user that no longer exists")
}
