package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/remo/internal/apperror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   ErrorResponse
	}{
		{
			name:       "validation with field",
			err:        apperror.ValidationFailed("limit", "bad limit"),
			wantStatus: http.StatusBadRequest,
			wantBody:   ErrorResponse{Error: "validation_error", Message: "bad limit", Field: "limit"},
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("loading: %w", apperror.NotFound("rep", "abc")),
			wantStatus: http.StatusNotFound,
			wantBody:   ErrorResponse{Error: "not_found", Message: "rep not found with id abc"},
		},
		{
			name:       "conflict",
			err:        apperror.Conflict("profile", "display_name", "zig"),
			wantStatus: http.StatusConflict,
			wantBody:   ErrorResponse{Error: "conflict", Message: `profile with display_name "zig" already exists`, Field: "display_name"},
		},
		{
			name:       "forbidden",
			err:        apperror.Forbidden("no"),
			wantStatus: http.StatusForbidden,
			wantBody:   ErrorResponse{Error: "forbidden", Message: "no"},
		},
		{
			name:       "unauthorized",
			err:        apperror.Unauthorized("who are you"),
			wantStatus: http.StatusUnauthorized,
			wantBody:   ErrorResponse{Error: "unauthorized", Message: "who are you"},
		},
		{
			name:       "unknown error hides details",
			err:        errors.New("sqlite: no such table: users"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   ErrorResponse{Error: "internal_error", Message: "An internal error occurred"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var got ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
			assert.Equal(t, tt.wantBody, got)
		})
	}
}

func TestWriteError_OmitsEmptyField(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, apperror.NotFound("rep", "x"))
	assert.NotContains(t, rr.Body.String(), `"field"`)
}

func TestMethodNotAllowed(t *testing.T) {
	rr := httptest.NewRecorder()
	MethodNotAllowed(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/rep/1/", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET", rr.Header().Get("Allow"))
	assert.JSONEq(t, `{"error":"method_not_allowed","message":"DELETE is not allowed on this resource"}`, rr.Body.String())
}
