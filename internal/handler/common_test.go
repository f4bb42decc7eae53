package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucampus/lab-reservation/internal/model"
	"github.com/ucampus/lab-reservation/internal/repository"
	"github.com/ucampus/lab-reservation/internal/service"
)

func TestWriteDomainError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &service.ValidationError{Field: "starts_at", Reason: "required"}, http.StatusBadRequest},
		{"state", &service.StateError{Reason: "lab inactive"}, http.StatusBadRequest},
		{"conflict", &service.ConflictError{Conflicts: []model.SlotConflict{{SlotID: 1}}}, http.StatusConflict},
		{"lab not found", repository.ErrLabNotFound, http.StatusNotFound},
		{"resource not found", repository.ErrResourceNotFound, http.StatusNotFound},
		{"request not found", repository.ErrRequestNotFound, http.StatusNotFound},
		{"forbidden", repository.ErrForbidden, http.StatusForbidden},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			require.NoError(t, writeDomainError(c, tc.err))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestGetUserID(t *testing.T) {
	e := echo.New()
	newCtx := func(v any) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set("user_id", v)
		return c
	}

	for _, v := range []any{uint64(42), int(42), int64(42), float64(42), "42"} {
		got, err := getUserID(newCtx(v))
		require.NoError(t, err)
		assert.Equal(t, uint64(42), got)
	}

	_, err := getUserID(newCtx(nil))
	assert.Error(t, err)
	_, err = getUserID(newCtx("not-a-number"))
	assert.Error(t, err)
}
