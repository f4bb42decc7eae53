package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestUserListRejectsUnknownRoleFilter(t *testing.T) {
	h := NewUserHandler(nil)
	c, rec := newUserContext(http.MethodGet, "/v1/users?role=SUPERUSER", "")

	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserSetRoleValidation(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		h := NewUserHandler(nil)
		c, rec := newUserContext(http.MethodPut, "/", `{"role":"ADMIN"}`)
		c.SetParamNames("id")
		c.SetParamValues("abc")

		require.NoError(t, h.SetRole(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("unknown role", func(t *testing.T) {
		h := NewUserHandler(nil)
		c, rec := newUserContext(http.MethodPut, "/", `{"role":"SUPERUSER"}`)
		c.SetParamNames("id")
		c.SetParamValues("5")

		require.NoError(t, h.SetRole(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUserSetActiveRequiresFlag(t *testing.T) {
	h := NewUserHandler(nil)
	c, rec := newUserContext(http.MethodPut, "/", `{}`)
	c.SetParamNames("id")
	c.SetParamValues("5")

	require.NoError(t, h.SetActive(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
