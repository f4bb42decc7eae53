package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabCalendarRejectsBadID(t *testing.T) {
	h := NewLabHandler(nil, nil, nil, nil, nil)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	require.NoError(t, h.Calendar(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLabCalendarRejectsBadBounds(t *testing.T) {
	h := NewLabHandler(nil, nil, nil, nil, nil)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?from=yesterday", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	require.NoError(t, h.Calendar(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
