package tokens

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func serve(mw echo.MiddlewareFunc, authorization string) int {
	e := echo.New()
	e.POST("/accounts", func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	}, mw)
	req := httptest.NewRequest(http.MethodPost, "/accounts", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestAdminTokenMiddleware(t *testing.T) {
	mw := AdminTokenMiddleware("s3cret")
	assert.Equal(t, http.StatusCreated, serve(mw, "Bearer s3cret"))
	assert.Equal(t, http.StatusUnauthorized, serve(mw, "Bearer nope"))
	assert.Equal(t, http.StatusBadRequest, serve(mw, ""))
}

func TestAdminTokenMiddlewareDisabled(t *testing.T) {
	assert.Equal(t, http.StatusCreated, serve(AdminTokenMiddleware(""), ""))
}
