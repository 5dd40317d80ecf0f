package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func runWithAuth(t *testing.T, authorization string) (echo.Context, *httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/registrations", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	err := JWTAuth(testSecret)(next)(c)
	return c, rec, err
}

func TestJWTAuthInjectsIdentity(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": "7", "role": "patient"})
	c, rec, err := runWithAuth(t, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", c.Get("account_id"))
	assert.Equal(t, "patient", c.Get("role"))
}

func TestJWTAuthRejectsMissingToken(t *testing.T) {
	_, rec, err := runWithAuth(t, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsBadSignature(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7"})
	signed, err := tok.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	_, rec, err := runWithAuth(t, "Bearer "+signed)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	run := func(role any) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/v1/doctors/9/availability", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if role != nil {
			c.Set("role", role)
		}
		require.NoError(t, RequireRole("doctor", "admin")(next)(c))
		return rec
	}

	assert.Equal(t, http.StatusOK, run("doctor").Code)
	assert.Equal(t, http.StatusOK, run("admin").Code)
	assert.Equal(t, http.StatusForbidden, run("patient").Code)
	assert.Equal(t, http.StatusForbidden, run(nil).Code)
}
