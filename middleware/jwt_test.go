package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, key []byte, username string, expires time.Time) string {
	t.Helper()
	claims := &Claims{
		Username: username,
		UserHash: UserHashFromUsername(username, key),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func runJWT(t *testing.T, key []byte, token string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seenUser string
	err := JWT(key)(func(c echo.Context) error {
		seenUser, _ = c.Get("username").(string)
		return c.NoContent(http.StatusOK)
	})(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, seenUser
}

func TestJWTMiddleware(t *testing.T) {
	key := []byte("test-signing-key")

	t.Run("Valid Token Passes And Sets Username", func(t *testing.T) {
		token := signedToken(t, key, "scorer", time.Now().Add(time.Hour))
		rec, user := runJWT(t, key, token)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "scorer", user)
	})

	t.Run("Missing Header Rejected", func(t *testing.T) {
		rec, _ := runJWT(t, key, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Wrong Key Rejected", func(t *testing.T) {
		token := signedToken(t, []byte("other-key"), "scorer", time.Now().Add(time.Hour))
		rec, _ := runJWT(t, key, token)
		assert.NotEqual(t, http.StatusOK, rec.Code)
	})

	t.Run("Expired Token Rejected", func(t *testing.T) {
		token := signedToken(t, key, "scorer", time.Now().Add(-time.Hour))
		rec, _ := runJWT(t, key, token)
		assert.NotEqual(t, http.StatusOK, rec.Code)
	})
}

func TestUserHashDeterministic(t *testing.T) {
	key := []byte("k")
	assert.Equal(t, UserHashFromUsername("Admin", key), UserHashFromUsername(" admin ", key))
	assert.NotEqual(t, UserHashFromUsername("admin", key), UserHashFromUsername("other", key))
}
