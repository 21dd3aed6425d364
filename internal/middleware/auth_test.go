package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	userID uuid.UUID
	err    error
}

func (s *stubValidator) ValidateToken(token string) (*TokenClaims, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &TokenClaims{UserID: s.userID}, nil
}

func viewerEcho(c *gin.Context) {
	if id, ok := ViewerID(c); ok {
		c.JSON(http.StatusOK, gin.H{"viewer": id.String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewer": nil})
}

func doRequest(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/probe", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()

	router := gin.New()
	router.GET("/probe", AuthMiddleware(&stubValidator{userID: userID}), viewerEcho)

	t.Run("missing header", func(t *testing.T) {
		w := doRequest(router, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		w := doRequest(router, "Token abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token sets viewer", func(t *testing.T) {
		w := doRequest(router, "Bearer some-token")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), userID.String())
	})

	t.Run("rejected token", func(t *testing.T) {
		rejecting := gin.New()
		rejecting.GET("/probe", AuthMiddleware(&stubValidator{err: errors.New("expired")}), viewerEcho)
		w := doRequest(rejecting, "Bearer stale")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestOptionalAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()

	router := gin.New()
	router.GET("/probe", OptionalAuthMiddleware(&stubValidator{userID: userID}), viewerEcho)

	t.Run("anonymous passes through", func(t *testing.T) {
		w := doRequest(router, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "null")
	})

	t.Run("valid token is picked up", func(t *testing.T) {
		w := doRequest(router, "Bearer some-token")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), userID.String())
	})

	t.Run("invalid token stays anonymous", func(t *testing.T) {
		rejecting := gin.New()
		rejecting.GET("/probe", OptionalAuthMiddleware(&stubValidator{err: errors.New("bad")}), viewerEcho)
		w := doRequest(rejecting, "Bearer junk")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "null")
	})
}
