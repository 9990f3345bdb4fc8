package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGatewayRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/whoami", handler, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString("user_id"),
			"role":    c.GetString("user_role"),
		})
	})
	return router
}

func TestGatewayAuthTrustsHeaders(t *testing.T) {
	router := newGatewayRouter(GatewayAuth())

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("X-User-ID", "user-9")
	req.Header.Set("X-User-Role", "admin")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-9")
	assert.Contains(t, w.Body.String(), "admin")
}

func TestGatewayAuthRequiresUserID(t *testing.T) {
	router := newGatewayRouter(GatewayAuth())

	req := httptest.NewRequest("GET", "/whoami", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNoAuthSetsAnonymousIdentity(t *testing.T) {
	router := newGatewayRouter(NoAuth())

	req := httptest.NewRequest("GET", "/whoami", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "anonymous")
}
