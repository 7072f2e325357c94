package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestRateLimitMiddleware_AllowsUnderLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(10, 2))
	r.GET("/ok", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/ok", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimitMiddleware_BlocksWhenExceeded(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(0.5, 1))
	r.GET("/limited", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest("GET", "/limited", nil))
	require.Equal(t, http.StatusOK, w1.Code)

	// immediate second request exhausts the single-token bucket
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest("GET", "/limited", nil))
	require.Equal(t, http.StatusTooManyRequests, w2.Code)

	// after 0.5s one token has replenished
	time.Sleep(600 * time.Millisecond)
	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, httptest.NewRequest("GET", "/limited", nil))
	require.Equal(t, http.StatusOK, w3.Code)
}

func TestRateLimitMiddleware_UsesSubjectWhenPresent(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("claims", map[string]interface{}{"sub": "admin-123"})
		c.Next()
	})
	r.Use(RateLimitMiddleware(0.5, 1))
	r.GET("/u", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, httptest.NewRequest("GET", "/u", nil))
	require.Equal(t, http.StatusOK, w1.Code)

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest("GET", "/u", nil))
	require.Equal(t, http.StatusTooManyRequests, w2.Code)
}

func TestRateLimitMiddleware_IndependentInstances(t *testing.T) {
	r := gin.New()
	r.GET("/a", RateLimitMiddleware(0.5, 1), func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	r.GET("/b", RateLimitMiddleware(0.5, 1), func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	wa := httptest.NewRecorder()
	r.ServeHTTP(wa, httptest.NewRequest("GET", "/a", nil))
	require.Equal(t, http.StatusOK, wa.Code)

	// /b has its own bucket and is unaffected by the hit on /a
	wb := httptest.NewRecorder()
	r.ServeHTTP(wb, httptest.NewRequest("GET", "/b", nil))
	require.Equal(t, http.StatusOK, wb.Code)
}
