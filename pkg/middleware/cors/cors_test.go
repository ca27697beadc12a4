package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins))
	r.POST("/bookings", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func TestPreflightAllowsIdempotencyKey(t *testing.T) {
	r := newRouter([]string{"https://app.example.com/"})

	req := httptest.NewRequest(http.MethodOptions, "/bookings", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Idempotency-Key")
}

func TestUnknownOriginIsNotEchoed(t *testing.T) {
	r := newRouter([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWildcardSubdomain(t *testing.T) {
	p := newPolicy([]string{"https://*.tutoring.example"})

	assert.True(t, p.allows("https://eu.tutoring.example"))
	assert.False(t, p.allows("http://eu.tutoring.example"))
	assert.False(t, p.allows("https://tutoring.example"))
	assert.False(t, p.allows("https://eviltutoring.example"))
}

func TestNoOriginsConfiguredReflectsCaller(t *testing.T) {
	r := newRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Retry-After")
}
