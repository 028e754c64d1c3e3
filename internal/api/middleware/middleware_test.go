package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw)
	r.POST("/wa/get-status", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r http.Handler, method, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = ip + ":1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitPerIP(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.RequestsPerSecond = 1
	cfg.Burst = 2
	r := newRouter(RateLimit(cfg))

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/wa/get-status", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/wa/get-status", "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/wa/get-status", "10.0.0.1").Code)

	// other clients have their own bucket
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/wa/get-status", "10.0.0.2").Code)

	// exempt paths are never limited
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "10.0.0.1").Code)
	}
}

func TestRateLimitEvictsIdleVisitors(t *testing.T) {
	now := time.Unix(0, 0)
	v := &visitors{
		cfg:     RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute},
		byIP:    make(map[string]*visitor),
		lastGC:  now,
		nowFunc: func() time.Time { return now },
	}

	v.get("a")
	v.get("b")
	assert.Equal(t, 2, v.size())

	now = now.Add(2 * time.Minute)
	v.get("c")
	assert.Equal(t, 1, v.size())
}

func TestCORS(t *testing.T) {
	r := newRouter(CORS(DefaultCORSConfig()))

	req := httptest.NewRequest(http.MethodOptions, "/wa/get-status", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAllowList(t *testing.T) {
	r := newRouter(CORS(CORSConfig{AllowOrigins: []string{"https://app.example"}, MaxAge: time.Hour}))

	req := httptest.NewRequest(http.MethodPost, "/wa/get-status", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/wa/get-status", nil)
	req.Header.Set("Origin", "https://app.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}
