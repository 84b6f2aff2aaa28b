package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_stock/internal/metrics"
	"github.com/GTDGit/gtd_stock/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserID))
	})
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	v := utils.NewJWTValidator("secret")
	valid, err := v.Sign("user-1", "ops@example.com", time.Hour)
	require.NoError(t, err)
	expired, err := v.Sign("user-1", "", -time.Minute)
	require.NoError(t, err)
	foreign, err := utils.NewJWTValidator("other").Sign("user-2", "", time.Hour)
	require.NoError(t, err)

	r := newRouter(NewJWTMiddleware(v).Handle())
	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + valid, http.StatusOK, "user-1"},
		{"missing", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "Token has expired"},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, "INVALID_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestJWTMiddlewareQueryToken(t *testing.T) {
	v := utils.NewJWTValidator("secret")
	token, err := v.Sign("user-9", "", time.Hour)
	require.NoError(t, err)
	r := newRouter(NewJWTMiddleware(v).HandleQueryToken())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/ping?token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-9", w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/ping?token=garbage", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(0.001, 2)
	r := newRouter(limiter.Handle())

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		codes = append(codes, serve(r, req).Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	other := httptest.NewRequest(http.MethodGet, "/ping", nil)
	other.RemoteAddr = "10.0.0.2:5000"
	assert.Equal(t, http.StatusOK, serve(r, other).Code)
}

func TestIPRateLimiterEvictsIdle(t *testing.T) {
	limiter := NewIPRateLimiter(1, 1)
	limiter.Allow("10.0.0.1")
	limiter.evict(time.Now().Add(idleLimiterTTL + time.Second))
	assert.Empty(t, limiter.limiters)
}

func TestCORSMiddleware(t *testing.T) {
	r := newRouter(CORSMiddleware([]string{"stock.example.com"}))

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://stock.example.com:443")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://stock.example.com:443", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.org")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Referer", "http://stock.example.com/agents?page=2")
	w = serve(r, req)
	assert.Equal(t, "http://stock.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestOriginHost(t *testing.T) {
	assert.Equal(t, "stock.example.com", originHost("https://Stock.Example.com:443/"))
	assert.Equal(t, "localhost:3000", originHost("http://localhost:3000"))
	assert.Empty(t, originHost("not a url"))
	assert.Empty(t, originHost(""))
}

func TestMetricsMiddleware(t *testing.T) {
	recorder := metrics.New()
	r := newRouter(MetricsMiddleware(recorder))

	serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	families, err := recorder.Registry().Gather()
	require.NoError(t, err)
	routes := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != metrics.MetricHTTPRequestsTotal {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "route" {
					routes[lp.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, map[string]float64{"/ping": 1, "unmatched": 1}, routes)
}

func TestLoggingMiddlewareSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(LoggingMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, w.Body.String(), 8)
}
