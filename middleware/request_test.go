package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"shophand/logging"
)

type recorder struct {
	mu   sync.Mutex
	seen []time.Duration
}

func (r *recorder) ObserveRequest(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, d)
}

func TestRequestIDAndLogger(t *testing.T) {
	obs := &recorder{}
	r := gin.New()
	r.Use(RequestID(), RequestLogger(obs))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(logging.RequestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") != "abc-123" || w.Body.String() != "abc-123" {
		t.Fatalf("request id not propagated: header=%q body=%q", w.Header().Get("X-Request-ID"), w.Body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if id := w.Header().Get("X-Request-ID"); len(id) != 36 || id != w.Body.String() {
		t.Fatalf("minted id = %q", id)
	}
	if len(obs.seen) != 2 {
		t.Fatalf("observed %d requests", len(obs.seen))
	}
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/x", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing allow-origin")
	}
}
