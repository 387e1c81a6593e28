package middleware_test

import (
	"compress/flate"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cancioneiro/internal/platform/logger"
	"cancioneiro/internal/platform/net/middleware"
	"cancioneiro/internal/platform/testkit"
)

func chain(h http.Handler, mws ...middleware.Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAccessLog_BridgesRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}), middleware.RequestID(), middleware.AccessLog(0))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "abc")
	rec := serve(h, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") != "abc" || seen != "abc" {
		t.Fatalf("header %q ctx %q", rec.Header().Get("X-Request-Id"), seen)
	}
}

func TestAccessLog_MintsIDWhenMissing(t *testing.T) {
	t.Parallel()

	h := chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}), middleware.RequestID(), middleware.AccessLog(time.Nanosecond))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("code %d id %q", rec.Code, rec.Header().Get("X-Request-Id"))
	}
}

func TestRecoverJSON_WritesEnvelope(t *testing.T) {
	t.Parallel()

	h := chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), middleware.RequestID(), middleware.AccessLog(0), middleware.RecoverJSON)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "p1")
	var rec *httptest.ResponseRecorder
	testkit.MustNotPanic(t, func() { rec = serve(h, req) })
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var env struct {
		Code      int    `json:"code"`
		RequestID string `json:"request_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("body %q: %v", rec.Body.String(), err)
	}
	if env.Code == 0 || env.RequestID != "p1" {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestRecoverJSON_AbortHandlerPropagates(t *testing.T) {
	t.Parallel()

	h := middleware.RecoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if v := recover(); v != http.ErrAbortHandler {
			t.Fatalf("recovered %v", v)
		}
	}()
	serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestCompress_JSON(t *testing.T) {
	t.Parallel()

	body := strings.Repeat(`{"verso":"tu pisavas os astros distraída"}`, 50)
	h := middleware.Compress(flate.BestSpeed)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := serve(h, req)
	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("encoding = %q", rec.Header().Get("Content-Encoding"))
	}
	if rec.Body.Len() >= len(body) {
		t.Fatalf("not compressed: %d >= %d", rec.Body.Len(), len(body))
	}
}

func TestCORS_Preflight(t *testing.T) {
	t.Parallel()

	h := middleware.CORS([]string{"https://app.example"})(http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/jobs", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(h, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/jobs", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = serve(h, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("foreign origin allowed: %q", got)
	}
}

func TestThrottleBacklog_Rejects(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	entered := make(chan struct{})
	h := middleware.ThrottleBacklog(1, 0, 10*time.Millisecond)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		close(entered)
		<-release
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	}()
	<-entered

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	close(release)
	<-done
	if rec.Code != http.StatusTooManyRequests && rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("second request = %d", rec.Code)
	}
}
