package http_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cancioneiro/internal/platform/config"
	phttp "cancioneiro/internal/platform/net/http"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func TestNewServer_Addr(t *testing.T) {
	t.Setenv("PORT", "")
	if got := phttp.NewServer(config.New()).Addr(); got != ":4000" {
		t.Fatalf("default addr = %q", got)
	}

	t.Setenv("CORE_API_PORT", ":12345")
	if got := phttp.NewServer(config.New().Prefix("CORE_API_")).Addr(); got != ":12345" {
		t.Fatalf("prefixed addr = %q", got)
	}
}

func TestServer_Router(t *testing.T) {
	srv := phttp.NewServer(config.New())
	r := srv.Router()
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "pong") })

	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Body.String() != "pong" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	addr := freeAddr(t)
	t.Setenv("PORT", addr)
	srv := phttp.NewServer(config.New())
	srv.Router().Get("/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "pong") })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	// wait for the listener
	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + addr + "/ping")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "pong" {
		t.Fatalf("body = %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v after cancel", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestServer_RunReturnsListenError(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:abc")
	if err := phttp.NewServer(config.New()).Run(context.Background()); err == nil {
		t.Fatalf("expected a listen error")
	}
}
