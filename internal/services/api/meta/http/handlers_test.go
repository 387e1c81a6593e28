package http

import (
	stdctx "context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	phttp "cancioneiro/internal/platform/net/http"
	"cancioneiro/internal/platform/testkit"

	"github.com/go-chi/chi/v5"
)

type pinger struct{ err error }

func (p pinger) Ping(stdctx.Context) error { return p.err }

func serveCode(t *testing.T, d Deps, path string, code int) *httptest.ResponseRecorder {
	t.Helper()
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), d)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if rec.Code != code {
		t.Fatalf("%s status = %d, want %d body=%s", path, rec.Code, code, rec.Body.String())
	}
	return rec
}

func serve(t *testing.T, d Deps, path string) *httptest.ResponseRecorder {
	t.Helper()
	return serveCode(t, d, path, http.StatusOK)
}

func TestHealthAndService(t *testing.T) {
	t.Parallel()
	d := Deps{ServiceName: "cancioneiro-api", StartedAt: time.Now().Add(-time.Minute)}
	testkit.MustContain(t, serve(t, d, "/health").Body.String(), `"service":"cancioneiro-api"`)
	testkit.MustContain(t, serve(t, d, "/service").Body.String(), `"name":"cancioneiro-api"`)
	testkit.MustContain(t, serve(t, d, "/version").Body.String(), `"version":"dev"`)
}

func TestReady(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		deps Deps
		code int
		want string
	}{
		{"memory only", Deps{}, http.StatusOK, `"status":"ok"`},
		{"both up", Deps{PG: pinger{}, CH: pinger{}}, http.StatusOK, `"elapsed":`},
		{"ch down", Deps{PG: pinger{}, CH: pinger{err: errors.New("refused")}}, http.StatusServiceUnavailable, `"error":"refused"`},
		{"no ping", Deps{PG: struct{}{}}, http.StatusOK, `"status":"degraded"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			testkit.MustContain(t, serveCode(t, tc.deps, "/ready", tc.code).Body.String(), tc.want)
		})
	}
}

func TestTaxonomy(t *testing.T) {
	t.Parallel()
	body := serve(t, Deps{}, "/taxonomy").Body.String()
	testkit.MustContain(t, body, `"unclassified":"NC"`)
	testkit.MustContain(t, body, `"label":"Sentimentos"`)
}
