package modkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"cancioneiro/internal/modkit/httpkit"
	phttp "cancioneiro/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func tag(v string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Mw", v)
			next.ServeHTTP(w, r)
		})
	}
}

func hello(path string) func(httpkit.Router) {
	return func(r httpkit.Router) {
		r.Get(path, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestBuild_Defaults(t *testing.T) {
	t.Parallel()

	b := Build()
	if b.Name != "" || b.Prefix != "" || len(b.Mw) != 0 || len(b.extra) != 0 {
		t.Fatalf("zero build not empty: %+v", b)
	}
}

func TestBuild_LaterOptionsWin(t *testing.T) {
	t.Parallel()

	b := Build(WithName("stats"), WithPrefix("/stats"), WithName("meta"), WithRegister(nil))
	if b.Name != "meta" || b.Prefix != "/stats" {
		t.Fatalf("got name=%q prefix=%q", b.Name, b.Prefix)
	}
	if len(b.extra) != 0 {
		t.Fatal("nil register should be ignored")
	}
}

func TestBuild_MiddlewareCopy(t *testing.T) {
	t.Parallel()

	mws := []func(http.Handler) http.Handler{tag("a"), tag("b")}
	b := Build(WithMiddlewares(mws...))
	mws[0] = nil
	if len(b.Mw) != 2 || b.Mw[0] == nil {
		t.Fatal("Build must copy the middleware slice")
	}
}

func TestBuilt_MountUnderPrefix(t *testing.T) {
	t.Parallel()

	mux := chi.NewRouter()
	b := Build(
		WithPrefix("/stats"),
		WithMiddlewares(tag("a")),
		WithMiddlewares(tag("b")),
		WithRegister(hello("/extra")),
	)
	b.Mount(phttp.AdaptChi(mux), hello("/artist"))

	rec := get(t, mux, "/stats/artist")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Values("X-Mw"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("middleware order = %v", got)
	}
	if rec := get(t, mux, "/stats/extra"); rec.Code != http.StatusNoContent {
		t.Fatalf("extra route status = %d", rec.Code)
	}
	if rec := get(t, mux, "/artist"); rec.Code != http.StatusNotFound {
		t.Fatalf("unprefixed route should 404, got %d", rec.Code)
	}
}

func TestBuilt_MountWithoutPrefixScopesMiddleware(t *testing.T) {
	t.Parallel()

	mux := chi.NewRouter()
	r := phttp.AdaptChi(mux)
	Build(WithMiddlewares(tag("pipe"))).Mount(r, hello("/annotate"))
	hello("/other")(r)

	if rec := get(t, mux, "/annotate"); rec.Header().Get("X-Mw") != "pipe" {
		t.Fatalf("group route missing middleware: %v", rec.Header())
	}
	if rec := get(t, mux, "/other"); rec.Header().Get("X-Mw") != "" {
		t.Fatal("group middleware leaked to sibling route")
	}
}
