package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router is what modules mount against, chi stays behind it
type Router interface {
	Get(pattern string, h http.HandlerFunc)
	Post(pattern string, h http.HandlerFunc)
	Delete(pattern string, h http.HandlerFunc)
	Handle(pattern string, h http.Handler)
	Use(mw ...func(http.Handler) http.Handler)
	Group(fn func(Router))
	Route(pattern string, fn func(Router))

	// Mux is the handler serving everything mounted so far
	Mux() http.Handler
}

// chiRouter serves the root mux and every group or sub-route cut from it
type chiRouter struct{ r chi.Router }

// AdaptChi wraps m as a Router
func AdaptChi(m *chi.Mux) Router { return chiRouter{r: m} }

func (c chiRouter) Get(p string, h http.HandlerFunc)    { c.r.Get(p, h) }
func (c chiRouter) Post(p string, h http.HandlerFunc)   { c.r.Post(p, h) }
func (c chiRouter) Delete(p string, h http.HandlerFunc) { c.r.Delete(p, h) }
func (c chiRouter) Handle(p string, h http.Handler)     { c.r.Handle(p, h) }

func (c chiRouter) Use(mw ...func(http.Handler) http.Handler) { c.r.Use(mw...) }

func (c chiRouter) Group(fn func(Router)) {
	c.r.Group(func(sub chi.Router) { fn(chiRouter{r: sub}) })
}

func (c chiRouter) Route(p string, fn func(Router)) {
	c.r.Route(p, func(sub chi.Router) { fn(chiRouter{r: sub}) })
}

func (c chiRouter) Mux() http.Handler { return c.r }

// Param returns the named path parameter of the matched route
func Param(r *http.Request, name string) string { return chi.URLParam(r, name) }
