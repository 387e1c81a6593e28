// Package httpkit is what modules mount routes with
// use it instead of importing internal/platform/net/http directly
package httpkit

import (
	"net/http"

	phttp "cancioneiro/internal/platform/net/http"
)

type (
	// Router is the platform router seam
	Router = phttp.Router

	// Response lets a handler pick its own status
	Response = phttp.Response

	// Envelope is the body every route replies with, named in swagger annotations
	Envelope = phttp.Envelope
)

// Created returns a 201 response
func Created(data any) Response { return phttp.Created(data) }

// Accepted returns a 202 response
func Accepted(data any) Response { return phttp.Accepted(data) }

// Param returns a named path parameter
func Param(r *http.Request, name string) string { return phttp.Param(r, name) }

// Get mounts a body-less handler under GET
func Get(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, phttp.Call(h))
}

// Post mounts a body-less handler under POST
func Post(r Router, path string, h func(*http.Request) (any, error)) {
	r.Post(path, phttp.Call(h))
}

// PostJSON mounts a handler under POST that receives a validated T
func PostJSON[T any](r Router, path string, h func(*http.Request, T) (any, error)) {
	r.Post(path, phttp.Bind(h))
}

// MountAPIV1 mounts everything under /api/v1 behind mw
func MountAPIV1(r Router, mw []func(http.Handler) http.Handler, mount func(Router)) {
	r.Route("/api/v1", func(api Router) {
		if len(mw) > 0 {
			api.Use(mw...)
		}
		mount(api)
	})
}
