package modkit

import (
	"net/http"

	"cancioneiro/internal/modkit/httpkit"
)

// Built is the resolved module wiring
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler

	extra []func(httpkit.Router)
}

// Build applies opts in order, later options win
func Build(opts ...Option) Built {
	var c buildCfg
	for _, o := range opts {
		o(&c)
	}
	return Built{
		Name:   c.name,
		Prefix: c.prefix,
		Mw:     append([]func(http.Handler) http.Handler(nil), c.mw...),
		extra:  append(([]func(httpkit.Router))(nil), c.register...),
	}
}

// Mount attaches routes under Prefix behind Mw, followed by any WithRegister extras.
// An empty prefix mounts a group on r itself
func (b Built) Mount(r httpkit.Router, routes func(httpkit.Router)) {
	fn := func(rr httpkit.Router) {
		for _, mw := range b.Mw {
			rr.Use(mw)
		}
		if routes != nil {
			routes(rr)
		}
		for _, x := range b.extra {
			x(rr)
		}
	}
	if b.Prefix == "" || b.Prefix == "/" {
		r.Group(fn)
		return
	}
	r.Route(b.Prefix, fn)
}
