// Package swaggerkit mounts the swagger UI and the OpenAPI document it reads
package swaggerkit

import (
	"encoding/json"
	"net/http"

	"cancioneiro/internal/core/version"
	phttp "cancioneiro/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Mount the Swagger UI and JSON spec if enabled
func Mount(r phttp.Router, enabled bool) {
	if !enabled {
		return
	}
	r.Get("/api/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/docs/", http.StatusPermanentRedirect)
	})
	r.Get("/api/docs/doc.json", serveDocJSON)
	r.Handle("/api/docs/*", httpSwagger.Handler(
		httpSwagger.InstanceName("api"),
		httpSwagger.URL("/api/docs/doc.json"),
	))
}

// skeleton is served when no generated spec is linked in
type skeleton struct {
	OpenAPI string              `json:"openapi"`
	Info    map[string]string   `json:"info"`
	Servers []map[string]string `json:"servers"`
	Paths   map[string]any      `json:"paths"`
}

func serveDocJSON(w http.ResponseWriter, _ *http.Request) {
	info := version.Info()
	doc := skeleton{
		OpenAPI: "3.0.3",
		Info:    map[string]string{"title": "Cancioneiro API", "version": info.Version},
		Servers: []map[string]string{{"url": "/api/v1"}},
		Paths:   map[string]any{},
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(doc)
}
