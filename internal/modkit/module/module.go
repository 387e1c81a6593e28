// Package module defines the module contract and port lookup
package module

import (
	phttp "cancioneiro/internal/platform/net/http"
)

// Module is what the API composes. It lives apart from modkit so a module
// can export its own ports type without an import cycle
type Module interface {
	MountRoutes(r phttp.Router)
	// Ports returns the module's port bundle, usually a struct of services
	Ports() any
	Name() string
}
