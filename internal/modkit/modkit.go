package modkit

import "cancioneiro/internal/modkit/module"

// Module is the surface api.Mount needs from a module
type Module = module.Module
