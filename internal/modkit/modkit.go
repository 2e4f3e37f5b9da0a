package modkit

import "commitflow/internal/modkit/module"

// Module is what the API mounts: routes, a name and the ports it offers
type Module = module.Module
