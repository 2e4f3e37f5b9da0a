// Package module is the contract every mounted unit of the API satisfies,
// plus a process-wide registry for handing port sets between them
package module

import (
	phttp "commitflow/internal/platform/net/http"
)

// Module is a named unit with routes and a bundle of ports.
// Routeless modules implement MountRoutes as a no-op.
type Module interface {
	Name() string
	MountRoutes(r phttp.Router)
	Ports() any
}
