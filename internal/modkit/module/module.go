// Package module defines the contract every service module satisfies
package module

import (
	phttp "listingsync/internal/platform/net/http"
)

// Module mounts its routes (possibly none) and exposes the ports other modules wire against
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}
