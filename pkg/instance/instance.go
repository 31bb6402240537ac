package instance

import (
	"os"

	"github.com/angelmondragon/assettrack-backend/pkg/env"
)

const fallbackID = "local"

// ID identifies the running process across replicas. It prefers an explicit
// INSTANCE_ID, then the container hostname.
func ID() string {
	if id := env.Get("INSTANCE_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
