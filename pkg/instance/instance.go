package instance

import (
	"os"

	"github.com/angelmondragon/mesflow-backend/pkg/env"
)

// GetID names the running process in logs and lock owners. MESFLOW_INSTANCE_ID
// wins, then the platform dyno name, then the hostname.
func GetID() string {
	if id := env.Get("", "MESFLOW_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
