// Package gcp holds helpers shared by the Google Cloud clients.
package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/angelmondragon/mesflow-backend/pkg/config"
)

// ClientOptions picks explicit credentials from configuration. Inline JSON
// wins over a file path; with neither set the clients fall back to
// application default credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(cfg.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(cfg.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// ProjectID returns the trimmed project id, or "" when unset.
func ProjectID(cfg config.GCPConfig) string {
	return strings.TrimSpace(cfg.ProjectID)
}
