package instance

import "os"

// ID names the running process for logs: the configured id, else the
// hostname.
func ID(configured string) string {
	if configured != "" {
		return configured
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
