// Package util holds small helpers shared across packages.
package util

import (
	"os"
	"strings"
)

// EnvOrDefault returns the trimmed value of the environment variable key, or
// fallback when the variable is unset or blank.
func EnvOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
