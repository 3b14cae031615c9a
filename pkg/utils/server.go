package utils

import (
	"os"
	"strings"

	"github.com/google/uuid"
)

// GetServerID returns a stable label for this process, used in logs and stats.
// Order: explicit override, sanitized hostname, random fallback.
func GetServerID(override string) string {
	if override != "" {
		return override
	}

	hostname, err := os.Hostname()
	if err == nil && hostname != "" && hostname != "localhost" {
		cleanHost := strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
				return r
			}
			return -1
		}, hostname)
		if cleanHost != "" {
			return "azchat-" + cleanHost
		}
	}

	return "azchat-" + uuid.NewString()[:8]
}
