package ui

import (
	"os"
	"strings"
)

// EnvBool reads a boolean-like environment variable. 1, true, yes, on and y
// are true; 0, false, no, off and n are false. Anything else, including an
// unset variable, yields defaultValue.
func EnvBool(name string, defaultValue bool) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(name))) {
	case "1", "true", "yes", "on", "y":
		return true
	case "0", "false", "no", "off", "n":
		return false
	default:
		return defaultValue
	}
}
