package mcqgen

import (
	"log"
	"strings"
)

// Global verbose flag
var verboseMode bool

// SetVerbose sets the global verbose mode
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// VerboseLog logs only when verbose mode is enabled
func VerboseLog(format string, v ...interface{}) {
	if verboseMode {
		log.Printf(format, v...)
	}
}

// RedactKey is the only form in which an API key may be logged. It reveals
// whether a key is set and nothing about its value.
func RedactKey(key string) string {
	if strings.TrimSpace(key) == "" {
		return "<unset>"
	}
	return "<set>"
}
