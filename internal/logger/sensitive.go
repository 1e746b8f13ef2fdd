package logger

import (
	"regexp"
	"strings"
)

const redactedValue = "[REDACTED]"

// sensitiveDataPatterns match credentials embedded in free-form strings such as
// driver error messages and connection strings.
var sensitiveDataPatterns = []*regexp.Regexp{
	// user:password@tcp(host:port)/ style MySQL DSNs
	regexp.MustCompile(`([^\s:/@]+:)([^@\s]+)(@(?:tcp|unix)\()`),

	// password=..., secret: ..., token=...
	regexp.MustCompile(`(?i)((passw(or)?d|secret|token|api[-_]?key)[\s:=]+)([^;,\s]{3,})`),

	// credentials in URLs, including shoutrrr service URLs
	regexp.MustCompile(`([a-z][a-z0-9+.-]*://[^:/@\s]+:)([^@\s]+)(@)`),
}

// sensitiveKeywords mark field keys whose string values must never be logged
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "dsn", "credential",
}

// RedactSensitiveData replaces credentials in input with "[REDACTED]"
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}

	for i, pattern := range sensitiveDataPatterns {
		switch i {
		case 1:
			input = pattern.ReplaceAllString(input, "${1}"+redactedValue)
		default:
			input = pattern.ReplaceAllString(input, "${1}"+redactedValue+"${3}")
		}
	}

	return input
}

func isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(keyLower, keyword) {
			return true
		}
	}
	return false
}
