package logging

import (
	"regexp"
	"strings"
)

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "[REDACTED]"

var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"service_key",
	"service-key",
	"authorization",
}

// sshpass-style and KEY=value secrets that tend to show up inside commands.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(sshpass\s+-p\s*)(\S+)`),
	regexp.MustCompile(`(?i)((?:password|passwd|secret|token)=)("[^"]*"|'[^']*'|\S+)`),
}

// Redact replaces secrets embedded in s.
func Redact(s string) string {
	result := s
	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllString(result, "${1}"+RedactedValue)
	}
	return result
}

// IsSensitiveField checks if a field name is considered sensitive.
func IsSensitiveField(name string) bool {
	lowerName := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lowerName, field) {
			return true
		}
	}
	return false
}
