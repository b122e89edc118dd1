// Package logging provides zerolog helpers that keep credentials out of logs.
//
// The duration suggester authenticates with a bearer API key, so request
// dumps and error bodies can carry secrets. The FilteringWriter redacts them
// before anything reaches the rotating log file.
package logging

import (
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// RedactedValue is the replacement string for sensitive data.
const RedactedValue = "[REDACTED]"

// sensitivePatterns match credential formats that may show up in log lines.
var sensitivePatterns = []*regexp.Regexp{ //nolint:gochecknoglobals // compiled once
	// OpenAI-style keys, including project and service-account keys (sk-proj-..., sk-svcacct-...)
	regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),

	// Bearer tokens in Authorization headers
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._~+/=-]{16,}`),

	// api_key=..., "apiKey": "..." and similar
	regexp.MustCompile(`(?i)(api[_-]?key)["']?\s*[:=]\s*["']?[a-zA-Z0-9_-]{16,}["']?`),

	// password=..., secret: ...
	regexp.MustCompile(`(?i)(secret|password|passwd|token)["']?\s*[:=]\s*["']?[^\s"',}]{8,}["']?`),
}

// sensitiveFieldNames are field names whose values are always redacted.
var sensitiveFieldNames = []string{ //nolint:gochecknoglobals // compiled once
	"api_key",
	"apikey",
	"api-key",
	"authorization",
	"bearer",
	"password",
	"secret",
	"token",
}

// SensitiveDataHook flags log events whose message contains a credential.
// zerolog hooks cannot rewrite the message; redaction itself happens in
// FilteringWriter.
type SensitiveDataHook struct{}

// NewSensitiveDataHook creates a SensitiveDataHook.
func NewSensitiveDataHook() *SensitiveDataHook {
	return &SensitiveDataHook{}
}

// Run implements zerolog.Hook.
func (h *SensitiveDataHook) Run(e *zerolog.Event, _ zerolog.Level, msg string) {
	if ContainsSensitiveData(msg) {
		e.Bool("contains_filtered_data", true)
	}
}

// ContainsSensitiveData reports whether s matches any credential pattern.
func ContainsSensitiveData(s string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

// FilterSensitiveValue replaces every credential match in value with [REDACTED].
func FilterSensitiveValue(value string) string {
	result := value
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// IsSensitiveFieldName reports whether a field name denotes a credential.
// Names ending in "_env_var" hold variable names, not secrets.
func IsSensitiveFieldName(fieldName string) bool {
	lowerName := strings.ToLower(fieldName)
	if strings.HasSuffix(lowerName, "_env_var") {
		return false
	}
	for _, sensitive := range sensitiveFieldNames {
		if strings.Contains(lowerName, sensitive) {
			return true
		}
	}
	return false
}

// RedactIfSensitive returns [REDACTED] for sensitive field names and the
// pattern-filtered value otherwise. Empty values stay empty.
func RedactIfSensitive(fieldName, value string) string {
	if value == "" {
		return ""
	}
	if IsSensitiveFieldName(fieldName) {
		return RedactedValue
	}
	return FilterSensitiveValue(value)
}

// FilteringWriter wraps an io.Writer and redacts credentials from everything
// written through it.
type FilteringWriter struct {
	w io.Writer
}

// NewFilteringWriter creates a FilteringWriter around w.
func NewFilteringWriter(w io.Writer) *FilteringWriter {
	return &FilteringWriter{w: w}
}

// Write implements io.Writer. It reports len(p) on success even when the
// filtered output is shorter.
func (fw *FilteringWriter) Write(p []byte) (int, error) {
	filtered := FilterSensitiveValue(string(p))
	if _, err := fw.w.Write([]byte(filtered)); err != nil {
		return 0, err
	}
	return len(p), nil
}
