package logger

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// payloadKeys name attributes carrying user-written message text.
var payloadKeys = map[string]struct{}{
	"subject": {},
	"body":    {},
	"content": {},
}

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"encryption_key",
	"master_key",
	"credential",
	"authorization",
	"bearer",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive replaces payload text with its length and secrets with a
// placeholder. Groups are walked recursively.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}

	strVal := a.Value.String()
	if IsPayloadKey(a.Key) {
		return slog.String(a.Key, redactPayload(strVal))
	}
	if strVal != "" && IsSensitiveKey(a.Key) {
		return slog.String(a.Key, redactedValue)
	}
	return a
}

// redactPayload keeps only the rune count of s.
func redactPayload(s string) string {
	return fmt.Sprintf("[%d chars]", utf8.RuneCountInString(s))
}

// RedactString partially masks a secret, keeping the first and last three
// characters when it is long enough to stay unrecognizable.
func RedactString(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 12 {
		return "***"
	}
	return value[:3] + "..." + value[len(value)-3:]
}

// IsSensitiveKey checks if a key name suggests a secret.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsPayloadKey reports whether key carries message text.
func IsPayloadKey(key string) bool {
	_, ok := payloadKeys[strings.ToLower(key)]
	return ok
}
