package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestRedact_PayloadFields(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(t, &buf, "info")

	l.Info("mail delivered",
		"sender", "aaaaa-aa",
		"subject", "quarterly numbers",
		"body", "héllo",
		"content", "")

	entry := decodeEntry(t, &buf)
	tests := map[string]string{
		"sender":  "aaaaa-aa",
		"subject": "[17 chars]",
		"body":    "[5 chars]",
		"content": "[0 chars]",
	}
	for key, want := range tests {
		if got := entry[key]; got != want {
			t.Errorf("%s = %v, want %q", key, got, want)
		}
	}
	if strings.Contains(buf.String(), "quarterly") {
		t.Errorf("payload leaked into log: %s", buf.String())
	}
}

func TestRedact_SensitiveKeyName(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(t, &buf, "info")

	l.Info("config loaded",
		"encryption_key", "0123456789abcdef0123",
		"password", "hunter2",
		"empty_secret", "")

	entry := decodeEntry(t, &buf)
	if entry["encryption_key"] != redactedValue {
		t.Errorf("encryption_key = %v, want redacted", entry["encryption_key"])
	}
	if entry["password"] != redactedValue {
		t.Errorf("password = %v, want redacted", entry["password"])
	}
	if entry["empty_secret"] != "" {
		t.Errorf("empty_secret = %v, want empty", entry["empty_secret"])
	}
}

func TestRedact_Group(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(t, &buf, "info")

	l.Info("chat", slog.Group("msg", slog.String("content", "abc"), slog.String("receiver", "bbbbb-bb")))

	entry := decodeEntry(t, &buf)
	group, ok := entry["msg"].(map[string]any)
	if !ok {
		t.Fatalf("msg group missing: %v", entry)
	}
	if group["content"] != "[3 chars]" {
		t.Errorf("content = %v, want [3 chars]", group["content"])
	}
	if group["receiver"] != "bbbbb-bb" {
		t.Errorf("receiver = %v, want untouched", group["receiver"])
	}
}

func TestRedact_NonString(t *testing.T) {
	a := redactSensitive(slog.Int("subject", 3))
	if a.Value.Int64() != 3 {
		t.Errorf("non-string attribute changed: %v", a)
	}
}

func TestRedactString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"short", "***"},
		{"exactly12chr", "***"},
		{"0123456789abcdef", "012...def"},
	}
	for _, tt := range tests {
		if got := RedactString(tt.input); got != tt.expected {
			t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key      string
		expected bool
	}{
		{"password", true},
		{"ENCRYPTION_KEY", true},
		{"storage.encryption_key", true},
		{"Authorization", true},
		{"client_secret", true},
		{"email_timestamp", false},
		{"thread_key", false},
		{"sender", false},
	}
	for _, tt := range tests {
		if got := IsSensitiveKey(tt.key); got != tt.expected {
			t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.expected)
		}
	}
}

func TestIsPayloadKey(t *testing.T) {
	for _, key := range []string{"subject", "Body", "CONTENT"} {
		if !IsPayloadKey(key) {
			t.Errorf("IsPayloadKey(%q) = false, want true", key)
		}
	}
	if IsPayloadKey("last_message") {
		t.Error("IsPayloadKey(last_message) = true, want false")
	}
}
