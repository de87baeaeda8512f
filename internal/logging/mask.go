package logging

import (
	"log/slog"
	"net/url"
	"strings"
)

const masked = "***"

// sensitiveKeys are attribute keys whose string values are masked.
var sensitiveKeys = []string{"token", "secret", "password", "authorization"}

// MaskURL hides the secret part of a webhook target. Discord, Slack and
// Teams embed their secret in the path, so only the scheme, host and first
// path segment are kept. A telegram bot token keeps its numeric bot id.
func MaskURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if id, _, ok := strings.Cut(raw, ":"); ok && id != "" && !strings.Contains(id, "/") {
			return id + ":" + masked
		}
		return masked
	}

	kept := u.Scheme + "://" + u.Host
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if segments[0] != "" {
		kept += "/" + segments[0]
	}
	if len(segments) > 1 || u.RawQuery != "" {
		kept += "/" + masked
	}
	return kept
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range sensitiveKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// maskAttr is the ReplaceAttr hook of every handler built by Init.
func maskAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	switch {
	case a.Key == KeyURL:
		return slog.String(a.Key, MaskURL(a.Value.String()))
	case isSensitiveKey(a.Key):
		return slog.String(a.Key, masked)
	}
	return a
}
