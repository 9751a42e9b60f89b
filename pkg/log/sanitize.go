package log

import (
	"net/url"
	"slices"
	"strings"
)

var sensitiveKeywords = []string{
	"password", "passwd",
	"api_key", "apikey", "api-key",
	"token", "secret", "authorization",
	"credential", "private_key", "encryption_key",
}

// sensitiveParams are query parameters that carry provider credentials.
var sensitiveParams = []string{"key", "api_key", "apikey", "token", "access_token"}

// SanitizeField masks value when key names a secret. URLs logged under any
// key have their credential query parameters masked.
func SanitizeField(key, value string) string {
	if value == "" {
		return value
	}
	lower := strings.ToLower(key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return sanitizeToken(value)
		}
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return sanitizeURL(value)
	}
	return value
}

// sanitizeToken keeps the first and last four characters of long values.
func sanitizeToken(value string) string {
	if len(value) <= 8 {
		if len(value) <= 2 {
			return strings.Repeat("*", len(value))
		}
		return string(value[0]) + strings.Repeat("*", len(value)-2) + string(value[len(value)-1])
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

func sanitizeURL(value string) string {
	u, err := url.Parse(value)
	if err != nil || u.RawQuery == "" {
		return value
	}
	pairs := strings.Split(u.RawQuery, "&")
	changed := false
	for i, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || v == "" || !slices.Contains(sensitiveParams, strings.ToLower(k)) {
			continue
		}
		pairs[i] = k + "=" + sanitizeToken(v)
		changed = true
	}
	if !changed {
		return value
	}
	u.RawQuery = strings.Join(pairs, "&")
	return u.String()
}
