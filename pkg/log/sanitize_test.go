package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeField(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"plain value", "technology", "htmx", "htmx"},
		{"empty secret", "api_key", "", ""},
		{"long api key", "api_key", "1234567890abcdef", "1234********cdef"},
		{"short token", "token", "abcdef", "a****f"},
		{"tiny secret", "secret", "ab", "**"},
		{"case insensitive", "X-Subscription-Token", "abcdefghij", "abcd**ghij"},
		{"encryption key", "encryption_key", "0123456789abcdef0123456789abcdef", "0123************************cdef"},
		{"url without query", "url", "https://docs.htmx.dev/guide", "https://docs.htmx.dev/guide"},
		{"url with harmless query", "url", "https://search.example.com/search?q=htmx&format=json", "https://search.example.com/search?q=htmx&format=json"},
		{"url with key", "endpoint", "https://www.googleapis.com/customsearch/v1?key=AIzaSy123456789", "https://www.googleapis.com/customsearch/v1?key=AIza*******6789"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeField(tt.key, tt.value))
		})
	}
}
