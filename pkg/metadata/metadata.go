// Package metadata validates the generation context clients attach to
// research requests. The context is a flat string map passed to the
// artifact generator (project name, audience, and so on).
package metadata

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	MaxEntries  = 20
	MaxKeyLen   = 50
	MaxValueLen = 500
)

// reserved keys are set by the server and rejected from clients.
var reserved = map[string]struct{}{
	"quality_warning": {},
}

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Context is a generation context.
type Context map[string]string

// Parse decodes a JSON object. An empty string is an empty context.
func Parse(jsonStr string) (Context, error) {
	if strings.TrimSpace(jsonStr) == "" {
		return Context{}, nil
	}
	var c Context
	if err := json.Unmarshal([]byte(jsonStr), &c); err != nil {
		return nil, fmt.Errorf("failed to parse generation context: %w", err)
	}
	if c == nil {
		c = Context{}
	}
	return c, nil
}

// String encodes the context as JSON, "" when empty.
func (c Context) String() string {
	if len(c) == 0 {
		return ""
	}
	data, err := json.Marshal(map[string]string(c))
	if err != nil {
		return ""
	}
	return string(data)
}

// Normalize returns a copy with lowercased, trimmed keys and trimmed
// values. Entries left empty are dropped.
func (c Context) Normalize() Context {
	out := make(Context, len(c))
	for k, v := range c {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// Validate checks the size limits, key syntax and reserved keys.
// Errors name the first offending key in sorted order.
func (c Context) Validate() error {
	if len(c) > MaxEntries {
		return fmt.Errorf("too many context entries: max %d allowed, got %d", MaxEntries, len(c))
	}
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(k) > MaxKeyLen {
			return fmt.Errorf("context key %q too long: max %d characters", k, MaxKeyLen)
		}
		if !keyPattern.MatchString(k) {
			return fmt.Errorf("context key %q must be lowercase letters, digits or underscores", k)
		}
		if _, ok := reserved[k]; ok {
			return fmt.Errorf("context key %q is reserved", k)
		}
		if len(c[k]) > MaxValueLen {
			return fmt.Errorf("context value of %q too long: max %d characters, got %d", k, MaxValueLen, len(c[k]))
		}
	}
	return nil
}
