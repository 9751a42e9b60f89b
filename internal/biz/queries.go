package biz

import (
	"fmt"
	"strings"
)

var baseQueryTemplates = []string{
	"%s official documentation",
	"%s getting started tutorial",
	"%s best practices",
	"%s code examples",
}

var categoryQueryTemplates = map[string][]string{
	"language": {"%s idiomatic patterns", "%s standard library"},
	"frontend": {"%s component patterns", "%s state management"},
	"backend":  {"%s api design", "%s production deployment"},
	"runtime":  {"%s performance tuning", "%s package management"},
	"database": {"%s schema design", "%s query performance"},
	"devops":   {"%s configuration reference", "%s ci cd pipeline"},
	"testing":  {"%s test patterns", "%s mocking"},
	"ml":       {"%s model training", "%s inference deployment"},
	"general":  {"%s architecture overview"},
}

// BuildQueries returns the base queries followed by the category queries
// for name, without duplicates.
func BuildQueries(name, category string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	extra, ok := categoryQueryTemplates[category]
	if !ok {
		extra = categoryQueryTemplates["general"]
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, len(baseQueryTemplates)+len(extra))
	for _, tpl := range append(append([]string(nil), baseQueryTemplates...), extra...) {
		q := fmt.Sprintf(tpl, name)
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}
