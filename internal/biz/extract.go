package biz

import (
	"regexp"
	"strings"

	"StackScout/internal/model"
	"StackScout/pkg/search"
)

const (
	maxBestPractices = 10
	maxCodeExamples  = 5
	maxDocURLs       = 5
)

var (
	sentenceSplit = regexp.MustCompile(`[.!?]\s+|\n`)
	inlineCode    = regexp.MustCompile("`([^`]{3,200})`")
	commandLine   = regexp.MustCompile(`(?:^|\s)((?:npm|npx|yarn|pnpm|pip|pip3|go|cargo|gem|composer|brew|docker|kubectl)\s+(?:install|add|get|run|init|build)\b[^.;\n]*)`)
)

var practiceMarkers = []string{
	"best practice", "should", "recommended", "recommend", "avoid", "prefer", "always", "never", "make sure",
}

// ExtractBestPractices collects advice-like sentences from the snippets.
func ExtractBestPractices(results []search.Result) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range results {
		for _, sentence := range sentenceSplit.Split(r.Snippet, -1) {
			sentence = strings.TrimRight(strings.TrimSpace(sentence), ".!?")
			if len(sentence) < 20 {
				continue
			}
			lower := strings.ToLower(sentence)
			if countIndicators(lower, practiceMarkers) == 0 {
				continue
			}
			if _, dup := seen[lower]; dup {
				continue
			}
			seen[lower] = struct{}{}
			out = append(out, sentence)
			if len(out) == maxBestPractices {
				return out
			}
		}
	}
	return out
}

// ExtractCodeExamples pulls inline code and install commands from the snippets.
func ExtractCodeExamples(results []search.Result, technology string) []model.CodeExample {
	seen := make(map[string]struct{})
	var out []model.CodeExample
	add := func(code, source string) bool {
		code = strings.TrimSpace(code)
		if code == "" {
			return false
		}
		if _, dup := seen[code]; dup {
			return false
		}
		seen[code] = struct{}{}
		out = append(out, model.CodeExample{
			Language:  guessLanguage(code, technology),
			Code:      code,
			SourceURL: source,
		})
		return len(out) == maxCodeExamples
	}

	for _, r := range results {
		for _, m := range inlineCode.FindAllStringSubmatch(r.Snippet, -1) {
			if add(m[1], r.URL) {
				return out
			}
		}
		for _, m := range commandLine.FindAllStringSubmatch(r.Snippet, -1) {
			if add(m[1], r.URL) {
				return out
			}
		}
	}
	return out
}

// DocumentationURLs returns documentation-like result URLs, best ranked first.
func DocumentationURLs(results []search.Result) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range results {
		if search.Kind(r.URL) != search.KindDocumentation {
			continue
		}
		key := search.NormalizeURL(r.URL)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r.URL)
		if len(out) == maxDocURLs {
			break
		}
	}
	return out
}

func guessLanguage(code, technology string) string {
	switch fields := strings.Fields(code); {
	case len(fields) > 0 && isShellCommand(fields[0]):
		return "shell"
	case strings.Contains(code, "func ") || strings.HasPrefix(code, "package "):
		return "go"
	case strings.HasPrefix(code, "def ") || strings.HasPrefix(code, "from ") || strings.Contains(code, "import "):
		if strings.Contains(code, "from '") || strings.Contains(code, "from \"") {
			return "javascript"
		}
		return "python"
	case strings.Contains(code, "=>") || strings.Contains(code, "const ") || strings.Contains(code, "function"):
		return "javascript"
	case strings.HasPrefix(code, "<"):
		return "html"
	}
	return strings.ToLower(strings.TrimSpace(technology))
}

func isShellCommand(word string) bool {
	switch word {
	case "npm", "npx", "yarn", "pnpm", "pip", "pip3", "go", "cargo", "gem", "composer", "brew", "docker", "kubectl", "curl", "$":
		return true
	}
	return false
}
