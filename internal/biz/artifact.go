package biz

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"StackScout/internal/model"
	"StackScout/pkg/search"
)

// ArtifactGenerator turns a research result into a document.
type ArtifactGenerator interface {
	Generate(ctx context.Context, result *model.ResearchResult, genCtx map[string]string) (*model.Artifact, error)
}

const markdownFormat = "markdown"

const briefTemplate = `# {{ .Result.Technology }}
{{ with .Result.Category }}
Category: {{ . }}
{{ end }}
{{- with .Context.project }}
Prepared for: {{ . }}
{{ end }}
Research quality: {{ printf "%.2f" .Result.Quality }} (confidence {{ printf "%.2f" .Result.Confidence }})
{{- if .Warning }}

> Research quality is below the acceptance threshold. Review before relying on this brief.
{{- end }}
{{ if .Result.DocumentationURLs }}
## Documentation
{{ range .Result.DocumentationURLs }}
- {{ . }}
{{- end }}
{{ end }}
{{- if .Result.BestPractices }}
## Best practices
{{ range .Result.BestPractices }}
- {{ . }}
{{- end }}
{{ end }}
{{- if .Result.CodeExamples }}
## Code examples
{{ range .Result.CodeExamples }}
` + "```" + `{{ .Language }}
{{ .Code }}
` + "```" + `
Source: {{ .SourceURL }}
{{ end }}
{{- end }}
## Sources
{{ range .Sources }}
- [{{ .Title }}]({{ .URL }}) ({{ kind .URL }})
{{- end }}
`

// MarkdownGenerator renders a markdown brief from research results.
type MarkdownGenerator struct {
	tmpl       *template.Template
	maxSources int
	now        func() time.Time
	logger     *log.Helper
}

// NewMarkdownGenerator parses the brief template.
func NewMarkdownGenerator(logger log.Logger) (*MarkdownGenerator, error) {
	tmpl, err := template.New("brief").Funcs(template.FuncMap{"kind": search.Kind}).Parse(briefTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse artifact template: %w", err)
	}
	return &MarkdownGenerator{
		tmpl:       tmpl,
		maxSources: 10,
		now:        time.Now,
		logger:     log.NewHelper(logger),
	}, nil
}

// Generate renders the brief. The artifact quality combines the research
// quality with how complete the brief is.
func (g *MarkdownGenerator) Generate(ctx context.Context, result *model.ResearchResult, genCtx map[string]string) (*model.Artifact, error) {
	if result == nil {
		return nil, fmt.Errorf("no research result to generate from")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	quality := 0.7 * result.Quality
	for _, present := range []bool{len(result.DocumentationURLs) > 0, len(result.BestPractices) > 0, len(result.CodeExamples) > 0} {
		if present {
			quality += 0.1
		}
	}
	quality = search.Clamp(quality)

	sources := result.Results
	if len(sources) > g.maxSources {
		sources = sources[:g.maxSources]
	}
	if genCtx == nil {
		genCtx = map[string]string{}
	}

	var buf bytes.Buffer
	err := g.tmpl.Execute(&buf, map[string]any{
		"Result":  result,
		"Context": genCtx,
		"Sources": sources,
		"Warning": genCtx["quality_warning"] == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render artifact for %s: %w", result.Technology, err)
	}

	g.logger.Debugw("msg", "artifact generated", "technology", result.Technology, "quality", quality, "bytes", buf.Len())
	return &model.Artifact{
		Technology:  result.Technology,
		Format:      markdownFormat,
		Content:     strings.TrimSpace(buf.String()) + "\n",
		Quality:     quality,
		Metadata:    map[string]string{"category": result.Category},
		GeneratedAt: g.now(),
	}, nil
}
