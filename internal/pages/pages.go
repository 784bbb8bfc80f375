// Package pages is the page-generation collaborator boundary. The build
// orchestrator hands the style filename, script output list, and image
// manifest to a Generator and receives the entry page markup back. The real
// site generator plugs in here; StaticGenerator is the built-in
// implementation that keeps the binary useful standalone.
package pages

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"

	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/sitebuilder/internal/manifest"
)

// Data carries the build outputs page generation consumes. Paths are
// relative to the output root.
type Data struct {
	StyleFileName string
	ScriptFiles   []string
	Images        manifest.ImageManifest
}

// Generator produces the site's entry markup from build outputs.
type Generator interface {
	GeneratePage(ctx context.Context, data Data) (string, error)
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
{{if .Style}}<link rel="stylesheet" href="/{{.Style}}">
{{end}}</head>
<body>
<main>
{{.Body}}</main>
{{range .Scripts}}<script type="module" src="/{{.}}"></script>
{{end}}</body>
</html>
`

// StaticGenerator renders a single page: an optional markdown content file
// inside a shell that links the hashed stylesheet and module scripts.
type StaticGenerator struct {
	Title       string
	ContentPath string // optional markdown file rendered into the page body
}

var pageTpl = template.Must(template.New("page").Parse(pageTemplate))

func (g *StaticGenerator) GeneratePage(ctx context.Context, data Data) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body := template.HTML("")
	if g.ContentPath != "" {
		src, err := os.ReadFile(g.ContentPath)
		if err != nil {
			return "", fmt.Errorf("failed to read page content: %w", err)
		}
		var rendered bytes.Buffer
		if err := goldmark.Convert(src, &rendered); err != nil {
			return "", fmt.Errorf("failed to render page content: %w", err)
		}
		body = template.HTML(rendered.String()) // #nosec G203 - goldmark output from our own content file
	}

	var out bytes.Buffer
	err := pageTpl.Execute(&out, struct {
		Title   string
		Style   string
		Scripts []string
		Body    template.HTML
	}{
		Title:   g.Title,
		Style:   data.StyleFileName,
		Scripts: data.ScriptFiles,
		Body:    body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render page: %w", err)
	}
	return out.String(), nil
}
