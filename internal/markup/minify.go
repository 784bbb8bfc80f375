package markup

import (
	"fmt"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
)

var htmlMinifier = func() *minify.M {
	m := minify.New()
	// End and document tags survive minification so the output still passes
	// the structural validator.
	m.Add("text/html", &html.Minifier{KeepEndTags: true, KeepDocumentTags: true})
	return m
}()

// MinifyHTML returns a semantically equivalent, whitespace-reduced document.
func MinifyHTML(doc string) (string, error) {
	out, err := htmlMinifier.String("text/html", doc)
	if err != nil {
		return "", fmt.Errorf("failed to minify markup: %w", err)
	}
	return out, nil
}
