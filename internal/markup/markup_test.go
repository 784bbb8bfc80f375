package markup

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const validDoc = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Test</title>
  <link rel="stylesheet" href="/styles/styles.abc.css">
</head>
<body>
  <main>
    <h1>Hello</h1>
    <p>Some <em>text</em> here.</p>
    <img src="/images/cat-640.webp" alt="cat">
  </main>
  <script type="module" src="/scripts/app-xyz.js"></script>
</body>
</html>
`

func TestValidateAcceptsBalancedDocument(t *testing.T) {
	require.Empty(t, Validate(validDoc))
}

func TestValidateReportsUnclosedElement(t *testing.T) {
	doc := "<html>\n<body>\n<div>\n<p>text</p>\n</body>\n</html>\n"
	issues := Validate(doc)
	require.NotEmpty(t, issues, "unclosed <div> must be flagged")

	// The mismatch surfaces where </body> meets the still-open <div>; the
	// message points back at the opening line.
	found := false
	for _, issue := range issues {
		if strings.Contains(issue.Message, "<div>") {
			found = true
			require.Contains(t, issue.Message, "line 3")
		}
	}
	require.True(t, found, "no issue names the unclosed <div>: %v", issues)
}

func TestValidateReportsMismatchedNesting(t *testing.T) {
	require.NotEmpty(t, Validate("<div><span>text</div></span>"))
}

func TestValidateReportsStrayEndTag(t *testing.T) {
	issues := Validate("<div></div></p>")
	require.Len(t, issues, 1)
	require.Contains(t, issues[0].Message, "</p>")
}

func TestValidateAllowsVoidElements(t *testing.T) {
	require.Empty(t, Validate(`<p>a<br>b<img src="x.png" alt="">c</p>`))
}

func TestIssueString(t *testing.T) {
	issue := Issue{Line: 7, Message: "<div> is never closed"}
	require.Equal(t, "line 7: <div> is never closed", issue.String())
}

func TestMinifyHTML(t *testing.T) {
	out, err := MinifyHTML(validDoc)
	require.NoError(t, err)
	require.Less(t, len(out), len(validDoc))
	require.Contains(t, out, "<h1>Hello</h1>")

	// Minified output must still validate.
	require.Empty(t, Validate(out))
}
