// Package markup is the validation and minification boundary for generated
// pages. The orchestrator treats it as an opaque transform: validate the
// page, then minify it for the final write.
package markup

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Issue describes one structural problem found in a document.
type Issue struct {
	Line    int
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("line %d: %s", i.Line, i.Message)
}

// voidElements never take end tags.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

type openTag struct {
	name string
	line int
}

// Validate tokenizes the document and checks that every non-void element is
// properly closed and correctly nested. Generated markup is expected to be
// fully balanced; optional end-tag omission is reported as an issue.
func Validate(doc string) []Issue {
	var issues []Issue
	var stack []openTag
	line := 1

	tz := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := tz.Next()
		if tt == html.ErrorToken {
			break
		}

		switch tt {
		case html.StartTagToken:
			name, _ := tz.TagName()
			tag := string(name)
			if !voidElements[tag] {
				stack = append(stack, openTag{name: tag, line: line})
			}
		case html.EndTagToken:
			name, _ := tz.TagName()
			tag := string(name)
			if voidElements[tag] {
				issues = append(issues, Issue{Line: line, Message: fmt.Sprintf("void element <%s> must not have an end tag", tag)})
				break
			}
			if len(stack) == 0 {
				issues = append(issues, Issue{Line: line, Message: fmt.Sprintf("unexpected </%s> with no open element", tag)})
				break
			}
			top := stack[len(stack)-1]
			if top.name != tag {
				issues = append(issues, Issue{Line: line, Message: fmt.Sprintf("</%s> closes <%s> opened on line %d", tag, top.name, top.line)})
				// Recover by unwinding to the matching open tag if one exists.
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i].name == tag {
						stack = stack[:i]
						break
					}
				}
				break
			}
			stack = stack[:len(stack)-1]
		}

		line += bytes.Count(tz.Raw(), []byte{'\n'})
	}

	for _, open := range stack {
		issues = append(issues, Issue{Line: open.line, Message: fmt.Sprintf("<%s> is never closed", open.name)})
	}
	return issues
}
