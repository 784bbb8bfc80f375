package styles

import "strings"

// prefixedProperties maps declaration properties to the vendor prefixes
// browsers still need for them.
var prefixedProperties = map[string][]string{
	"appearance":           {"-webkit-", "-moz-"},
	"backdrop-filter":      {"-webkit-"},
	"background-clip":      {"-webkit-"},
	"box-decoration-break": {"-webkit-"},
	"clip-path":            {"-webkit-"},
	"hyphens":              {"-webkit-", "-ms-"},
	"mask-image":           {"-webkit-"},
	"tab-size":             {"-moz-"},
	"text-size-adjust":     {"-webkit-", "-ms-"},
	"user-select":          {"-webkit-", "-moz-", "-ms-"},
}

// AddPrefixes inserts vendor-prefixed copies ahead of declarations that need
// them. It is a declaration-level pass, not a full CSS parse; declarations
// are the segments terminated by ';' or a closing brace.
func AddPrefixes(input string) string {
	var b strings.Builder
	b.Grow(len(input) + 64)
	start := 0
	for i := 0; i < len(input); i++ {
		c := input[i]
		if c != '{' && c != '}' && c != ';' {
			continue
		}
		segment := input[start : i+1]
		if c == '{' {
			b.WriteString(segment)
		} else {
			b.WriteString(prefixDeclaration(segment))
		}
		start = i + 1
	}
	b.WriteString(input[start:])
	return b.String()
}

// prefixDeclaration emits prefixed copies ahead of a declaration whose
// property is in the table; anything else passes through untouched.
func prefixDeclaration(segment string) string {
	body := segment
	if n := len(segment); n > 0 && (segment[n-1] == ';' || segment[n-1] == '}') {
		body = segment[:n-1]
	}
	prop, value, found := strings.Cut(body, ":")
	if !found {
		return segment
	}
	name := strings.ToLower(strings.TrimSpace(prop))
	prefixes, ok := prefixedProperties[name]
	if !ok {
		return segment
	}

	lead := prop[:len(prop)-len(strings.TrimLeft(prop, " \t\r\n"))]
	val := strings.TrimSpace(value)
	var b strings.Builder
	for _, prefix := range prefixes {
		b.WriteString(lead)
		b.WriteString(prefix)
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(val)
		b.WriteString(";")
	}
	b.WriteString(segment)
	return b.String()
}
