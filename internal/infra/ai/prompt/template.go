package prompt

import "regexp"

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Render replaces every {field} placeholder that has a value in fields.
// Unknown placeholders are left untouched; there is no nesting or conditionals.
func Render(tmpl string, fields map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		if v, ok := fields[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}
