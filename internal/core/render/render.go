// Package render substitutes named placeholders in operator message templates.
package render

import "regexp"

// SafeMessageVar is the placeholder holding the sanitized message body.
const SafeMessageVar = "zulip_safe_message"

// placeholder matches {name} and the helpdesk's %{name} form.
var placeholder = regexp.MustCompile(`%?\{([A-Za-z0-9_.]+)\}`)

// Vars maps placeholder names to values.
type Vars map[string]string

// Render replaces every placeholder in template with its value from extra,
// falling back to vars. Unknown placeholders become empty. The output is not
// scanned again, so values containing placeholder syntax are left as is.
func Render(template string, vars Vars, extra Vars) string {
	return placeholder.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholder.FindStringSubmatch(match)[1]
		if v, ok := extra[name]; ok {
			return v
		}
		return vars[name]
	})
}

// Placeholders lists the placeholder names used by template, in order of
// first appearance.
func Placeholders(template string) []string {
	seen := map[string]bool{}
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
