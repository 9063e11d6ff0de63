package gdc

import (
	"net/url"
	"regexp"
	"strings"
)

var templateVar = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9_]*)\}`)

// Template is a URI template with {name} placeholders, for example
// "/gdc/projects/{projectId}/dataload/processes/{processId}".
type Template string

// Expand substitutes the placeholders in order of appearance. Values are
// path escaped. Missing values leave the placeholder empty.
func (t Template) Expand(values ...string) string {
	i := 0
	return templateVar.ReplaceAllStringFunc(string(t), func(string) string {
		if i >= len(values) {
			return ""
		}
		v := url.PathEscape(values[i])
		i++
		return v
	})
}

// Vars returns the placeholder names in order of appearance.
func (t Template) Vars() []string {
	matches := templateVar.FindAllStringSubmatch(string(t), -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Match extracts the placeholder values from uri. Query strings and a
// scheme/host prefix are ignored.
func (t Template) Match(uri string) (map[string]string, bool) {
	if u, err := url.Parse(uri); err == nil {
		uri = u.EscapedPath()
	}

	// QuoteMeta escapes the braces too; restore them before substituting.
	quoted := strings.NewReplacer(`\{`, "{", `\}`, "}").Replace(regexp.QuoteMeta(string(t)))
	pattern := "^" + templateVar.ReplaceAllString(quoted, "([^/]+)") + "/?$"

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, false
	}
	m := re.FindStringSubmatch(uri)
	if m == nil {
		return nil, false
	}

	vars := t.Vars()
	out := make(map[string]string, len(vars))
	for i, name := range vars {
		v, err := url.PathUnescape(m[i+1])
		if err != nil {
			v = m[i+1]
		}
		out[name] = v
	}
	return out, true
}

// IDFromURI returns the last path segment of uri, which is the resource id
// for every platform self link.
func IDFromURI(uri string) string {
	if u, err := url.Parse(uri); err == nil {
		uri = u.Path
	}
	uri = strings.TrimRight(uri, "/")
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}
