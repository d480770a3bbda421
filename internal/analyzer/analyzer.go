package analyzer

import (
	"net/url"
	"regexp"
	"strings"
)

// Kind classifies the shape of an import declaration
type Kind string

const (
	KindNamespace  Kind = "namespace"
	KindNamed      Kind = "named"
	KindDefault    Kind = "default"
	KindSideEffect Kind = "side-effect"
)

// Ref is one static import found in source text
type Ref struct {
	Source   string   // literal module specifier
	Kind     Kind     // import shape
	Bindings []string // identifiers introduced, empty for side-effect imports
	IsURL    bool     // specifier is an absolute http(s) URL
	Version  string   // version from an @version path segment, URL specifiers only
}

var (
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)

	// Shapes in scan priority order. Patterns are mutually exclusive on the
	// text they match except default+named combos, which intentionally yield
	// two references for the same specifier.
	reNamespace  = regexp.MustCompile(`import\s*\*\s*as\s+([A-Za-z_$][0-9A-Za-z_$]*)\s+from\s*['"]([^'"]+)['"]`)
	reNamed      = regexp.MustCompile(`import\s*\{([^}]*)\}\s*from\s*['"]([^'"]+)['"]`)
	reDefault    = regexp.MustCompile(`import\s+([A-Za-z_$][0-9A-Za-z_$]*)\s*(?:,\s*\{([^}]*)\})?\s*from\s*['"]([^'"]+)['"]`)
	reSideEffect = regexp.MustCompile(`import\s*['"]([^'"]+)['"]`)
)

// Analyze scans source text for static import declarations.
// It tolerates arbitrarily invalid syntax and returns an empty slice when no
// imports are present.
func Analyze(source string) []Ref {
	if source == "" {
		return nil
	}

	text := stripComments(source)

	var refs []Ref
	seen := make(map[string]bool)

	add := func(r Ref) {
		if r.Source == "" {
			return
		}
		key := string(r.Kind) + "\x00" + r.Source
		if seen[key] {
			return
		}
		seen[key] = true

		if isAbsoluteURL(r.Source) {
			r.IsURL = true
			r.Version = urlVersion(r.Source)
		}
		refs = append(refs, r)
	}

	for _, m := range reNamespace.FindAllStringSubmatch(text, -1) {
		add(Ref{Source: m[2], Kind: KindNamespace, Bindings: []string{m[1]}})
	}
	for _, m := range reNamed.FindAllStringSubmatch(text, -1) {
		add(Ref{Source: m[2], Kind: KindNamed, Bindings: namedBindings(m[1])})
	}
	for _, m := range reDefault.FindAllStringSubmatch(text, -1) {
		add(Ref{Source: m[3], Kind: KindDefault, Bindings: []string{m[1]}})
		// "import X, {a} from 'm'" introduces named bindings too
		if m[2] != "" {
			add(Ref{Source: m[3], Kind: KindNamed, Bindings: namedBindings(m[2])})
		}
	}
	for _, m := range reSideEffect.FindAllStringSubmatch(text, -1) {
		add(Ref{Source: m[1], Kind: KindSideEffect})
	}

	return refs
}

// stripComments removes block comments and line comments. A "//" is kept when
// the preceding character is ":" so URL literals such as https://cdn.example
// survive intact.
func stripComments(source string) string {
	text := reBlockComment.ReplaceAllString(source, "")

	var b strings.Builder
	b.Grow(len(text))

	for _, line := range strings.SplitAfter(text, "\n") {
		cut := -1
		for i := 0; i+1 < len(line); i++ {
			if line[i] == '/' && line[i+1] == '/' {
				if i > 0 && line[i-1] == ':' {
					i++ // inside a URL literal, skip past it
					continue
				}
				cut = i
				break
			}
		}
		if cut >= 0 {
			b.WriteString(line[:cut])
			if strings.HasSuffix(line, "\n") {
				b.WriteByte('\n')
			}
		} else {
			b.WriteString(line)
		}
	}

	return b.String()
}

// namedBindings splits the inside of an import clause into the local names it
// introduces: "a, b as c" yields [a c].
func namedBindings(clause string) []string {
	var names []string
	for _, part := range strings.Split(clause, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if fields := strings.Fields(part); len(fields) == 3 && fields[1] == "as" {
			names = append(names, fields[2])
		} else {
			names = append(names, fields[0])
		}
	}
	return names
}

func isAbsoluteURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}

// urlVersion extracts the version from an @version path segment, e.g.
// /npm/foo@2.1.0/index.js yields "2.1.0". A leading "@" on a path segment
// marks a package scope, not a version, and is ignored.
func urlVersion(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	path := u.Path
	at := -1
	for i := 1; i < len(path); i++ {
		if path[i] == '@' && path[i-1] != '/' {
			at = i
		}
	}
	if at < 0 {
		return ""
	}

	rest := path[at+1:]
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}
