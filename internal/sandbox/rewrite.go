package sandbox

import (
	"fmt"
	"regexp"
	"strings"
)

// requireFn is the registry lookup installed in every VM.
const requireFn = "__require__"

var (
	reImportNamespace = regexp.MustCompile(`import\s*\*\s*as\s+([A-Za-z_$][0-9A-Za-z_$]*)\s+from\s*['"]([^'"]+)['"]\s*;?`)
	reImportCombo     = regexp.MustCompile(`import\s+([A-Za-z_$][0-9A-Za-z_$]*)\s*,\s*\{([^}]*)\}\s*from\s*['"]([^'"]+)['"]\s*;?`)
	reImportNamed     = regexp.MustCompile(`import\s*\{([^}]*)\}\s*from\s*['"]([^'"]+)['"]\s*;?`)
	reImportDefault   = regexp.MustCompile(`import\s+([A-Za-z_$][0-9A-Za-z_$]*)\s+from\s*['"]([^'"]+)['"]\s*;?`)
	reImportBare      = regexp.MustCompile(`import\s*['"]([^'"]+)['"]\s*;?`)
)

// lowerImports rewrites static import declarations into registry lookups,
// so module loading goes through the registered-module table instead of an
// evaluation primitive. Order matters: the combo shape must rewrite before
// named and default would each eat half of it.
func lowerImports(source string) string {
	out := reImportNamespace.ReplaceAllString(source,
		fmt.Sprintf("const $1 = %s('$2');", requireFn))

	temp := 0
	out = reImportCombo.ReplaceAllStringFunc(out, func(m string) string {
		g := reImportCombo.FindStringSubmatch(m)
		temp++
		mod := fmt.Sprintf("__mod%d__", temp)
		return fmt.Sprintf("const %s = %s(%q); const %s = %s.default !== undefined ? %s.default : %s; const {%s} = %s;",
			mod, requireFn, g[3], g[1], mod, mod, mod, destructure(g[2]), mod)
	})

	out = reImportNamed.ReplaceAllStringFunc(out, func(m string) string {
		g := reImportNamed.FindStringSubmatch(m)
		return fmt.Sprintf("const {%s} = %s(%q);", destructure(g[1]), requireFn, g[2])
	})

	out = reImportDefault.ReplaceAllStringFunc(out, func(m string) string {
		g := reImportDefault.FindStringSubmatch(m)
		temp++
		mod := fmt.Sprintf("__mod%d__", temp)
		return fmt.Sprintf("const %s = %s(%q); const %s = %s.default !== undefined ? %s.default : %s;",
			mod, requireFn, g[2], g[1], mod, mod, mod)
	})

	out = reImportBare.ReplaceAllString(out,
		fmt.Sprintf("%s('$1');", requireFn))

	return out
}

// destructure converts an import clause to a destructuring pattern:
// "a, b as c" becomes "a, b: c".
func destructure(clause string) string {
	parts := strings.Split(clause, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if fields := strings.Fields(p); len(fields) == 3 && fields[1] == "as" {
			out = append(out, fields[0]+": "+fields[2])
		} else {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
