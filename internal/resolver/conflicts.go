package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/lo"
)

// CheckConflicts groups resolutions by normalized name and reports every
// name that was requested at more than one distinct version. The first-seen
// version stays authoritative; warnings are informational and never block a
// run. A request for the bundled runtime at any version other than the
// pinned one gets its own warning.
func CheckConflicts(resolved []Resolved) []string {
	var warnings []string

	byName := lo.GroupBy(resolved, func(r Resolved) string { return r.Name })

	names := lo.Keys(byName)
	sort.Strings(names)

	for _, name := range names {
		group := byName[name]

		if name == RuntimeName || strings.HasPrefix(name, RuntimeName+"/") {
			for _, r := range group {
				if r.Requested != "" && r.Requested != RuntimeVersion {
					warnings = append(warnings, fmt.Sprintf(
						"%s@%s conflicts with the bundled runtime (pinned at %s); the bundled copy is used",
						name, r.Requested, RuntimeVersion))
				}
			}
			continue
		}

		versions := lo.Uniq(lo.FilterMap(group, func(r Resolved, _ int) (string, bool) {
			return r.Version, r.Status != StatusFailed && r.Version != ""
		}))
		if len(versions) < 2 {
			continue
		}

		sortVersions(versions)
		warnings = append(warnings, fmt.Sprintf(
			"%s requested at multiple versions (%s); first-seen %s is used",
			name, strings.Join(versions, ", "), group[0].Version))
	}

	return warnings
}

// sortVersions orders semver-parseable strings semantically and carries the
// rest verbatim at the end, alphabetically.
func sortVersions(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		vi, ei := semver.NewVersion(versions[i])
		vj, ej := semver.NewVersion(versions[j])
		switch {
		case ei == nil && ej == nil:
			return vi.LessThan(vj)
		case ei == nil:
			return true
		case ej == nil:
			return false
		default:
			return versions[i] < versions[j]
		}
	})
}
