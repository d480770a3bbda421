package importmap

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jweese001/threejs-ide/internal/logging"
	"github.com/jweese001/threejs-ide/internal/resolver"
)

// Build assembles a map from resolution results. Baseline-sentinel entries
// drop silently (the baseline already supplies them); failed-sentinel
// entries drop with a warning; surviving entries that collide with a
// baseline key, exactly or under a "/"-terminated baseline prefix, are
// skipped so baseline entries are never evicted. Everything else inserts
// in order.
func Build(resolved []resolver.Resolved, includeBaseline bool, log *logging.Logger) *Map {
	if log == nil {
		log = logging.NewDefault()
	}
	log = log.Named("importmap")

	baseline := Baseline()
	m := New()
	if includeBaseline {
		for _, k := range baseline.keys {
			m.Set(k, baseline.entries[k])
		}
	}

	for _, r := range resolved {
		switch r.Status {
		case resolver.StatusBaseline:
			continue
		case resolver.StatusFailed:
			log.Warn("dropping unresolved import",
				zap.String("specifier", r.Name), zap.String("reason", r.Reason))
			continue
		}

		if shadowedByBaseline(baseline, r.Name) {
			log.Debug("baseline entry shadows derived import",
				zap.String("specifier", r.Name))
			continue
		}
		if m.Has(r.Name) {
			// first-seen resolution is authoritative
			continue
		}
		m.Set(r.Name, r.URL)
	}

	return m
}

// DiffBaseline returns the user-introduced entries only: the set difference
// of m's keys against the baseline keys. Telemetry, not correctness.
func DiffBaseline(m *Map) map[string]string {
	baseline := Baseline()
	diff := make(map[string]string)
	for _, k := range m.keys {
		if !baseline.Has(k) {
			diff[k] = m.entries[k]
		}
	}
	return diff
}

// Validate checks a map before it crosses the isolation boundary: non-empty
// keys, non-empty values, every value an absolute http(s) URL. Returns one
// message per problem; an empty result means the map is safe to inject.
func Validate(m *Map) []string {
	var errs []string
	for _, k := range m.keys {
		v := m.entries[k]
		if strings.TrimSpace(k) == "" {
			errs = append(errs, fmt.Sprintf("empty specifier mapped to %q", v))
			continue
		}
		if v == "" {
			errs = append(errs, fmt.Sprintf("specifier %q has an empty URL", k))
			continue
		}
		if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
			errs = append(errs, fmt.Sprintf("specifier %q maps to non-http(s) URL %q", k, v))
		}
	}
	return errs
}
