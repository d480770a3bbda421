package importmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/jweese001/threejs-ide/internal/resolver"
)

// Map is an ordered specifier-to-URL table. Lookup is order-independent;
// insertion order is preserved for deterministic serialization.
type Map struct {
	keys    []string
	entries map[string]string
}

// New creates an empty map.
func New() *Map {
	return &Map{entries: make(map[string]string)}
}

// Set inserts or overwrites an entry. An overwrite keeps the key's original
// position.
func (m *Map) Set(key, url string) {
	if _, ok := m.entries[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = url
}

// Get returns the URL for a specifier.
func (m *Map) Get(key string) (string, bool) {
	url, ok := m.entries[key]
	return url, ok
}

// Has reports whether the specifier is mapped.
func (m *Map) Has(key string) bool {
	_, ok := m.entries[key]
	return ok
}

// Len returns the entry count.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the specifiers in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// MarshalJSON serializes as {"imports":{...}} with insertion order intact.
// Encoders that range over a native map randomize key order, so the object
// is written by hand; values go through the stdlib encoder for escaping.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"imports":{`)
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.entries[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// Parse decodes a serialized import map. Key order inside the imports
// object is not recoverable from a decoded native map, so parsed maps sort
// keys lexically; key/value set equality with the source is preserved.
func Parse(data []byte) (*Map, error) {
	var wire struct {
		Imports map[string]string `json:"imports"`
	}
	if err := sonic.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parse import map: %w", err)
	}

	m := New()
	keys := make([]string, 0, len(wire.Imports))
	for k := range wire.Imports {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m.Set(k, wire.Imports[k])
	}
	return m, nil
}

// Baseline returns the fixed always-present map: the pinned runtime build,
// its addons namespace prefix, and two small utility libraries sketches
// lean on.
func Baseline() *Map {
	m := New()
	m.Set("three", fmt.Sprintf(
		"https://cdn.jsdelivr.net/npm/three@%s/build/three.module.js", resolver.RuntimeVersion))
	m.Set("three/addons/", fmt.Sprintf(
		"https://cdn.jsdelivr.net/npm/three@%s/examples/jsm/", resolver.RuntimeVersion))
	m.Set("lil-gui", "https://cdn.jsdelivr.net/npm/lil-gui@0.20.0/+esm")
	m.Set("stats.js", "https://cdn.jsdelivr.net/npm/stats.js@0.17.0/+esm")
	return m
}

// shadowedByBaseline reports whether a candidate key is already covered by
// the baseline: an exact key match, or a prefix match against a baseline
// key ending in "/". The prefix case protects the addons namespace mapping
// from being overridden by a differently-versioned fetch.
func shadowedByBaseline(baseline *Map, key string) bool {
	if baseline.Has(key) {
		return true
	}
	for _, bk := range baseline.keys {
		if strings.HasSuffix(bk, "/") && strings.HasPrefix(key, bk) {
			return true
		}
	}
	return false
}
