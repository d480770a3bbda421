package importmap

import (
	"strings"
	"testing"

	"github.com/jweese001/threejs-ide/internal/resolver"
)

func TestBuildBaselineSuperset(t *testing.T) {
	resolved := []resolver.Resolved{
		{Name: "lodash", URL: "https://cdn.jsdelivr.net/npm/lodash/+esm", Status: resolver.StatusResolved},
	}

	m := Build(resolved, true, nil)
	for _, k := range Baseline().Keys() {
		if !m.Has(k) {
			t.Errorf("baseline key %q missing from built map", k)
		}
	}
	if !m.Has("lodash") {
		t.Error("derived entry missing")
	}
}

func TestBuildDropsSentinels(t *testing.T) {
	resolved := []resolver.Resolved{
		{Name: "three", Status: resolver.StatusBaseline},
		{Name: "broken", Status: resolver.StatusFailed, Reason: "malformed specifier"},
	}

	m := Build(resolved, false, nil)
	if m.Len() != 0 {
		t.Errorf("sentinel entries leaked into map: %v", m.Keys())
	}
}

func TestBuildBaselineNeverEvicted(t *testing.T) {
	resolved := []resolver.Resolved{
		{Name: "three", URL: "https://evil.example/three.js", Status: resolver.StatusResolved},
		{Name: "lil-gui", URL: "https://cdn.example/lil-gui.js", Status: resolver.StatusResolved},
	}

	m := Build(resolved, true, nil)
	baseline := Baseline()

	for _, k := range []string{"three", "lil-gui"} {
		got, _ := m.Get(k)
		want, _ := baseline.Get(k)
		if got != want {
			t.Errorf("baseline entry %q evicted: got %q", k, got)
		}
	}
}

func TestBuildPrefixCollision(t *testing.T) {
	resolved := []resolver.Resolved{
		{
			Name:   "three/addons/controls/OrbitControls.js",
			URL:    "https://cdn.jsdelivr.net/npm/three@0.150.0/examples/jsm/controls/OrbitControls.js",
			Status: resolver.StatusResolved,
		},
	}

	m := Build(resolved, true, nil)
	if m.Has("three/addons/controls/OrbitControls.js") {
		t.Error("derived key under baseline prefix was inserted")
	}
}

func TestBuildFirstSeenWins(t *testing.T) {
	resolved := []resolver.Resolved{
		{Name: "gsap", URL: "https://cdn.jsdelivr.net/npm/gsap@3.0.0/+esm", Status: resolver.StatusResolved},
		{Name: "gsap", URL: "https://cdn.jsdelivr.net/npm/gsap@3.1.0/+esm", Status: resolver.StatusResolved},
	}

	m := Build(resolved, false, nil)
	got, _ := m.Get("gsap")
	if !strings.Contains(got, "3.0.0") {
		t.Errorf("first-seen resolution not authoritative: %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
	}{
		{"valid https", "foo", "https://cdn.jsdelivr.net/npm/foo/+esm", false},
		{"valid http", "foo", "http://localhost:8000/foo.js", false},
		{"empty value", "foo", "", true},
		{"empty key", "", "https://cdn.example/x.js", true},
		{"relative url", "foo", "./foo.js", true},
		{"javascript scheme", "foo", "javascript:alert(1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.Set(tt.key, tt.value)
			errs := Validate(m)
			if tt.wantErr && len(errs) == 0 {
				t.Error("expected validation error, got none")
			}
			if !tt.wantErr && len(errs) != 0 {
				t.Errorf("unexpected errors: %v", errs)
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	m := New()
	m.Set("three", "https://cdn.jsdelivr.net/npm/three@0.180.0/build/three.module.js")
	m.Set("zebra", "https://cdn.jsdelivr.net/npm/zebra/+esm")
	m.Set("alpha", "https://cdn.jsdelivr.net/npm/alpha/+esm")

	data, err := m.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Len() != m.Len() {
		t.Fatalf("round trip lost entries: %d != %d", parsed.Len(), m.Len())
	}
	for _, k := range m.Keys() {
		want, _ := m.Get(k)
		got, ok := parsed.Get(k)
		if !ok || got != want {
			t.Errorf("key %q: got %q, want %q", k, got, want)
		}
	}
}

func TestMarshalDeterministicOrder(t *testing.T) {
	m := New()
	m.Set("zebra", "https://z.example/z.js")
	m.Set("alpha", "https://a.example/a.js")

	first, _ := m.MarshalJSON()
	second, _ := m.MarshalJSON()
	if string(first) != string(second) {
		t.Error("serialization is not deterministic")
	}
	if !strings.HasPrefix(string(first), `{"imports":{"zebra"`) {
		t.Errorf("insertion order not preserved: %s", first)
	}
}

func TestDiffBaseline(t *testing.T) {
	resolved := []resolver.Resolved{
		{Name: "lodash", URL: "https://cdn.jsdelivr.net/npm/lodash/+esm", Status: resolver.StatusResolved},
	}
	m := Build(resolved, true, nil)

	diff := DiffBaseline(m)
	if len(diff) != 1 {
		t.Fatalf("diff = %v, want only user entries", diff)
	}
	if _, ok := diff["lodash"]; !ok {
		t.Error("user-introduced key missing from diff")
	}
}

func TestSetOverwriteKeepsPosition(t *testing.T) {
	m := New()
	m.Set("a", "https://a.example/1.js")
	m.Set("b", "https://b.example/1.js")
	m.Set("a", "https://a.example/2.js")

	keys := m.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("overwrite disturbed order: %v", keys)
	}
	if v, _ := m.Get("a"); v != "https://a.example/2.js" {
		t.Errorf("overwrite did not take: %q", v)
	}
}
