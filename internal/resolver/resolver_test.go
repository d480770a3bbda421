package resolver

import (
	"context"
	"strings"
	"testing"

	"github.com/jweese001/threejs-ide/internal/analyzer"
)

func newTestResolver() *Resolver {
	return New(Options{PrimaryCDN: CDNJsdelivr}, nil)
}

func TestResolveBareName(t *testing.T) {
	refs := analyzer.Analyze(`import * as X from 'lodash'`)
	resolved := newTestResolver().Resolve(context.Background(), refs)

	if len(resolved) != 1 {
		t.Fatalf("expected 1 resolution, got %d", len(resolved))
	}
	r := resolved[0]
	if r.Name != "lodash" {
		t.Errorf("normalized name = %q, want lodash", r.Name)
	}
	if r.Status != StatusResolved {
		t.Errorf("status = %s, want resolved", r.Status)
	}
	if r.URL != "https://cdn.jsdelivr.net/npm/lodash/+esm" {
		t.Errorf("unexpected URL %q", r.URL)
	}
	if r.Version != "latest" {
		t.Errorf("version = %q, want latest", r.Version)
	}
}

func TestResolveBundledRuntime(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"bare name", "three"},
		{"addons sub-path", "three/addons/controls/OrbitControls.js"},
		{"examples sub-path", "three/examples/jsm/loaders/GLTFLoader.js"},
	}

	r := newTestResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved := r.resolveUncached(context.Background(), analyzer.Ref{Source: tt.spec})
			if resolved.Status != StatusBaseline {
				t.Errorf("status = %s, want baseline", resolved.Status)
			}
			if resolved.Version != RuntimeVersion {
				t.Errorf("version = %q, want pinned %q", resolved.Version, RuntimeVersion)
			}
			if resolved.URL != "" {
				t.Errorf("baseline sentinel carries URL %q", resolved.URL)
			}
		})
	}
}

func TestResolveURLPassthrough(t *testing.T) {
	refs := analyzer.Analyze(`import { Foo } from 'https://cdn.jsdelivr.net/npm/foo@2.1.0/index.js'`)
	resolved := newTestResolver().Resolve(context.Background(), refs)

	if len(resolved) != 1 {
		t.Fatalf("expected 1 resolution, got %d", len(resolved))
	}
	r := resolved[0]
	if r.Name != "foo" {
		t.Errorf("normalized name = %q, want foo", r.Name)
	}
	if r.CDN != CDNJsdelivr {
		t.Errorf("cdn = %s, want jsdelivr", r.CDN)
	}
	if r.URL != "https://cdn.jsdelivr.net/npm/foo@2.1.0/index.js" {
		t.Errorf("URL was not passed through: %q", r.URL)
	}
	if r.Version != "2.1.0" {
		t.Errorf("version = %q, want 2.1.0", r.Version)
	}
}

func TestResolveVersionedBareName(t *testing.T) {
	refs := analyzer.Analyze(`import gsap from 'gsap@3.1.0'`)
	resolved := newTestResolver().Resolve(context.Background(), refs)

	r := resolved[0]
	if r.Name != "gsap" || r.Version != "3.1.0" {
		t.Errorf("got %q@%q, want gsap@3.1.0", r.Name, r.Version)
	}
	if !strings.Contains(r.URL, "gsap@3.1.0") {
		t.Errorf("URL %q does not honor version", r.URL)
	}
}

func TestResolveMalformedContinuesBatch(t *testing.T) {
	refs := []analyzer.Ref{
		{Source: "bad name with spaces", Kind: analyzer.KindSideEffect},
		{Source: "lodash", Kind: analyzer.KindNamespace, Bindings: []string{"_"}},
	}

	resolved := newTestResolver().Resolve(context.Background(), refs)
	if len(resolved) != 2 {
		t.Fatalf("expected 2 resolutions, got %d", len(resolved))
	}
	if resolved[0].Status != StatusFailed {
		t.Errorf("malformed specifier status = %s, want failed", resolved[0].Status)
	}
	if resolved[1].Status != StatusResolved {
		t.Errorf("batch aborted after failure: %s", resolved[1].Status)
	}
}

func TestDetectCDN(t *testing.T) {
	tests := []struct {
		url  string
		want CDN
	}{
		{"https://cdn.jsdelivr.net/npm/foo@1.0.0/index.js", CDNJsdelivr},
		{"https://unpkg.com/foo@1.0.0/index.js", CDNUnpkg},
		{"https://esm.sh/foo@1.0.0", CDNEsmSh},
		{"https://cdn.skypack.dev/foo", CDNSkypack},
		{"https://evil.example.com/foo.js", CDNUnknown},
	}

	for _, tt := range tests {
		if got := DetectCDN(tt.url); got != tt.want {
			t.Errorf("DetectCDN(%q) = %s, want %s", tt.url, got, tt.want)
		}
	}
}

func TestPackageFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/npm/foo@2.1.0/index.js", "foo"},
		{"/npm/@org/pkg@1.0.0/dist/index.js", "@org/pkg"},
		{"/foo@1.0.0", "foo"},
		{"/npm/three@0.170.0/build/three.module.js", "three"},
		{"/", ""},
		{"/npm/@org", ""},
	}

	for _, tt := range tests {
		if got := packageFromPath(tt.path); got != tt.want {
			t.Errorf("packageFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSplitBareVersion(t *testing.T) {
	tests := []struct {
		spec        string
		name, vers  string
	}{
		{"gsap@3.1.0", "gsap", "3.1.0"},
		{"gsap", "gsap", ""},
		{"@org/pkg", "@org/pkg", ""},
		{"@org/pkg@2.0.0", "@org/pkg", "2.0.0"},
	}

	for _, tt := range tests {
		name, vers := splitBareVersion(tt.spec)
		if name != tt.name || vers != tt.vers {
			t.Errorf("splitBareVersion(%q) = %q, %q; want %q, %q",
				tt.spec, name, vers, tt.name, tt.vers)
		}
	}
}

func TestResolveCacheHit(t *testing.T) {
	r := New(Options{PrimaryCDN: CDNJsdelivr, CacheSize: 8}, nil)
	refs := analyzer.Analyze(`import * as X from 'lodash'`)

	first := r.Resolve(context.Background(), refs)
	second := r.Resolve(context.Background(), refs)
	if first[0] != second[0] {
		t.Errorf("cached resolution differs: %+v vs %+v", first[0], second[0])
	}
}
