package resolver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/jweese001/threejs-ide/internal/analyzer"
	"github.com/jweese001/threejs-ide/internal/logging"
)

// RuntimeName is the package the sandbox's baseline map always provides.
const RuntimeName = "three"

// RuntimeVersion is the pinned build of the bundled runtime. Imports of
// three never resolve to anything else.
const RuntimeVersion = "0.180.0"

// Status classifies a resolution outcome.
type Status int

const (
	// StatusResolved carries a concrete fetchable URL.
	StatusResolved Status = iota
	// StatusBaseline defers to the baseline map; no URL is synthesized.
	StatusBaseline
	// StatusFailed marks a reference that could not be resolved. The batch
	// continues past it.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusBaseline:
		return "baseline"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CDN identifies a content-delivery network.
type CDN string

const (
	CDNJsdelivr CDN = "jsdelivr"
	CDNUnpkg    CDN = "unpkg"
	CDNEsmSh    CDN = "esm.sh"
	CDNSkypack  CDN = "skypack"
	CDNUnknown  CDN = "unknown"
)

// cdnHosts maps hostname substrings to the CDN they identify.
var cdnHosts = []struct {
	substr string
	cdn    CDN
}{
	{"cdn.jsdelivr.net", CDNJsdelivr},
	{"unpkg.com", CDNUnpkg},
	{"esm.sh", CDNEsmSh},
	{"cdn.skypack.dev", CDNSkypack},
}

// cdnTemplates synthesizes a URL for a bare package name. Version may be
// empty, meaning the CDN's latest.
var cdnTemplates = map[CDN]func(name, version string) string{
	CDNJsdelivr: func(name, version string) string {
		if version != "" {
			return fmt.Sprintf("https://cdn.jsdelivr.net/npm/%s@%s/+esm", name, version)
		}
		return fmt.Sprintf("https://cdn.jsdelivr.net/npm/%s/+esm", name)
	},
	CDNUnpkg: func(name, version string) string {
		if version != "" {
			return fmt.Sprintf("https://unpkg.com/%s@%s?module", name, version)
		}
		return fmt.Sprintf("https://unpkg.com/%s?module", name)
	},
	CDNEsmSh: func(name, version string) string {
		if version != "" {
			return fmt.Sprintf("https://esm.sh/%s@%s", name, version)
		}
		return fmt.Sprintf("https://esm.sh/%s", name)
	},
	CDNSkypack: func(name, version string) string {
		if version != "" {
			return fmt.Sprintf("https://cdn.skypack.dev/%s@%s", name, version)
		}
		return fmt.Sprintf("https://cdn.skypack.dev/%s", name)
	},
}

// Resolved is the network-resolution result for one import reference.
type Resolved struct {
	// Name is the canonical package identifier; URL forms collapse to it.
	Name string
	// URL is the concrete fetchable URL. Empty for baseline and failed
	// entries.
	URL string
	// Version is the concrete version, or "latest" when unpinned.
	Version string
	// Requested is the version the import asked for, empty when it did not.
	Requested string
	// Status distinguishes concrete resolutions from the two sentinels.
	Status Status
	// CDN identifies which delivery network produced the URL.
	CDN CDN
	// Reason explains a failed resolution, for warnings.
	Reason string
}

// Options configures a Resolver.
type Options struct {
	// PrimaryCDN is the template used for bare package names.
	PrimaryCDN CDN
	// Registry, when non-nil, pins unversioned bare names to a concrete
	// version via CDN metadata lookups.
	Registry *Registry
	// CacheSize bounds the per-specifier result cache. Zero disables it.
	CacheSize int
}

// Resolver turns analyzed import references into CDN URLs.
type Resolver struct {
	opts  Options
	cache *lru.Cache[string, Resolved]
	log   *logging.Logger
}

// New creates a Resolver. An unknown primary CDN falls back to jsdelivr.
func New(opts Options, log *logging.Logger) *Resolver {
	if _, ok := cdnTemplates[opts.PrimaryCDN]; !ok {
		opts.PrimaryCDN = CDNJsdelivr
	}
	if log == nil {
		log = logging.NewDefault()
	}

	r := &Resolver{opts: opts, log: log.Named("resolver")}
	if opts.CacheSize > 0 {
		// lru.New only fails on a non-positive size
		r.cache, _ = lru.New[string, Resolved](opts.CacheSize)
	}
	return r
}

// Resolve maps each reference to a resolution result, one per reference in
// order. A failure resolves to a StatusFailed entry; the batch never aborts.
func (r *Resolver) Resolve(ctx context.Context, refs []analyzer.Ref) []Resolved {
	out := make([]Resolved, 0, len(refs))
	for _, ref := range refs {
		select {
		case <-ctx.Done():
			out = append(out, failed(ref.Source, "resolution cancelled"))
			continue
		default:
		}
		out = append(out, r.resolveOne(ctx, ref))
	}
	return out
}

func (r *Resolver) resolveOne(ctx context.Context, ref analyzer.Ref) Resolved {
	key := ref.Source + "\x00" + ref.Version + "\x00" + string(r.opts.PrimaryCDN)
	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			return cached
		}
	}

	res := r.resolveUncached(ctx, ref)
	if r.cache != nil && res.Status != StatusFailed {
		r.cache.Add(key, res)
	}
	return res
}

func (r *Resolver) resolveUncached(ctx context.Context, ref analyzer.Ref) Resolved {
	if ref.Source == "" {
		return failed(ref.Source, "empty specifier")
	}

	if ref.IsURL {
		return r.resolveURL(ref)
	}

	name, requested := splitBareVersion(ref.Source)
	if !validPackageName(name) {
		return failed(ref.Source, "malformed specifier")
	}

	// The bundled runtime and its sub-paths always defer to the baseline
	// map, whatever version the import asked for.
	if name == RuntimeName || strings.HasPrefix(name, RuntimeName+"/") {
		return Resolved{
			Name:      name,
			Version:   RuntimeVersion,
			Requested: requested,
			Status:    StatusBaseline,
		}
	}

	version := requested
	if version == "" && r.opts.Registry != nil {
		if pinned, err := r.opts.Registry.ResolveVersion(ctx, name); err == nil {
			version = pinned
		} else {
			r.log.Debug("registry lookup failed, using latest",
				zap.String("package", name), zap.Error(err))
		}
	}

	res := Resolved{
		Name:      name,
		URL:       cdnTemplates[r.opts.PrimaryCDN](name, version),
		Version:   version,
		Requested: requested,
		Status:    StatusResolved,
		CDN:       r.opts.PrimaryCDN,
	}
	if res.Version == "" {
		res.Version = "latest"
	}
	return res
}

// resolveURL passes an absolute URL through unchanged, classifying its CDN
// and collapsing it to a bare package name for conflict detection.
func (r *Resolver) resolveURL(ref analyzer.Ref) Resolved {
	u, err := url.Parse(ref.Source)
	if err != nil || u.Host == "" {
		return failed(ref.Source, "unparseable URL")
	}

	cdn := DetectCDN(ref.Source)
	name := packageFromPath(u.Path)
	if name == "" {
		return failed(ref.Source, "no package name in URL path")
	}

	if cdn == CDNUnknown {
		// Arbitrary hosts are passed through but recorded; the module map
		// validator and the reader of this log are the policy backstop.
		r.log.Warn("import from unrecognized host",
			zap.String("host", u.Host), zap.String("package", name))
	}

	if name == RuntimeName || strings.HasPrefix(name, RuntimeName+"/") {
		return Resolved{
			Name:      name,
			Version:   RuntimeVersion,
			Requested: ref.Version,
			Status:    StatusBaseline,
			CDN:       cdn,
		}
	}

	version := ref.Version
	if version == "" {
		version = "latest"
	}
	return Resolved{
		Name:      name,
		URL:       ref.Source,
		Version:   version,
		Requested: ref.Version,
		Status:    StatusResolved,
		CDN:       cdn,
	}
}

// DetectCDN classifies a URL by substring match against known CDN hostnames.
func DetectCDN(rawURL string) CDN {
	u, err := url.Parse(rawURL)
	if err != nil {
		return CDNUnknown
	}
	host := strings.ToLower(u.Host)
	for _, c := range cdnHosts {
		if strings.Contains(host, c.substr) {
			return c.cdn
		}
	}
	return CDNUnknown
}

// packageFromPath extracts a package name from a CDN URL path, e.g.
// /npm/foo@2.1.0/index.js yields "foo" and /npm/@org/pkg@1.0.0/x.js yields
// "@org/pkg". Scoped names keep their scope segment.
func packageFromPath(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	// jsdelivr and friends prefix the registry name
	if len(segs) > 0 && (segs[0] == "npm" || segs[0] == "gh") {
		segs = segs[1:]
	}
	if len(segs) == 0 || segs[0] == "" {
		return ""
	}

	name := segs[0]
	if strings.HasPrefix(name, "@") {
		if len(segs) < 2 || segs[1] == "" {
			return ""
		}
		return name + "/" + stripVersion(segs[1])
	}
	return stripVersion(name)
}

// stripVersion removes a trailing @version from a path segment.
func stripVersion(seg string) string {
	if at := strings.LastIndexByte(seg, '@'); at > 0 {
		return seg[:at]
	}
	return seg
}

// splitBareVersion splits "foo@1.2.3" into name and version. A leading "@"
// marks a scope, not a version.
func splitBareVersion(spec string) (name, version string) {
	at := strings.LastIndexByte(spec, '@')
	if at <= 0 {
		return spec, ""
	}
	// @scope/pkg with no version has its only "@" at index 0
	if strings.HasPrefix(spec, "@") && strings.Count(spec, "@") == 1 {
		return spec, ""
	}
	return spec[:at], spec[at+1:]
}

// validPackageName rejects specifiers that cannot be npm package paths.
func validPackageName(name string) bool {
	if name == "" || len(name) > 214 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == '/' || r == '@':
		default:
			return false
		}
	}
	return !strings.HasPrefix(name, ".") && !strings.HasPrefix(name, "/")
}

func failed(source, reason string) Resolved {
	return Resolved{Name: source, Status: StatusFailed, Reason: reason}
}
