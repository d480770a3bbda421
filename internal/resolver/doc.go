// Package resolver maps import references to concrete CDN-loadable URLs.
//
// Resolution is a non-transactional batch: each reference resolves
// independently and a malformed specifier degrades to a failed sentinel
// entry instead of aborting the run. The bundled rendering runtime (three
// and its addons namespace) always short-circuits to the baseline map —
// loading a second copy of the renderer from a fresh CDN fetch causes
// duplicate-context and prototype-mismatch failures inside the sandbox.
//
// Conflict detection groups resolutions by normalized package name and
// reports divergent version requests as warnings. Warnings never block
// execution; the first-seen version stays authoritative.
//
// Registry lookups (pinning "latest" to a concrete version via the CDN
// metadata API) are optional and disabled by default; when enabled they
// run through a rate-limited, circuit-broken retrying client.
package resolver
