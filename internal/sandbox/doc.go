// Package sandbox is an in-process execution context speaking the bridge
// protocol.
//
// The production boundary is a browser sandbox iframe talking back over
// WebSocket; this package is the headless stand-in for CI, sketchctl, and
// tests. A Runtime runs on its own goroutine, which makes it a separate
// single-threaded environment the same way the iframe is: the host reaches
// it only through messages, never through shared state.
//
// Untrusted source is never passed to an eval-equivalent against live host
// state. Each execute message builds a fresh hardened VM (no require,
// process, module, or exports; timers are inert), lowers static imports to
// registry lookups against explicitly registered module sources, and runs
// the result under an interrupt deadline. The fresh-VM-per-run rule is the
// cleanup-before-re-run contract: nothing survives from the previous
// evaluation.
package sandbox
