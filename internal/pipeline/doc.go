// Package pipeline orchestrates the run loop: analyze, resolve, build,
// deliver.
//
// On every run trigger the service normalizes the submitted source to
// UTF-8, extracts its imports, resolves them, and builds a validated module
// map before handing (source, map) to the bridge. Zero imports
// short-circuits resolution entirely and ships the source without a map.
// Resolution warnings surface in the run report without blocking; map
// validation errors abort injection.
//
// The service also owns the single-slot pending run: a run requested while
// the sandbox is still loading replaces any earlier parked run, and the
// newest one flushes when the ready handshake lands. Rapid successive
// edits never queue stale executions.
package pipeline
