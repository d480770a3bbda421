// Package importmap builds the specifier-to-URL table the sandbox's module
// loader consumes.
//
// A Map composes two layers: the fixed baseline (the bundled rendering
// runtime, its addons namespace, and a couple of small utilities) and the
// derived entries built from resolved imports. Baseline entries always win
// on collision, including the prefix case where a baseline key ends in "/"
// and a derived key falls under it. The map is rebuilt from scratch on
// every run and serializes with insertion order preserved, as
// {"imports":{...}} — the shape a standard import map script tag expects.
//
// Validate runs before any map crosses the isolation boundary: a malformed
// entry fails loudly here instead of as a confusing loader error deep
// inside the sandbox.
package importmap
