// Package web serves the sandbox bootstrap page and static editor assets.
//
// The bootstrap page ships with the baseline import map injected
// server-side into its importmap script tag; per-run maps still travel
// inside execute messages. Static assets are content-fingerprinted at
// startup for ETag-based caching and served gzip-compressed.
package web
