// Package server wires the playground host together: HTTP routes, the
// sandbox and editor WebSocket endpoints, the bridge session, and the run
// pipeline.
//
// One sandbox session is live at a time — the playground has a single
// preview pane. A new sandbox connection replaces the previous session;
// editor connections are a broadcast set receiving filtered bridge events.
package server
