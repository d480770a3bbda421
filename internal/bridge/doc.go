// Package bridge owns the host side of the isolation boundary.
//
// One Session exists per sandbox instance. The session starts Loading and
// becomes Ready exactly once, when the sandbox's handshake arrives; from
// then on runs are delivered as structured messages and the bridge is
// purely reactive to whatever the sandbox emits back: console lines,
// errors, capture results, reset requests.
//
// Every inbound envelope carries the origin it arrived from and is checked
// against the expected origin before its payload is trusted. That check is
// what makes the isolation boundary meaningful; a mismatch drops the
// message, counted and logged, and nothing else happens. Malformed bodies
// and unknown type tags drop the same way. Nothing inbound can crash the
// host.
//
// Camera-state and frame-capture queries correlate responses through a
// single stashed id per query kind, because the message channel itself
// carries no request/response field. A second request before the first
// resolves overwrites the slot and fails the superseded waiter with
// ErrSuperseded; at most one such query is meaningfully in flight at a
// time.
package bridge
