// Package resilience provides a circuit breaker for outbound CDN calls.
//
// The breaker guards the registry metadata client: a CDN data API that
// starts failing stops being hammered on every keystroke-triggered run.
// State moves closed -> open on trip, open -> half-open after the cooldown,
// and half-open -> closed once enough probes succeed.
package resilience
