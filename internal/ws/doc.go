// Package ws is the production transport for the isolation boundary.
//
// The sandbox iframe's bootstrap page connects back here over WebSocket.
// Upgrades are gated on the Origin header against configured glob
// patterns; every decoded inbound frame is wrapped in an envelope stamped
// with that validated origin, and the bridge re-checks it per message.
// One writer goroutine per connection; reads carry a size limit and
// deadlines refreshed by pongs.
package ws
