// Package middleware provides HTTP middleware for the playground host.
//
// Middleware stack includes:
//   - CORS: cross-origin resource sharing for the editor front end
//   - RateLimit: per-IP token bucket limiting on run submissions, since
//     every keystroke-triggered run fans out to CDN resolution
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	api.Use(middleware.RateLimit(middleware.RateLimitConfig{RequestsPerSecond: 20, Burst: 40}))
package middleware
