// Package config provides 12-factor configuration for the playground host.
//
// Configuration loads from environment variables with sensible defaults;
// an optional YAML or TOML file, chosen by extension, overlays on top.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host, asset directory)
//   - Sandbox: isolation-boundary settings (origins, execution timeout)
//   - Resolver: CDN choice, registry lookups, result cache
//   - Bridge: console noise suppression patterns
//   - Logging: log level and output format
//   - RateLimit: per-IP run-submission limiting
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Listening on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, ASSETS_DIR
//   - SANDBOX_ORIGIN, SANDBOX_ALLOWED_ORIGINS, SANDBOX_EXEC_TIMEOUT, SANDBOX_HEADLESS
//   - RESOLVER_CDN, RESOLVER_REGISTRY_LOOKUPS, RESOLVER_CACHE_SIZE
//   - BRIDGE_NOISE_PATTERNS
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
