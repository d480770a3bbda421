// Package monitoring collects Prometheus metrics for the playground host.
//
// Beyond the usual HTTP request metrics, the interesting series live at the
// isolation boundary: bridge events by type, messages dropped for a foreign
// origin or malformed body, runs delivered to the sandbox, and resolution
// outcomes by status and CDN. Exposed at /metrics.
package monitoring
