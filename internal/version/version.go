// Package version provides build and version information.
package version

// Version is the current application version.
const Version = "0.3.0"

// Milestones:
// 0.3.0 - Headless mode with JSON output, Prometheus metrics, env config
// 0.2.0 - Analytics channel: forecast band, posterior and Markov charts
// 0.1.0 - Initial release: orbital scene, falling meteors, region counter
