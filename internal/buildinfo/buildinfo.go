// Package buildinfo provides version and build information for zebr0.
// It exposes variables that are set at link-time to identify the version and
// commit hash of the build.
package buildinfo

// Version is set at link-time with -ldflags.
var Version = "v0.11.0"

// Commit is set at link-time with -ldflags.
// Default is "unknown" so tests and "go run ." still work.
var Commit = "unknown"

// UserAgent is the User-Agent header sent to the key-value server.
func UserAgent() string {
	return "zebr0/" + Version
}
