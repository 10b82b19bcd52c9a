// Package buildinfo carries the build-time identity of the binaries.
package buildinfo

// Version is the semantic version of webmcpd, set at build time via -ldflags.
var Version = "dev"

// Build is the git commit hash or build identifier, set at build time via -ldflags.
var Build = "unknown"
