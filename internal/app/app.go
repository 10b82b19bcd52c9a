// Package app is the composition root: it wires the domain, infra, and
// telemetry packages into the runnable daemon via google/wire.
package app

// ServeConfig carries the daemon invocation settings from the CLI.
type ServeConfig struct {
	ConfigPath string
}
