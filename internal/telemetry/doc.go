// Package telemetry wraps OTel SDK initialization. It registers global
// trace and meter providers when enabled and leaves the noop defaults
// in place otherwise.
package telemetry
