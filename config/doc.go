// Package config loads the schemaflow configuration tree from
// defaults, an optional YAML file, and environment variable overrides.
package config
