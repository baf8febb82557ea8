// Package prompt derives model-facing structural hints from a schema.
package prompt
