// Package workspace manages compiled schema artifacts on disk: a
// content-addressed build cache keyed by rendered schema text, an
// invoker for the external compiler, and a loader that opens compiled
// parser artifacts and hands back their parse function registries.
//
// The cache is idempotent: handing it the same rendered source twice
// yields the same workspace, and a workspace whose output directory
// already exists is a hit that skips compilation entirely.
package workspace
