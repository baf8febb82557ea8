// Package cache stores raw extraction outputs in Redis so repeated
// identical requests can skip the provider call and replay the cached
// text through the compiled parser instead.
package cache
