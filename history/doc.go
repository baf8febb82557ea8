// Package history persists extraction run records so operators can
// audit what was asked, how many attempts it took, and how it ended.
package history
