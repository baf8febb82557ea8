// Package testutil provides shared helpers for tests: context
// lifecycles tied to the test, and the mocks subpackage with a
// scriptable provider.
package testutil
