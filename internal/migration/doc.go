// Package migration applies the embedded extraction_runs table
// migrations with golang-migrate. Per-dialect SQL lives under
// migrations/ and is selected by driver name. The gorm store's
// AutoMigrate covers development use; this package is the explicit
// path for operated databases.
package migration
