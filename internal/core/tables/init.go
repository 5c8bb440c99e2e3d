// Package tables registers the salon table definitions with the core
// registry. Import it for side effects wherever ingestion runs.
package tables
