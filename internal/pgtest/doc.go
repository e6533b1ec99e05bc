// Package pgtest starts a throwaway Postgres for integration tests and applies
// the repository migrations. Its helpers are only built with the integration tag.
package pgtest
