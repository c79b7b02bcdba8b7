// Package client bootstraps the client's local persistence: it opens the
// SQLite upload journal and applies the embedded goose migrations.
//
// See Also
//
//   - DB helpers: InitDatabase, RunMigrations
//   - Repository: internal/client/repositories/journal
package client
