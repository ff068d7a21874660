// Package database provides SQLite connectivity for the deployment history
// and audit trail.
//
// This package manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Forward-only schema migrations embedded in the binary
//   - An in-memory mode (MemoryPath) used by tests
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration Strategy:
//
// Files are named YYYYMMDD_HHMMSS_description.up.sql and applied in version
// order, each in its own transaction. Migrations are additive-only: new
// columns must be NULLABLE or have DEFAULT values.
package database
