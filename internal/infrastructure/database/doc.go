// Package database provides SQLite connectivity for the JAP control panel.
//
// The panel stores no device state; the database only holds the append-only
// log of control submissions (see package audit). This package manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Schema migrations read from an fs.FS (normally migrations.FS)
//   - Health checks for the API
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// All queries use parameterised statements.
package database
