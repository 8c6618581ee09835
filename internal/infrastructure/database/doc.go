// Package database provides SQLite storage for the KAKU bridge.
//
// The bridge persists one row per published accessory so that a restart
// can restore the host-side cache before the first sync cycle runs.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are embedded SQL files named YYYYMMDD_HHMMSS_name.up.sql with
// an optional matching .down.sql. The migrations package registers them via
// MigrationsFS at init.
//
// All queries use parameterised statements. The database file is chmod 0600.
package database
