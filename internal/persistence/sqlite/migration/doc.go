// Package migration applies versioned SQL schema changes to SQLite databases.
//
// Migration files follow the naming convention {version}_{description}.sql
// (e.g. "001_create_sessions.sql") and are read from an fs.FS, so they can
// be embedded into the binary. Applied versions are tracked in the
// schema_migrations table together with a SHA-256 checksum of the file.
// Each migration and its tracking row are written in one transaction.
//
// Example usage:
//
//	scanner := migration.NewFileScanner()
//	executor := migration.NewSQLiteExecutor(db)
//	manager := migration.NewMigrationManager(scanner, executor, files, "migrations", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
