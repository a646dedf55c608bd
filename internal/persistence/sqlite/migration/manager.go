package migration

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
)

// ManagerOption configures a migration manager.
type ManagerOption func(*migrationManagerImpl)

// WithChecksumVerification makes the manager refuse to run when an applied
// migration file no longer matches the checksum recorded for it.
func WithChecksumVerification() ManagerOption {
	return func(m *migrationManagerImpl) {
		m.verifyChecksum = true
	}
}

// migrationManagerImpl implements the MigrationManager interface
type migrationManagerImpl struct {
	scanner        FileScanner
	executor       Executor
	source         fs.FS
	dir            string
	logger         *slog.Logger
	verifyChecksum bool
}

// NewMigrationManager creates a new MigrationManager reading migration files
// from dir inside source.
func NewMigrationManager(scanner FileScanner, executor Executor, source fs.FS, dir string, logger *slog.Logger, opts ...ManagerOption) MigrationManager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &migrationManagerImpl{
		scanner:  scanner,
		executor: executor,
		source:   source,
		dir:      dir,
		logger:   logger.With("component", "migration"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunMigrations executes all pending migrations in sequential order
func (m *migrationManagerImpl) RunMigrations(ctx context.Context) error {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		m.logger.ErrorContext(ctx, "failed to initialize schema_migrations table", "error", err)
		return fmt.Errorf("failed to initialize version table: %w", err)
	}

	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to resolve pending migrations", "error", err)
		return err
	}
	if len(pending) == 0 {
		m.logger.InfoContext(ctx, "database schema is up to date")
		return nil
	}

	m.logger.InfoContext(ctx, "applying migrations", "pending", len(pending))
	for i, migration := range pending {
		elapsed, err := m.executor.ExecuteMigration(ctx, migration)
		if err != nil {
			m.logger.ErrorContext(ctx, "migration failed",
				"version", migration.Version,
				"file", migration.FilePath,
				"error", err)
			return fileError(migration.Version, migration.FilePath,
				"execute migration", fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
		m.logger.InfoContext(ctx, "migration applied",
			"version", migration.Version,
			"description", migration.Description,
			"position", i+1,
			"total", len(pending),
			"duration", elapsed)
	}

	return nil
}

// GetPendingMigrations returns list of migrations that need to be applied
func (m *migrationManagerImpl) GetPendingMigrations(ctx context.Context) ([]Migration, error) {
	available, err := m.scanner.ScanMigrations(m.source, m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}

	if err := m.validateMigrationSequence(available, applied); err != nil {
		return nil, fmt.Errorf("migration sequence validation failed: %w", err)
	}

	appliedMap := make(map[int]AppliedMigration, len(applied))
	for _, a := range applied {
		appliedMap[versionNumber(a.Version)] = a
	}

	var pending []Migration
	for _, migration := range available {
		record, done := appliedMap[versionNumber(migration.Version)]
		if !done {
			pending = append(pending, migration)
			continue
		}
		if m.verifyChecksum && record.Checksum != "" && record.Checksum != migration.Checksum {
			return nil, fileError(migration.Version, migration.FilePath, "verify checksum",
				fmt.Errorf("%w: recorded %s, file %s", ErrChecksumMismatch, record.Checksum, migration.Checksum))
		}
	}

	return pending, nil
}

// GetMigrationStatus returns status information about migrations
func (m *migrationManagerImpl) GetMigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	pending, err := m.GetPendingMigrations(ctx)
	if err != nil {
		return nil, err
	}

	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	status := &MigrationStatus{
		PendingCount:      len(pending),
		AppliedMigrations: applied,
		PendingMigrations: pending,
	}
	maxVersion := -1
	for _, a := range applied {
		if n := versionNumber(a.Version); n > maxVersion {
			maxVersion = n
			status.CurrentVersion = a.Version
		}
	}

	return status, nil
}

// validateMigrationSequence ensures there are no gaps in migration version
// numbers and that every applied version still has a file.
func (m *migrationManagerImpl) validateMigrationSequence(available []Migration, applied []AppliedMigration) error {
	availableMap := make(map[int]bool, len(available))
	for _, migration := range available {
		availableMap[versionNumber(migration.Version)] = true
	}

	if len(available) > 0 {
		minVersion := versionNumber(available[0].Version)
		maxVersion := versionNumber(available[len(available)-1].Version)
		for version := minVersion; version <= maxVersion; version++ {
			if !availableMap[version] {
				return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, version)
			}
		}
	}

	for _, a := range applied {
		if !availableMap[versionNumber(a.Version)] {
			return fmt.Errorf("%w: applied migration %s not found in available migrations", ErrVersionConflict, a.Version)
		}
	}

	return nil
}
