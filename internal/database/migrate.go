package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"questionnaire-engine/internal/logger"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

//go:embed migrations/*.up.sql
var embeddedMigrations embed.FS

const (
	migrationSuffix = ".up.sql"

	migrationsTableExistsQuery = `SELECT COUNT(*) FROM user_tables WHERE table_name = 'SCHEMA_MIGRATIONS'`
	createMigrationsTableQuery = `CREATE TABLE schema_migrations (
		version VARCHAR2(255) PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT SYSTIMESTAMP NOT NULL
	)`
	migrationAppliedQuery = `SELECT COUNT(*) FROM schema_migrations WHERE version = :1`
	recordMigrationQuery  = `INSERT INTO schema_migrations (version) VALUES (:1)`
)

// Migrator applies the *.up.sql files of a filesystem in lexical order, once
// each, recording applied versions in schema_migrations.
type Migrator struct {
	db    *sqlx.DB
	files fs.FS
}

// NewMigrator uses the migrations embedded in the binary.
func NewMigrator(db *sqlx.DB) *Migrator {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		panic(err)
	}
	return &Migrator{db: db, files: sub}
}

// NewMigratorFS reads migrations from the root of files.
func NewMigratorFS(db *sqlx.DB, files fs.FS) *Migrator {
	return &Migrator{db: db, files: files}
}

// Up applies pending migrations and returns their versions.
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	log := logger.Get()

	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}

	versions, err := m.versions()
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, version := range versions {
		var count int
		if err := m.db.GetContext(ctx, &count, migrationAppliedQuery, version); err != nil {
			return applied, fmt.Errorf("could not check migration %s: %w", version, err)
		}
		if count > 0 {
			log.Debug("Migration already applied", zap.String("version", version))
			continue
		}

		content, err := fs.ReadFile(m.files, version+migrationSuffix)
		if err != nil {
			return applied, fmt.Errorf("could not read migration %s: %w", version, err)
		}
		// Oracle runs one statement per call; DDL commits implicitly, so a
		// failed migration has to be repaired by hand.
		for _, stmt := range SplitStatements(string(content)) {
			if _, err := m.db.ExecContext(ctx, stmt); err != nil {
				return applied, fmt.Errorf("could not execute migration %s: %w", version, err)
			}
		}
		if _, err := m.db.ExecContext(ctx, recordMigrationQuery, version); err != nil {
			return applied, fmt.Errorf("could not record migration %s: %w", version, err)
		}

		log.Info("Executed migration", zap.String("version", version))
		applied = append(applied, version)
	}

	log.Info("Migrations completed successfully", zap.Int("applied", len(applied)))
	return applied, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	var count int
	if err := m.db.GetContext(ctx, &count, migrationsTableExistsQuery); err != nil {
		return fmt.Errorf("could not inspect schema_migrations: %w", err)
	}
	if count > 0 {
		return nil
	}
	if _, err := m.db.ExecContext(ctx, createMigrationsTableQuery); err != nil {
		return fmt.Errorf("could not create schema_migrations: %w", err)
	}
	return nil
}

func (m *Migrator) versions() ([]string, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, fmt.Errorf("could not read migrations directory: %w", err)
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), migrationSuffix) {
			continue
		}
		versions = append(versions, strings.TrimSuffix(e.Name(), migrationSuffix))
	}
	sort.Strings(versions)
	return versions, nil
}

// SplitStatements splits a script on semicolons that end a line. Blank
// statements and "--" comment lines are dropped.
func SplitStatements(script string) []string {
	var (
		out     []string
		current strings.Builder
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			out = append(out, stmt)
		}
		current.Reset()
	}
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "--") {
			continue
		}
		if strings.HasSuffix(trimmed, ";") {
			current.WriteString(strings.TrimSuffix(strings.TrimRight(line, " \t\r"), ";"))
			flush()
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	flush()
	return out
}
