package db

import (
	"context"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrMigrationChanged means an already applied migration file no longer
// matches the checksum recorded when it ran.
var ErrMigrationChanged = errors.New("applied migration was modified")

type migration struct {
	version  int
	name     string
	sql      string
	checksum string
}

// Migrate applies every embedded migration not yet recorded in
// schema_migrations, each in its own transaction, after checking that the
// recorded ones are unchanged.
func Migrate(ctx context.Context, db *sql.DB) error {
	return migrate(ctx, db, migrationsFS)
}

func migrate(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version       INTEGER PRIMARY KEY,
  name          TEXT NOT NULL,
  checksum      TEXT NOT NULL,
  applied_at_ms INTEGER NOT NULL
);`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	ms, err := loadMigrations(fsys)
	if err != nil {
		return err
	}
	recorded, err := recordedChecksums(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range ms {
		if sum, ok := recorded[m.version]; ok {
			if sum != m.checksum {
				return fmt.Errorf("%s: %w", m.name, ErrMigrationChanged)
			}
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func loadMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var ms []migration
	seen := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		v, err := parseVersion(e.Name())
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[v]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", prev, e.Name(), v)
		}
		seen[v] = e.Name()

		b, err := fs.ReadFile(fsys, path.Join("migrations", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		sum := blake3.Sum256(b)
		ms = append(ms, migration{
			version:  v,
			name:     e.Name(),
			sql:      string(b),
			checksum: hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(ms, func(i, j int) bool { return ms[i].version < ms[j].version })
	return ms, nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return fmt.Errorf("apply migration %s: %w", m.name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations(version, name, checksum, applied_at_ms) VALUES(?, ?, ?, ?);`,
		m.version, m.name, m.checksum, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("record migration %s: %w", m.name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.name, err)
	}
	return nil
}

func recordedChecksums(ctx context.Context, db *sql.DB) (map[int]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT version, checksum FROM schema_migrations;`)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var (
			v   int
			sum string
		)
		if err := rows.Scan(&v, &sum); err != nil {
			return nil, fmt.Errorf("scan migration: %w", err)
		}
		out[v] = sum
	}
	return out, rows.Err()
}

// Applied returns the versions recorded in schema_migrations, ascending.
func Applied(ctx context.Context, db *sql.DB) ([]int, error) {
	sums, err := recordedChecksums(ctx, db)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(sums))
	for v := range sums {
		out = append(out, v)
	}
	sort.Ints(out)
	return out, nil
}

// parseVersion reads the numeric prefix of names like 0001_init.sql.
func parseVersion(filename string) (int, error) {
	prefix, _, ok := strings.Cut(filename, "_")
	if !ok {
		return 0, fmt.Errorf("bad migration filename %s: want <version>_<name>.sql", filename)
	}
	v, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("bad migration version %s: %w", filename, err)
	}
	return v, nil
}
