// Package migrate keeps the snapshot database schema current. Schema
// changes are numbered SQL files embedded in the binary; each applied file
// is recorded with a checksum so an edited, already-applied file is caught
// at startup instead of silently diverging.
package migrate

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var embedded embed.FS

// ErrChecksumMismatch means an applied step no longer matches its file.
var ErrChecksumMismatch = errors.New("migrate: applied migration was modified")

// Step is one numbered schema change.
type Step struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

// Schema is an ordered set of steps.
type Schema struct {
	steps []Step
}

// Embedded returns the schema shipped with the binary.
func Embedded() (*Schema, error) {
	return Load(embedded, "migrations")
}

// Load reads NNN_name.sql files from dir. Versions must be unique.
func Load(fsys fs.FS, dir string) (*Schema, error) {
	files, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("migrate: list %s: %w", dir, err)
	}

	steps := make([]Step, 0, len(files))
	seen := make(map[int]string, len(files))
	for _, file := range files {
		name := path.Base(file)
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migrate: %s: want NNN_name.sql", name)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migrate: %s: bad version %q", name, prefix)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrate: %s and %s share version %d", prev, name, version)
		}
		seen[version] = name

		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("migrate: read %s: %w", name, err)
		}
		sum := sha256.Sum256(data)
		steps = append(steps, Step{
			Version:  version,
			Name:     name,
			SQL:      string(data),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	slices.SortFunc(steps, func(a, b Step) int { return a.Version - b.Version })
	return &Schema{steps: steps}, nil
}

// Steps returns the steps in version order.
func (s *Schema) Steps() []Step { return slices.Clone(s.steps) }

const ledgerDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       VARCHAR NOT NULL,
	checksum   VARCHAR NOT NULL,
	applied_at TIMESTAMP DEFAULT current_timestamp
)`

// applied returns version → checksum for every recorded step.
func applied(ctx context.Context, db *sql.DB) (map[int]string, error) {
	if _, err := db.ExecContext(ctx, ledgerDDL); err != nil {
		return nil, fmt.Errorf("migrate: create ledger: %w", err)
	}
	rows, err := db.QueryContext(ctx, `SELECT version, checksum FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("migrate: read ledger: %w", err)
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var v int
		var sum string
		if err := rows.Scan(&v, &sum); err != nil {
			return nil, fmt.Errorf("migrate: scan ledger: %w", err)
		}
		out[v] = sum
	}
	return out, rows.Err()
}

// Pending verifies applied steps and returns the ones still to run.
func (s *Schema) Pending(ctx context.Context, db *sql.DB) ([]Step, error) {
	done, err := applied(ctx, db)
	if err != nil {
		return nil, err
	}
	var pending []Step
	for _, st := range s.steps {
		sum, ok := done[st.Version]
		switch {
		case !ok:
			pending = append(pending, st)
		case sum != st.Checksum:
			return nil, fmt.Errorf("%w: %s", ErrChecksumMismatch, st.Name)
		}
	}
	return pending, nil
}

// Apply runs every pending step, each in its own transaction, and returns
// the names it applied.
func (s *Schema) Apply(ctx context.Context, db *sql.DB) ([]string, error) {
	pending, err := s.Pending(ctx, db)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(pending))
	for _, st := range pending {
		if err := applyStep(ctx, db, st); err != nil {
			return names, err
		}
		names = append(names, st.Name)
	}
	return names, nil
}

func applyStep(ctx context.Context, db *sql.DB, st Step) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: begin %s: %w", st.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, st.SQL); err != nil {
		return fmt.Errorf("migrate: %s: %w", st.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, checksum) VALUES (?, ?, ?)`,
		st.Version, st.Name, st.Checksum,
	); err != nil {
		return fmt.Errorf("migrate: record %s: %w", st.Name, err)
	}
	return tx.Commit()
}
