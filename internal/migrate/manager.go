// Package migrate applies the SQL schema migrations and seed files that the
// service needs: users, tokens, permissions, permission templates and time
// clock tables.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	historyTable = "schema_migrations"
	seedTable    = "schema_seeds"

	// lockKey serializes concurrent migrators via pg_advisory_lock.
	lockKey = 736030
)

// Runner applies ordered .up.sql migrations and idempotent seed files.
type Runner struct {
	db            *sql.DB
	migrationsDir string
	seedsDir      string
}

// NewRunner constructs a Runner over the given directories.
func NewRunner(db *sql.DB, migrationsDir, seedsDir string) *Runner {
	return &Runner{db: db, migrationsDir: migrationsDir, seedsDir: seedsDir}
}

// Up applies every pending migration in lexical filename order.
func (r *Runner) Up(ctx context.Context) error {
	return r.withLock(ctx, func() error {
		applied, err := r.appliedSet(ctx, historyTable)
		if err != nil {
			return err
		}
		files, err := listSQL(r.migrationsDir, ".up.sql")
		if err != nil {
			return err
		}
		for _, f := range files {
			if applied[f.name] {
				continue
			}
			if err := r.applyFile(ctx, f.path); err != nil {
				return fmt.Errorf("apply migration %s: %w", f.name, err)
			}
			if err := r.record(ctx, historyTable, f.name); err != nil {
				return err
			}
		}
		return nil
	})
}

// Down rolls back the most recently applied migration, if its .down.sql
// counterpart exists.
func (r *Runner) Down(ctx context.Context) error {
	return r.withLock(ctx, func() error {
		history, err := r.appliedOrdered(ctx, historyTable)
		if err != nil {
			return err
		}
		if len(history) == 0 {
			return errors.New("no migrations applied")
		}
		last := history[len(history)-1]
		down := strings.TrimSuffix(filepath.Join(r.migrationsDir, last), ".up.sql") + ".down.sql"
		if _, err := os.Stat(down); err != nil {
			return fmt.Errorf("missing down migration for %s", last)
		}
		if err := r.applyFile(ctx, down); err != nil {
			return fmt.Errorf("rollback %s: %w", last, err)
		}
		_, err = r.db.ExecContext(ctx,
			fmt.Sprintf(`delete from %s where name = $1`, historyTable), last)
		return err
	})
}

// Status returns applied migrations in application order.
func (r *Runner) Status(ctx context.Context) ([]string, error) {
	if err := r.ensureTables(ctx); err != nil {
		return nil, err
	}
	return r.appliedOrdered(ctx, historyTable)
}

// Seed applies every pending seed file. Seeds run once each, same
// bookkeeping as migrations but in a separate table.
func (r *Runner) Seed(ctx context.Context) error {
	return r.withLock(ctx, func() error {
		applied, err := r.appliedSet(ctx, seedTable)
		if err != nil {
			return err
		}
		files, err := listSQL(r.seedsDir, ".sql")
		if err != nil {
			return err
		}
		for _, f := range files {
			if applied[f.name] {
				continue
			}
			if err := r.applyFile(ctx, f.path); err != nil {
				return fmt.Errorf("apply seed %s: %w", f.name, err)
			}
			if err := r.record(ctx, seedTable, f.name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Runner) withLock(ctx context.Context, fn func() error) error {
	if err := r.ensureTables(ctx); err != nil {
		return err
	}
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, `select pg_advisory_lock($1)`, lockKey); err != nil {
		return err
	}
	defer func() {
		_, _ = conn.ExecContext(ctx, `select pg_advisory_unlock($1)`, lockKey)
	}()
	return fn()
}

func (r *Runner) ensureTables(ctx context.Context) error {
	for _, table := range []string{historyTable, seedTable} {
		ddl := fmt.Sprintf(`
			create table if not exists %s (
				name text primary key,
				applied_at timestamptz not null default now()
			);`, table)
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

// applyFile runs one file inside a transaction, statement by statement.
func (r *Runner) applyFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(raw)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Runner) record(ctx context.Context, table, name string) error {
	_, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`insert into %s(name, applied_at) values ($1, $2)`, table),
		name, time.Now().UTC())
	return err
}

func (r *Runner) appliedSet(ctx context.Context, table string) (map[string]bool, error) {
	names, err := r.appliedOrdered(ctx, table)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}

func (r *Runner) appliedOrdered(ctx context.Context, table string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		fmt.Sprintf(`select name from %s order by applied_at asc, name asc`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

type sqlFile struct {
	name string
	path string
}

func listSQL(dir, suffix string) ([]sqlFile, error) {
	if dir == "" {
		return nil, nil
	}
	var files []sqlFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), suffix) {
			files = append(files, sqlFile{name: d.Name(), path: path})
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

// splitStatements splits on semicolons outside single-quoted strings. Good
// enough for the DDL in this repo; no dollar-quoted bodies here.
func splitStatements(sql string) []string {
	var (
		stmts    []string
		current  strings.Builder
		inString bool
	)
	for _, r := range sql {
		current.WriteRune(r)
		switch r {
		case '\'':
			inString = !inString
		case ';':
			if !inString {
				stmts = append(stmts, current.String())
				current.Reset()
			}
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		stmts = append(stmts, current.String())
	}
	return stmts
}
