package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/loykin/appman/internal/catalog"
)

// DB implements catalog.Store for SQLite (modernc.org/sqlite driver,
// CGO-free). DSN is a filesystem path; use ":memory:" for in-memory.
type DB struct {
	db *sql.DB
}

// New opens a SQLite database at path.
func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &DB{db: d}, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS apps(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			path TEXT NOT NULL,
			entry TEXT NOT NULL,
			host TEXT NOT NULL DEFAULT '127.0.0.1',
			port INTEGER NOT NULL,
			args TEXT NULL,
			enabled BOOLEAN NOT NULL DEFAULT 1
		);`,
		`CREATE INDEX IF NOT EXISTS idx_apps_name ON apps(name);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) Create(ctx context.Context, app catalog.App) (catalog.App, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO apps(name, path, entry, host, port, args, enabled)
		VALUES(?, ?, ?, ?, ?, ?, ?);`,
		app.Name, app.Path, app.Entry, app.Host, app.Port, nullable(app.Args), app.Enabled)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.App{}, catalog.ErrDuplicateName
		}
		return catalog.App{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return catalog.App{}, err
	}
	app.ID = id
	return app, nil
}

func (s *DB) Get(ctx context.Context, id int64) (catalog.App, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, path, entry, host, port, args, enabled FROM apps WHERE id=?;`, id)
	return scanApp(row)
}

func (s *DB) GetByName(ctx context.Context, name string) (catalog.App, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, path, entry, host, port, args, enabled FROM apps WHERE name=?;`, name)
	return scanApp(row)
}

func (s *DB) Update(ctx context.Context, app catalog.App) (catalog.App, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE apps SET name=?, path=?, entry=?, host=?, port=?, args=?, enabled=?
		WHERE id=?;`,
		app.Name, app.Path, app.Entry, app.Host, app.Port, nullable(app.Args), app.Enabled, app.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.App{}, catalog.ErrDuplicateName
		}
		return catalog.App{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return catalog.App{}, err
	}
	if n == 0 {
		return catalog.App{}, catalog.ErrNotFound
	}
	return app, nil
}

func (s *DB) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM apps WHERE id=?;`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (s *DB) List(ctx context.Context) ([]catalog.App, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, path, entry, host, port, args, enabled FROM apps ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var apps []catalog.App
	for rows.Next() {
		app, err := scanApp(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func (s *DB) UpsertByName(ctx context.Context, app catalog.App) (catalog.App, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO apps(name, path, entry, host, port, args, enabled)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			path=excluded.path,
			entry=excluded.entry,
			host=excluded.host,
			port=excluded.port,
			args=excluded.args,
			enabled=excluded.enabled;`,
		app.Name, app.Path, app.Entry, app.Host, app.Port, nullable(app.Args), app.Enabled)
	if err != nil {
		return catalog.App{}, err
	}
	return s.GetByName(ctx, app.Name)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApp(r rowScanner) (catalog.App, error) {
	var app catalog.App
	var args sql.NullString
	err := r.Scan(&app.ID, &app.Name, &app.Path, &app.Entry, &app.Host, &app.Port, &args, &app.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.App{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.App{}, err
	}
	app.Args = args.String
	return app, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToUpper(err.Error()), "UNIQUE")
}
