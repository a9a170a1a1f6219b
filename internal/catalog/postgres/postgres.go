package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/loykin/appman/internal/catalog"
)

// DB implements catalog.Store for PostgreSQL via the pgx stdlib driver.
type DB struct {
	db *sql.DB
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS apps(
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			path TEXT NOT NULL,
			entry TEXT NOT NULL,
			host TEXT NOT NULL DEFAULT '127.0.0.1',
			port INTEGER NOT NULL,
			args TEXT NULL,
			enabled BOOLEAN NOT NULL DEFAULT TRUE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_apps_name ON apps(name);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) Create(ctx context.Context, app catalog.App) (catalog.App, error) {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO apps(name, path, entry, host, port, args, enabled)
		VALUES($1,$2,$3,$4,$5,$6,$7)
		RETURNING id;`,
		app.Name, app.Path, app.Entry, app.Host, app.Port, nullable(app.Args), app.Enabled)
	if err := row.Scan(&app.ID); err != nil {
		if isUniqueViolation(err) {
			return catalog.App{}, catalog.ErrDuplicateName
		}
		return catalog.App{}, err
	}
	return app, nil
}

func (p *DB) Get(ctx context.Context, id int64) (catalog.App, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, name, path, entry, host, port, args, enabled FROM apps WHERE id=$1;`, id)
	return scanApp(row)
}

func (p *DB) GetByName(ctx context.Context, name string) (catalog.App, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, name, path, entry, host, port, args, enabled FROM apps WHERE name=$1;`, name)
	return scanApp(row)
}

func (p *DB) Update(ctx context.Context, app catalog.App) (catalog.App, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE apps SET name=$1, path=$2, entry=$3, host=$4, port=$5, args=$6, enabled=$7
		WHERE id=$8;`,
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

func (p *DB) Delete(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM apps WHERE id=$1;`, id)
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

func (p *DB) List(ctx context.Context) ([]catalog.App, error) {
	rows, err := p.db.QueryContext(ctx, `
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

func (p *DB) UpsertByName(ctx context.Context, app catalog.App) (catalog.App, error) {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO apps(name, path, entry, host, port, args, enabled)
		VALUES($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT(name) DO UPDATE SET
			path=EXCLUDED.path,
			entry=EXCLUDED.entry,
			host=EXCLUDED.host,
			port=EXCLUDED.port,
			args=EXCLUDED.args,
			enabled=EXCLUDED.enabled;`,
		app.Name, app.Path, app.Entry, app.Host, app.Port, nullable(app.Args), app.Enabled)
	if err != nil {
		return catalog.App{}, err
	}
	return p.GetByName(ctx, app.Name)
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

// isUniqueViolation matches SQLSTATE 23505 without importing pgconn directly.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
