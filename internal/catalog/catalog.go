package catalog

import (
	"context"
	"errors"
)

// App is one catalog entry: an externally defined application the supervisor
// can launch. Names are unique across the catalog.
type App struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Path    string `json:"path"`  // working directory
	Entry   string `json:"entry"` // entry-point identifier, e.g. "app.main:app"
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Args    string `json:"args,omitempty"` // extra command-line args, space separated
	Enabled bool   `json:"enabled"`
}

var (
	// ErrNotFound is returned when no app matches the given id or name.
	ErrNotFound = errors.New("app not found")
	// ErrDuplicateName is returned when another app already uses the name.
	ErrDuplicateName = errors.New("app name already exists")
)

// Store persists app definitions. Implementations: sqlite (default) and
// postgres, selected by DSN via the factory package.
type Store interface {
	EnsureSchema(ctx context.Context) error
	Create(ctx context.Context, app App) (App, error)
	Get(ctx context.Context, id int64) (App, error)
	GetByName(ctx context.Context, name string) (App, error)
	Update(ctx context.Context, app App) (App, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]App, error)
	// UpsertByName inserts the app or updates the existing row with the
	// same name. Used by YAML import.
	UpsertByName(ctx context.Context, app App) (App, error)
	Close() error
}
