package history

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/campflow/campflow/pkg/api"
)

// SQLiteStore is a HistoryStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db *sql.DB
}

var _ api.HistoryStore = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database and
// returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS published_packages (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at TEXT NOT NULL,
			publish_package TEXT NOT NULL,
			note TEXT NOT NULL DEFAULT ''
		);`,
	)
	return err
}

func (s *SQLiteStore) Append(ctx context.Context, pkg api.PublishedPackage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO published_packages (id, name, created_at, publish_package, note)
		VALUES (?, ?, ?, ?, ?)`,
		pkg.ID,
		pkg.Name,
		pkg.CreatedAt.UTC().Format(time.RFC3339Nano),
		pkg.Content,
		pkg.Note,
	)
	return err
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]api.PublishedPackage, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at, publish_package, note
		FROM published_packages
		ORDER BY created_at DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pkgs []api.PublishedPackage
	for rows.Next() {
		pkg, err := scanPackage(rows.Scan)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (api.PublishedPackage, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, publish_package, note
		FROM published_packages
		WHERE id = ?`,
		id,
	)

	pkg, err := scanPackage(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return api.PublishedPackage{}, api.ErrPackageNotFound
		}
		return api.PublishedPackage{}, err
	}
	return pkg, nil
}

func scanPackage(scan func(...any) error) (api.PublishedPackage, error) {
	var pkg api.PublishedPackage
	var createdAt string

	if err := scan(&pkg.ID, &pkg.Name, &createdAt, &pkg.Content, &pkg.Note); err != nil {
		return api.PublishedPackage{}, err
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return api.PublishedPackage{}, err
	}
	pkg.CreatedAt = ts
	return pkg, nil
}
