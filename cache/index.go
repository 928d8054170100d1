package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/zuri-dev/zpk/ident"

	// SQLite driver
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS packages (
	specifier    TEXT PRIMARY KEY,
	domain       TEXT NOT NULL,
	name         TEXT NOT NULL,
	version      TEXT NOT NULL,
	digest       TEXT NOT NULL,
	size         INTEGER NOT NULL,
	installed_at INTEGER NOT NULL
)`

// Record describes one installed package.
type Record struct {
	Specifier   ident.Specifier
	Digest      digest.Digest
	Size        int64
	InstalledAt time.Time
}

type index struct {
	db *sql.DB
}

func openIndex(path string) (*index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create index schema: %w", err)
	}
	return &index{db: db}, nil
}

func (x *index) close() error {
	return x.db.Close()
}

func (x *index) record(ctx context.Context, rec Record) error {
	_, err := x.db.ExecContext(ctx, `
INSERT INTO packages (specifier, domain, name, version, digest, size, installed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(specifier) DO UPDATE SET
	digest = excluded.digest,
	size = excluded.size,
	installed_at = excluded.installed_at`,
		rec.Specifier.String(),
		rec.Specifier.ID.Domain,
		rec.Specifier.ID.Name,
		rec.Specifier.Version.String(),
		rec.Digest.String(),
		rec.Size,
		rec.InstalledAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record %s: %w", rec.Specifier, err)
	}
	return nil
}

func (x *index) remove(ctx context.Context, spec ident.Specifier) error {
	if _, err := x.db.ExecContext(ctx, `DELETE FROM packages WHERE specifier = ?`, spec.String()); err != nil {
		return fmt.Errorf("unrecord %s: %w", spec, err)
	}
	return nil
}

func (x *index) lookup(ctx context.Context, spec ident.Specifier) (Record, bool, error) {
	var (
		dgst        string
		size        int64
		installedAt int64
	)
	err := x.db.QueryRowContext(ctx,
		`SELECT digest, size, installed_at FROM packages WHERE specifier = ?`, spec.String(),
	).Scan(&dgst, &size, &installedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("lookup %s: %w", spec, err)
	}
	return Record{
		Specifier:   spec,
		Digest:      digest.Digest(dgst),
		Size:        size,
		InstalledAt: time.UnixMilli(installedAt),
	}, true, nil
}
