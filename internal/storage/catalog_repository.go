package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Thomaz-Klifson/car-search/internal/catalog"
)

const carsSchema = `
CREATE TABLE IF NOT EXISTS cars (
	position INTEGER PRIMARY KEY,
	name     TEXT NOT NULL,
	model    TEXT NOT NULL DEFAULT '',
	image    TEXT NOT NULL DEFAULT '',
	price    DOUBLE PRECISION NOT NULL,
	location TEXT NOT NULL DEFAULT ''
)`

// CatalogRepository stores catalog entries in a "cars" table, keeping their order.
type CatalogRepository struct {
	db DB
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(db DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Migrate creates the cars table when missing.
func (r *CatalogRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, carsSchema); err != nil {
		return fmt.Errorf("create cars table: %w", err)
	}
	return nil
}

// LoadEntries returns every entry in catalog order. It implements catalog.Source.
func (r *CatalogRepository) LoadEntries(ctx context.Context) ([]catalog.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, model, image, price, location FROM cars ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query cars: %w", err)
	}
	defer rows.Close()

	var entries []catalog.Entry
	for rows.Next() {
		var e catalog.Entry
		if err := rows.Scan(&e.Name, &e.Model, &e.Image, &e.Price, &e.Location); err != nil {
			return nil, fmt.Errorf("scan car: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cars: %w", err)
	}

	return entries, nil
}

// Get returns the entry at position, or ErrNotFound.
func (r *CatalogRepository) Get(ctx context.Context, position int) (*catalog.Entry, error) {
	var e catalog.Entry
	err := r.db.QueryRowContext(ctx,
		`SELECT name, model, image, price, location FROM cars WHERE position = $1`, position,
	).Scan(&e.Name, &e.Model, &e.Image, &e.Price, &e.Location)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get car %d: %w", position, err)
	}
	return &e, nil
}

// Count returns the number of stored entries.
func (r *CatalogRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cars`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cars: %w", err)
	}
	return n, nil
}

// ReplaceAll swaps the stored catalog for entries in one transaction.
// progress, when set, is called after each inserted row.
func (r *CatalogRepository) ReplaceAll(ctx context.Context, entries []catalog.Entry, progress func(done int)) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cars`); err != nil {
		return fmt.Errorf("clear cars: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cars (position, name, model, image, price, location) VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, i, e.Name, e.Model, e.Image, e.Price, e.Location); err != nil {
			return fmt.Errorf("insert car %d: %w", i, err)
		}
		if progress != nil {
			progress(i + 1)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
