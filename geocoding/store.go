// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/radex-fr/radex/spatial"
)

// CachedGeocode is the persisted form of a definitive lookup.
type CachedGeocode struct {
	Name        string         `json:"name"`
	Region      string         `json:"region"`
	Found       bool           `json:"found"`
	Point       *spatial.Point `json:"point,omitempty"`
	Confidence  string         `json:"confidence,omitempty"`
	Provider    string         `json:"provider,omitempty"`
	DisplayName string         `json:"display_name,omitempty"`
	Message     string         `json:"message,omitempty"`
	H3Cell      int64          `json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Key returns the cache key the row answers for.
func (g *CachedGeocode) Key() Key {
	return Key{Name: g.Name, Region: g.Region}
}

// Entry converts the row back into a cache entry.
func (g *CachedGeocode) Entry() Entry {
	if !g.Found || g.Point == nil {
		msg := g.Message
		if msg == "" {
			msg = "could not geocode: " + Query{Name: g.Name, Region: g.Region}.String()
		}

		return Entry{Err: &GeocodingError{Type: ErrorTypeNotFound, Message: msg}}
	}

	return Entry{Result: &Result{
		Point:       *g.Point,
		Confidence:  g.Confidence,
		Provider:    g.Provider,
		DisplayName: g.DisplayName,
	}}
}

// NewCachedGeocode builds the persisted form of a definitive entry.
func NewCachedGeocode(key Key, entry Entry) (*CachedGeocode, error) {
	if !IsDefinitive(entry.Err) {
		return nil, fmt.Errorf("refusing to persist transient failure for %s: %w", key, entry.Err)
	}

	g := &CachedGeocode{Name: key.Name, Region: key.Region}

	if entry.Err != nil {
		g.Message = entry.Err.Error()

		return g, nil
	}

	if entry.Result == nil {
		return nil, fmt.Errorf("empty entry for %s", key)
	}

	point := entry.Result.Point
	g.Found = true
	g.Point = &point
	g.Confidence = entry.Result.Confidence
	g.Provider = entry.Result.Provider
	g.DisplayName = entry.Result.DisplayName

	return g, nil
}

func (g *CachedGeocode) computeH3() error {
	if g.Point == nil {
		g.H3Cell = 0

		return nil
	}

	cell, err := g.Point.Cell()
	if err != nil {
		return fmt.Errorf("computing h3 cell for %s: %w", g.Point, err)
	}

	g.H3Cell = cell

	return nil
}

// SQLStore keeps geocodes in a DuckDB table.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store on db. Call CreateSchema before use.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// DB returns the underlying database connection for advanced queries.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// CreateSchema creates the geocodes table if needed.
func (s *SQLStore) CreateSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS geocodes (
			name VARCHAR NOT NULL,
			region VARCHAR NOT NULL,
			found BOOLEAN NOT NULL,
			lat DOUBLE,
			lng DOUBLE,
			confidence VARCHAR NOT NULL DEFAULT '',
			provider VARCHAR NOT NULL DEFAULT '',
			display_name VARCHAR NOT NULL DEFAULT '',
			message VARCHAR NOT NULL DEFAULT '',
			h3_res7 BIGINT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (name, region)
		);
	`)

	return err
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, key Key) (Entry, bool, error) {
	g, err := s.Find(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}

	if err != nil {
		return Entry{}, false, err
	}

	return g.Entry(), true, nil
}

// Put implements Store. Transient failures are rejected.
func (s *SQLStore) Put(ctx context.Context, key Key, entry Entry) error {
	g, err := NewCachedGeocode(key, entry)
	if err != nil {
		return err
	}

	return s.Save(ctx, g)
}

const geocodeColumns = `name, region, found, lat, lng, confidence, provider, display_name, message, h3_res7, created_at, updated_at`

// Find returns the row for key, or sql.ErrNoRows.
func (s *SQLStore) Find(ctx context.Context, key Key) (*CachedGeocode, error) {
	rows, err := s.list(ctx, `SELECT `+geocodeColumns+` FROM geocodes WHERE name = ? AND region = ?`, key.Name, key.Region)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, sql.ErrNoRows
	}

	return rows[0], nil
}

// All returns every row, ordered by region then name.
func (s *SQLStore) All(ctx context.Context) ([]*CachedGeocode, error) {
	return s.list(ctx, `SELECT `+geocodeColumns+` FROM geocodes ORDER BY region, name`)
}

// Count returns the number of rows.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM geocodes`).Scan(&n)

	return n, err
}

// Save inserts or replaces one row.
func (s *SQLStore) Save(ctx context.Context, g *CachedGeocode) error {
	now := time.Now()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}

	g.UpdatedAt = now

	return s.BulkInsert(ctx, []*CachedGeocode{g})
}

// BulkInsert inserts or replaces rows in a single transaction.
func (s *SQLStore) BulkInsert(ctx context.Context, geocodes []*CachedGeocode) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = errors.Join(err, rErr)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO geocodes(`+geocodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, g := range geocodes {
		if err = g.computeH3(); err != nil {
			return err
		}

		var lat, lng sql.NullFloat64

		var cell sql.NullInt64

		if g.Point != nil {
			lat = sql.NullFloat64{Float64: g.Point.Lat, Valid: true}
			lng = sql.NullFloat64{Float64: g.Point.Lng, Valid: true}
			cell = sql.NullInt64{Int64: g.H3Cell, Valid: true}
		}

		if g.CreatedAt.IsZero() {
			g.CreatedAt = time.Now()
		}

		if g.UpdatedAt.IsZero() {
			g.UpdatedAt = g.CreatedAt
		}

		if _, err = stmt.ExecContext(ctx,
			g.Name,
			g.Region,
			g.Found,
			lat,
			lng,
			g.Confidence,
			g.Provider,
			g.DisplayName,
			g.Message,
			cell,
			g.CreatedAt,
			g.UpdatedAt,
		); err != nil {
			return fmt.Errorf("saving geocode for %s: %w", g.Key(), err)
		}
	}

	return tx.Commit()
}

func (s *SQLStore) list(ctx context.Context, query string, args ...any) ([]*CachedGeocode, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var geocodes []*CachedGeocode

	for rows.Next() {
		var (
			g        CachedGeocode
			lat, lng sql.NullFloat64
			cell     sql.NullInt64
		)

		if err := rows.Scan(
			&g.Name,
			&g.Region,
			&g.Found,
			&lat,
			&lng,
			&g.Confidence,
			&g.Provider,
			&g.DisplayName,
			&g.Message,
			&cell,
			&g.CreatedAt,
			&g.UpdatedAt,
		); err != nil {
			return nil, err
		}

		if lat.Valid && lng.Valid {
			g.Point = &spatial.Point{Lat: lat.Float64, Lng: lng.Float64}
		}

		g.H3Cell = cell.Int64
		geocodes = append(geocodes, &g)
	}

	return geocodes, rows.Err()
}
