// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/radex-fr/radex/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLStore {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewSQLStore(db)
	require.NoError(t, store.CreateSchema())

	return store
}

func TestCreateSchema(t *testing.T) {
	store := setupTestStore(t)

	var tableName string

	err := store.DB().QueryRow("SELECT table_name FROM information_schema.tables WHERE table_name = 'geocodes'").Scan(&tableName)
	require.NoError(t, err)
	assert.Equal(t, "geocodes", tableName)

	// Idempotent.
	require.NoError(t, store.CreateSchema())
}

func TestStorePutAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	key := NewKey("Sceaux", "92")
	sceaux := Entry{Result: &Result{
		Point:       spatial.Point{Lat: 48.7765, Lng: 2.2903},
		Confidence:  "high",
		Provider:    ProviderNominatim,
		DisplayName: "Sceaux, Hauts-de-Seine",
	}}

	require.NoError(t, store.Put(ctx, key, sceaux))

	got, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, got.Result)
	assert.Equal(t, *sceaux.Result, *got.Result)

	row, err := store.Find(ctx, key)
	require.NoError(t, err)

	wantCell, err := sceaux.Result.Point.Cell()
	require.NoError(t, err)
	assert.Equal(t, wantCell, row.H3Cell)
	assert.False(t, row.CreatedAt.IsZero())

	_, ok, err = store.Get(ctx, NewKey("Sceaux", "75"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreNotFoundAndReplace(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	key := NewKey("Atlantis", "92")

	require.NoError(t, store.Put(ctx, key, Entry{Err: NotFound("Atlantis, 92, France")}))

	got, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, got.Result)
	assert.True(t, IsNotFound(got.Err))
	assert.Contains(t, got.Err.Error(), "Atlantis")

	require.NoError(t, store.Put(ctx, key, Entry{Result: &Result{Point: spatial.Point{Lat: 47, Lng: 2}}}))

	got, _, err = store.Get(ctx, key)
	require.NoError(t, err)
	require.NoError(t, got.Err)
	assert.InDelta(t, 47, got.Result.Point.Lat, 1e-9)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStoreRejectsTransientFailures(t *testing.T) {
	store := setupTestStore(t)

	err := store.Put(context.Background(), NewKey("Sceaux", "92"), Entry{Err: &GeocodingError{Type: ErrorTypeRateLimit}})
	require.Error(t, err)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCacheWithSQLStoreSurvivesRestart(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	fake := newFakeGeocoder()
	_, err := NewCache(fake, CacheOptions{Store: store}).Geocode(ctx, "Sceaux", "92")
	require.NoError(t, err)
	_, err = NewCache(fake, CacheOptions{Store: store}).Geocode(ctx, "Atlantis", "92")
	require.True(t, IsNotFound(err))

	// A new cache over the same store doesn't ask upstream again.
	again := NewCache(fake, CacheOptions{Store: store})

	res, err := again.Geocode(ctx, "sceaux", "92")
	require.NoError(t, err)
	assert.InDelta(t, 48.7765, res.Point.Lat, 1e-9)

	_, err = again.Geocode(ctx, "Atlantis", "92")
	assert.True(t, IsNotFound(err))

	assert.Equal(t, 2, fake.callCount())
	assert.Zero(t, again.Lookups())
}

func TestSeedRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := setupTestStore(t)

	require.NoError(t, src.Put(ctx, NewKey("Sceaux", "92"), Entry{Result: &Result{Point: spatial.Point{Lat: 48.7765, Lng: 2.2903}, Provider: "seed"}}))
	require.NoError(t, src.Put(ctx, NewKey("Atlantis", "92"), Entry{Err: NotFound("Atlantis")}))

	path := filepath.Join(t.TempDir(), "geocodes.json")

	n, err := ExportToJSON(ctx, src, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst := setupTestStore(t)

	seeded, n, err := SeedIfEmpty(ctx, dst, path)
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Equal(t, 2, n)

	rows, err := dst.All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "atlantis", rows[0].Name)
	assert.False(t, rows[0].Found)
	assert.Equal(t, "sceaux", rows[1].Name)
	require.NotNil(t, rows[1].Point)
	assert.NotZero(t, rows[1].H3Cell)

	seeded, n, err = SeedIfEmpty(ctx, dst, path)
	require.NoError(t, err)
	assert.False(t, seeded)
	assert.Equal(t, 2, n)

	seeded, _, err = SeedIfEmpty(ctx, setupTestStore(t), filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.False(t, seeded)
}
