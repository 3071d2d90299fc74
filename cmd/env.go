// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/radex-fr/radex/communes"
	"github.com/radex-fr/radex/config"
	"github.com/radex-fr/radex/explorer"
	"github.com/radex-fr/radex/geocoding"
	"github.com/radex-fr/radex/utils/httputils"
)

// datasetFlags are shared by the commands working on one dataset.
type datasetFlags struct {
	Dataset     string
	Departments []string
}

func (f *datasetFlags) dataset() (explorer.Dataset, error) {
	name := f.Dataset
	if name == "" {
		name = cfg.Data.Default
	}

	return explorer.ParseDataset(name)
}

// load reads the chosen dataset and applies the department filter.
func (f *datasetFlags) load() ([]communes.Record, error) {
	d, err := f.dataset()
	if err != nil {
		return nil, err
	}

	records, err := communes.LoadFile(datasetSources()[d])
	if err != nil {
		return nil, err
	}

	return communes.Filter(records, explorer.NormalizeDepartments(f.Departments)), nil
}

func datasetSources() map[explorer.Dataset]string {
	return map[explorer.Dataset]string{
		explorer.Sample: cfg.Data.Sample,
		explorer.Full:   cfg.Data.Full,
	}
}

// openStore opens the persistent geocode cache, seeding it from the seed
// file when empty. It returns a nil store when no cache database is
// configured.
func openStore(ctx context.Context) (*geocoding.SQLStore, func(), error) {
	path := cfg.Geocoding.CacheDB
	if path == "" {
		return nil, func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening geocode cache: %w", err)
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Printf("⚠️ Closing geocode cache: %v", err)
		}
	}

	store := geocoding.NewSQLStore(db)
	if err := store.CreateSchema(); err != nil {
		closeDB()

		return nil, nil, fmt.Errorf("creating geocode cache schema: %w", err)
	}

	if cfg.Geocoding.SeedFile != "" {
		seeded, n, err := geocoding.SeedIfEmpty(ctx, store, cfg.Geocoding.SeedFile)
		if err != nil {
			closeDB()

			return nil, nil, fmt.Errorf("seeding geocode cache: %w", err)
		}

		if seeded {
			log.Printf("✅ Seeded geocode cache with %d entries from %s", n, cfg.Geocoding.SeedFile)
		}
	}

	return store, closeDB, nil
}

// newGeocoder builds the configured provider behind a paced cache.
func newGeocoder(ctx context.Context, store *geocoding.SQLStore) (*geocoding.Cache, error) {
	var trace io.Writer
	if rootOptions.EnableHTTPTrace || rootOptions.EnableHTTPBodyTrace {
		trace = os.Stderr
	}

	client := httputils.NewClient(httputils.ClientOptions{
		UserAgent: cfg.Geocoding.UserAgent,
		Timeout:   cfg.Geocoding.Timeout(),
		Trace:     trace,
		TraceBody: rootOptions.EnableHTTPBodyTrace,
	})

	var (
		upstream geocoding.Geocoder
		provider string
	)

	switch cfg.Geocoding.Provider {
	case config.ProviderGoogle:
		key := cfg.Geocoding.GoogleAPIKey
		if key == "" {
			log.Println("GOOGLE_MAPS_API_KEY is not set. Attempting to retrieve via ADC...")

			var err error

			key, err = geocoding.APIKeyFromADC(ctx, cfg.Geocoding.GoogleProject, cfg.Geocoding.GoogleKeyName)
			if err != nil {
				return nil, fmt.Errorf("google geocoding needs an API key: %w", err)
			}

			log.Println("✅ Successfully retrieved Google Maps API Key via ADC")
		}

		upstream = geocoding.NewGoogleMapsGeocoder(key, cfg.Geocoding.GoogleURL, client)
		provider = geocoding.ProviderGoogleMaps
	case config.ProviderNominatim:
		upstream = geocoding.NewNominatimGeocoder(cfg.Geocoding.NominatimURL, client)
		provider = geocoding.ProviderNominatim
	default:
		return nil, errors.New("unknown geocoding provider " + cfg.Geocoding.Provider)
	}

	log.Printf("📍 Geocoding: %s, one request every %v", provider, cfg.Geocoding.Delay())

	opts := geocoding.CacheOptions{
		Delay:      cfg.Geocoding.Delay(),
		Provider:   provider,
		RetryAfter: cfg.Geocoding.RetryFailures(),
		Backoff:    cfg.Geocoding.Backoff(),
	}

	// A nil *SQLStore must not become a non-nil Store.
	if store != nil {
		opts.Store = store
	}

	return geocoding.NewCache(upstream, opts), nil
}
