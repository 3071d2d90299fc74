// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SeedData represents the JSON seed file format.
type SeedData struct {
	Version     string           `json:"version"`
	LastUpdated time.Time        `json:"last_updated"`
	Geocodes    []*CachedGeocode `json:"geocodes"`
}

// ExportToJSON writes every stored geocode to a JSON file.
func ExportToJSON(ctx context.Context, store *SQLStore, filepath string) (int, error) {
	geocodes, err := store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing geocodes: %w", err)
	}

	seed := &SeedData{
		Version:     "1.0",
		LastUpdated: time.Now(),
		Geocodes:    geocodes,
	}

	data, err := json.MarshalIndent(seed, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshaling JSON: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0o600); err != nil {
		return 0, fmt.Errorf("writing file: %w", err)
	}

	return len(geocodes), nil
}

// ImportFromJSON loads geocodes from a JSON file, replacing rows with the
// same key.
func ImportFromJSON(ctx context.Context, store *SQLStore, filepath string) (int, error) {
	data, err := os.ReadFile(filepath) // #nosec G304 - filepath is provided by admin
	if err != nil {
		return 0, fmt.Errorf("reading file: %w", err)
	}

	var seed SeedData
	if err := json.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("parsing JSON: %w", err)
	}

	for _, g := range seed.Geocodes {
		if g.Found && g.Point == nil {
			return 0, fmt.Errorf("geocode for %s is found but has no point", g.Key())
		}
	}

	if err := store.BulkInsert(ctx, seed.Geocodes); err != nil {
		return 0, fmt.Errorf("saving geocodes: %w", err)
	}

	return len(seed.Geocodes), nil
}

// SeedIfEmpty imports the seed file when the store has no rows. A missing
// seed file is not an error.
func SeedIfEmpty(ctx context.Context, store *SQLStore, filepath string) (bool, int, error) {
	count, err := store.Count(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("counting geocodes: %w", err)
	}

	if count > 0 {
		return false, count, nil
	}

	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return false, 0, nil
	}

	imported, err := ImportFromJSON(ctx, store, filepath)
	if err != nil {
		return false, 0, err
	}

	return true, imported, nil
}
