// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/radex-fr/radex/geocoding"
	"github.com/spf13/cobra"
)

var cacheOptions = struct {
	File string
}{}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manages the persistent geocode cache",
}

// withStore runs fn against the configured cache database.
func withStore(ctx context.Context, fn func(*geocoding.SQLStore) error) error {
	store, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if store == nil {
		return errors.New("no cache database configured (geocoding.cache_db)")
	}

	return fn(store)
}

func cacheFile() string {
	if cacheOptions.File != "" {
		return cacheOptions.File
	}

	return cfg.Geocoding.SeedFile
}

var cacheExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Writes every cached geocode to a JSON seed file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		return withStore(ctx, func(store *geocoding.SQLStore) error {
			n, err := geocoding.ExportToJSON(ctx, store, cacheFile())
			if err != nil {
				return err
			}

			fmt.Printf("✅ Exported %d geocodes to %s\n", n, cacheFile())

			return nil
		})
	},
}

var cacheImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Loads a JSON seed file into the cache",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		return withStore(ctx, func(store *geocoding.SQLStore) error {
			n, err := geocoding.ImportFromJSON(ctx, store, cacheFile())
			if err != nil {
				return err
			}

			fmt.Printf("✅ Imported %d geocodes from %s\n", n, cacheFile())

			return nil
		})
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Counts the cached geocodes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		return withStore(ctx, func(store *geocoding.SQLStore) error {
			all, err := store.All(ctx)
			if err != nil {
				return err
			}

			var found int

			for _, g := range all {
				if g.Found {
					found++
				}
			}

			fmt.Printf("📦 %d geocodes cached in %s: %d found, %d not found\n",
				len(all), cfg.Geocoding.CacheDB, found, len(all)-found)

			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheExportCmd)
	cacheCmd.AddCommand(cacheImportCmd)
	cacheCmd.AddCommand(cacheStatsCmd)

	cacheCmd.PersistentFlags().StringVar(
		&cacheOptions.File,
		"file",
		"",
		"Seed file (defaults to the configured geocoding.seed_file)",
	)
}
