// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/radex-fr/radex/geocoding"
	"github.com/radex-fr/radex/utils/textutils"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <commune> <department>",
	Short: "Locates one commune",
	Long: `
Looks a commune up with the configured provider, going through the persistent
cache first. The department narrows the search; it is the code as printed in
the dataset, e.g. "92".
`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, closeStore, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		geocoder, err := newGeocoder(ctx, store)
		if err != nil {
			return err
		}

		result, err := geocoder.Geocode(ctx, args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Printf("📍 %s\n", result.Point)
		fmt.Printf("   %s\n", result.DisplayName)
		fmt.Printf("   provider=%s confidence=%s\n", result.Provider, result.Confidence)

		if cell, err := result.Point.Cell(); err == nil {
			fmt.Printf("   h3=%x\n", cell)
		}

		return nil
	},
}

var geocodeBatchOptions = &datasetFlags{}

var geocodeBatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Locates every commune of the selected departments",
	Long: `
Warms the persistent cache: every commune of the selected departments is
looked up, one request at a time at the configured pace. Failures are
reported and skipped.
`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		records, err := geocodeBatchOptions.load()
		if err != nil {
			return err
		}

		store, closeStore, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		geocoder, err := newGeocoder(ctx, store)
		if err != nil {
			return err
		}

		queries := make([]geocoding.Query, len(records))
		for i, r := range records {
			queries[i] = geocoding.Query{Name: r.Name, Region: r.Department}
		}

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(queries),
				progressbar.OptionSetDescription("Geocoding"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}

		outcomes := geocoding.Batch(ctx, geocoder, queries, func(done, total int, q geocoding.Query, err error) {
			if bar != nil {
				if err := bar.Add(1); err != nil {
					log.Printf("Error updating progress bar: %v", err)
				}
			} else {
				log.Printf("[%d/%d] Geocoding: %s", done, total, q.Name)
			}

			if err != nil && !geocoding.IsNotFound(err) && !geocoding.IsThrottled(err) {
				log.Printf("⚠️ %s: %v", q.Name, err)
			}
		})

		var found, notFound, throttled, failed int

		for _, o := range outcomes {
			switch {
			case o.Found():
				found++
			case geocoding.IsNotFound(o.Err):
				notFound++
			case geocoding.IsThrottled(o.Err):
				throttled++
			default:
				failed++
			}
		}

		fmt.Printf("✅ %s located, %s not found, %s failed (%s upstream lookups)\n",
			textutils.FormatInt(int64(found)),
			textutils.FormatInt(int64(notFound)),
			textutils.FormatInt(int64(failed)),
			textutils.FormatInt(int64(geocoder.Lookups())),
		)

		if throttled > 0 {
			return fmt.Errorf("%s communes skipped, the geocoding service is throttling requests; run the batch again later",
				textutils.FormatInt(int64(throttled)))
		}

		return ctx.Err()
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
	geocodeCmd.AddCommand(geocodeBatchCmd)

	addDatasetFlags(geocodeBatchCmd, geocodeBatchOptions)
}
