// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Prints the effective configuration as TOML",
	Long: `
Prints the configuration after defaults, the configuration file and the
environment (RADEX_ADDR, RADEX_CACHE_DB, RADEX_GEOCODER, GOOGLE_MAPS_API_KEY)
have been applied. The Google API key is masked.
`,
	RunE: func(_ *cobra.Command, _ []string) error {
		c := *cfg
		if c.Geocoding.GoogleAPIKey != "" {
			c.Geocoding.GoogleAPIKey = "********"
		}

		data, err := c.Encode()
		if err != nil {
			return err
		}

		_, err = os.Stdout.Write(data)

		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
