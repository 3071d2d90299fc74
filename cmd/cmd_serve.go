// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/radex-fr/radex/explorer"
	"github.com/radex-fr/radex/mapview"
	"github.com/spf13/cobra"
)

var serveOptions = struct {
	Addr    string
	Dataset string
}{}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the interactive explorer",
	Long: `
Starts the web explorer: a department filter, the commune table, a colored
map of the located communes and an xlsx export of the current selection.
Every browser keeps its own view state.
`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		addr := cfg.Server.Addr
		if serveOptions.Addr != "" {
			addr = serveOptions.Addr
		}

		datasetName := cfg.Data.Default
		if serveOptions.Dataset != "" {
			datasetName = serveOptions.Dataset
		}

		dataset, err := explorer.ParseDataset(datasetName)
		if err != nil {
			return err
		}

		gradient, err := cfg.Map.Gradient()
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

		if !cfg.Server.DevMode {
			gin.SetMode(gin.ReleaseMode)
		}

		mapOptions := mapview.DefaultOptions()
		mapOptions.Gradient = gradient

		app := explorer.NewApp(explorer.AppOptions{
			Sources:  datasetSources(),
			Geocoder: geocoder,
			Map:      mapOptions,
		})

		server, err := explorer.NewServer(app, explorer.ServerOptions{
			Addr:           addr,
			DefaultDataset: dataset,
		})
		if err != nil {
			return err
		}

		fmt.Println("☢️  " + explorer.Title)
		fmt.Printf("🌍 Listening on http://%s (%s dataset)\n", addr, dataset)

		return server.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(
		&serveOptions.Addr,
		"addr",
		"",
		"Listen address (defaults to the configured server.addr)",
	)
	serveCmd.Flags().StringVar(
		&serveOptions.Dataset,
		"dataset",
		"",
		"Dataset shown to new visitors: sample or full",
	)
}
