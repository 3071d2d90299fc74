// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/radex-fr/radex/config"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

type rootFlags struct {
	ConfigPath          string
	EnableHTTPTrace     bool
	EnableHTTPBodyTrace bool
}

var (
	rootOptions = &rootFlags{}

	// cfg is loaded before any command runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "radex",
	Short: "French population exposure to ionizing radiation, per commune",
	Long: `
radex explores the commune-level dataset on the exposure of the French
population to ionizing radiation (telluric, cosmic, radon, and fallout from
atmospheric nuclear tests and Chernobyl): filter it per department, place the
communes on a map and compare their total annual dose.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// A missing .env is the common case.
		_ = godotenv.Load(".env")

		c, err := config.Load(rootOptions.ConfigPath)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		cfg = c

		return nil
	},
}

var Version = "dev"

func Execute(version string) {
	Version = version
	rootCmd.Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&rootOptions.ConfigPath,
		"config",
		"",
		"Configuration file (defaults to "+config.DefaultFile+" when present)",
	)
	rootCmd.PersistentFlags().BoolVar(
		&rootOptions.EnableHTTPTrace,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
	rootCmd.PersistentFlags().BoolVar(
		&rootOptions.EnableHTTPBodyTrace,
		"trace-http-body",
		false,
		"Display HTTP requests-responses bodies",
	)
}
