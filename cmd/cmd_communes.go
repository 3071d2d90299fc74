// Copyright 2025 The Radex Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/radex-fr/radex/communes"
	"github.com/radex-fr/radex/utils/textutils"
	"github.com/spf13/cobra"
)

var communesOptions = &datasetFlags{}

var communesCmd = &cobra.Command{
	Use:   "communes",
	Short: "Access to the commune dataset",
}

var communesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the communes of the selected departments",
	RunE: func(_ *cobra.Command, _ []string) error {
		records, err := communesOptions.load()
		if err != nil {
			return err
		}

		return printCommunes(os.Stdout, records)
	},
}

var communesDepartmentsCmd = &cobra.Command{
	Use:   "departments",
	Short: "Lists the department codes present in the dataset",
	RunE: func(_ *cobra.Command, _ []string) error {
		d, err := communesOptions.dataset()
		if err != nil {
			return err
		}

		records, err := communes.LoadFile(datasetSources()[d])
		if err != nil {
			return err
		}

		fmt.Println(strings.Join(communes.Departments(records), " "))

		return nil
	},
}

var communesExportOptions = struct {
	Out string
}{}

var communesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Exports the selected communes as an Excel workbook",
	RunE: func(_ *cobra.Command, _ []string) (err error) {
		if communesExportOptions.Out == "" {
			return errors.New("--out is required")
		}

		records, err := communesOptions.load()
		if err != nil {
			return err
		}

		f, err := os.Create(communesExportOptions.Out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", communesExportOptions.Out, err)
		}

		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()

		w := bufio.NewWriter(f)
		if err := communes.WriteXLSX(w, records); err != nil {
			return err
		}

		if err := w.Flush(); err != nil {
			return err
		}

		log.Printf("✅ Exported %s communes to %s", textutils.FormatInt(int64(len(records))), communesExportOptions.Out)

		return nil
	},
}

// printCommunes draws records as a box table.
func printCommunes(w io.Writer, records []communes.Record) error {
	const name, dose = 28, 8

	line := func(l, m, r string) string {
		return l + strings.Repeat("─", 7) +
			m + strings.Repeat("─", name+2) +
			m + strings.Repeat("─", 7) +
			strings.Repeat(m+strings.Repeat("─", dose+2), 6) + r + "\n"
	}

	var b strings.Builder

	b.WriteString(line("╭", "┬", "╮"))
	fmt.Fprintf(&b, "│ %-5s │ %-*s │ %-5s │", "INSEE", name, "Commune", "Dept.")

	for _, h := range []string{"Telluric", "Cosmic", "Rn Ind.", "Rn Col.", "Fallout", "Total"} {
		fmt.Fprintf(&b, " %*s │", dose, h)
	}

	b.WriteString("\n")
	b.WriteString(line("├", "┼", "┤"))

	for _, r := range records {
		fmt.Fprintf(&b, "│ %-5.5s │ %-*.*s │ %-5.5s │", r.InseeCode, name, name, r.Name, r.Department)

		doses := r.Components()
		for _, d := range append(doses[:], r.Total) {
			fmt.Fprintf(&b, " %*s │", dose, d)
		}

		b.WriteString("\n")
	}

	b.WriteString(line("╰", "┴", "╯"))
	fmt.Fprintf(&b, "%s communes\n", textutils.FormatInt(int64(len(records))))

	_, err := io.WriteString(w, b.String())

	return err
}

func addDatasetFlags(cmd *cobra.Command, flags *datasetFlags) {
	cmd.Flags().StringVar(
		&flags.Dataset,
		"dataset",
		"",
		"Dataset to read: sample or full (defaults to the configured data.default)",
	)
	cmd.Flags().StringSliceVarP(
		&flags.Departments,
		"department",
		"d",
		nil,
		"Department code to keep; repeatable. All departments when empty",
	)
}

func init() {
	rootCmd.AddCommand(communesCmd)
	communesCmd.AddCommand(communesListCmd)
	communesCmd.AddCommand(communesDepartmentsCmd)
	communesCmd.AddCommand(communesExportCmd)

	addDatasetFlags(communesListCmd, communesOptions)
	addDatasetFlags(communesExportCmd, communesOptions)
	communesDepartmentsCmd.Flags().StringVar(
		&communesOptions.Dataset,
		"dataset",
		"",
		"Dataset to read: sample or full",
	)

	communesExportCmd.Flags().StringVarP(
		&communesExportOptions.Out,
		"out",
		"o",
		"",
		"Destination .xlsx file",
	)
}
