package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func routesCmd() *cobra.Command {
	var (
		bootSpec string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the registered slugs",
		Long: `List every slug of the boot data with the doctype it addresses.

Examples:
  deskroute routes
  deskroute routes --boot s3://desk-config/boot.yaml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := cfg.NewLogger(os.Stderr)

			data, _, err := loadBoot(cmd.Context(), cfg, bootSpec, logger)
			if err != nil {
				return err
			}
			reg := data.Registry()

			type row struct {
				Slug    string `json:"slug"`
				DocType string `json:"doctype"`
				Layout  string `json:"layout,omitempty"`
			}
			rows := make([]row, 0, reg.Len())
			for _, slug := range reg.Slugs() {
				entry, _ := reg.Lookup(slug)
				rows = append(rows, row{Slug: slug, DocType: entry.DocType, Layout: entry.Layout})
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLUG\tDOCTYPE\tLAYOUT")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Slug, r.DocType, r.Layout)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&bootSpec, "boot", "b", "", "Boot data source: file path or s3://bucket/key (default: boot.source)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	return cmd
}
