package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/deskroute/internal/config"
	deskerrors "github.com/vango-dev/deskroute/internal/errors"
)

func initCmd() *cobra.Command {
	var (
		format string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default configuration file",
		Long: `Write deskroute.yaml (or deskroute.json) with the default settings.

Examples:
  deskroute init
  deskroute init --format=json ./site`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			switch format {
			case "yaml", "json":
			default:
				return deskerrors.Newf(deskerrors.CategoryCLI, "unknown format %q", format).
					WithSuggestion(`Use --format=yaml or --format=json`)
			}

			if config.Exists(dir) && !force {
				return deskerrors.Newf(deskerrors.CategoryCLI, "a deskroute config already exists in %s", dir).
					WithSuggestion("Pass --force to overwrite it")
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}

			path := filepath.Join(dir, config.ConfigName+"."+format)
			if err := config.New().SaveTo(path); err != nil {
				return err
			}

			success("Wrote %s", path)
			info("Set boot.source to your boot data, then run: deskroute serve -c %s", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "Config format: yaml or json")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config")

	return cmd
}
