package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	deskerrors "github.com/vango-dev/deskroute/internal/errors"
	"github.com/vango-dev/deskroute/pkg/location"
	"github.com/vango-dev/deskroute/pkg/server"
)

func resolveCmd() *cobra.Command {
	var (
		bootSpec string
		hash     bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <path>...",
		Short: "Resolve desk paths to routes",
		Long: `Resolve desk paths against the boot data and print the routes as JSON.

Paths may be desk URLs, legacy hashes or bare sub-paths.

Examples:
  deskroute resolve /app/todo
  deskroute resolve --boot boot.yaml /app/quick-todo/TODO-0001 '#List/ToDo'
  deskroute resolve --hash todo/view/report`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return deskerrors.New(deskerrors.CodeArgumentsRequired).
					WithDetail("resolve needs at least one path").
					WithExample("deskroute resolve /app/todo")
			}
			return nil
		},
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

			mode := cfg.Mode()
			if hash {
				mode = location.ModeHash
			}

			reg := data.Registry()
			out := make([]server.Resolution, 0, len(args))
			for _, path := range args {
				out = append(out, server.Resolve(reg, mode, path, logger))
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVarP(&bootSpec, "boot", "b", "", "Boot data source: file path or s3://bucket/key (default: boot.source)")
	cmd.Flags().BoolVar(&hash, "hash", false, "Resolve in hash mode")

	return cmd
}
