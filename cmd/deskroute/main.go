package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/deskroute/internal/config"
	deskerrors "github.com/vango-dev/deskroute/internal/errors"
	"github.com/vango-dev/deskroute/pkg/boot"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// configFile is the --config flag shared by all commands.
var configFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		deskerrors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deskroute",
		Short: "Desk URL routing: resolve, inspect and serve desk routes",
		Long: `deskroute maps desk URLs such as /app/todo/view/report to
structured routes and back.

It resolves paths against the boot data of a desk (readable doctypes,
doctype layouts, singles and workspaces), lists the registered slugs,
and serves router sessions over WebSocket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: deskroute.{json,yaml} in the project root)")

	rootCmd.AddCommand(
		resolveCmd(),
		routesCmd(),
		serveCmd(),
		initCmd(),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig loads and validates the configuration selected by --config.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bootSource opens ref. Relative file paths are taken relative to the
// config file's directory.
func bootSource(cfg *config.Config, ref string) (boot.Source, error) {
	src, err := boot.OpenSource(ref, cfg.Boot.S3Region, nil)
	if err != nil {
		return nil, err
	}
	if fsrc, ok := src.(boot.FileSource); ok && !filepath.IsAbs(fsrc.Path) && cfg.Dir() != "" {
		src = boot.FileSource{Path: filepath.Join(cfg.Dir(), fsrc.Path)}
	}
	return src, nil
}

// loadBoot loads the boot data named by ref, or by the config when ref
// is empty. A missing default boot file yields empty boot data.
func loadBoot(ctx context.Context, cfg *config.Config, ref string, logger *slog.Logger) (*boot.Data, boot.Source, error) {
	explicit := ref != ""
	if !explicit {
		ref = cfg.Boot.Source
	}

	src, err := bootSource(cfg, ref)
	if err != nil {
		return nil, nil, err
	}

	data, err := boot.Load(ctx, src)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			logger.Warn("boot data not found, using an empty registry", "source", src.Name())
			return &boot.Data{}, src, nil
		}
		return nil, nil, err
	}
	return data, src, nil
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
