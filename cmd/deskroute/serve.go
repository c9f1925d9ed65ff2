package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/deskroute/pkg/boot"
	"github.com/vango-dev/deskroute/pkg/middleware"
	"github.com/vango-dev/deskroute/pkg/router"
	"github.com/vango-dev/deskroute/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		port     int
		host     string
		bootSpec string
		watch    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve router sessions",
		Long: `Serve desk router sessions over WebSocket.

Each connection to /ws gets its own router. /api/resolve and
/api/routes expose the current registry and /metrics the
Prometheus metrics. With --watch a file boot source is reloaded
on change and live sessions re-resolve against it.

Examples:
  deskroute serve
  deskroute serve --port=9000 --boot=boot.yaml --watch
  deskroute serve --boot=s3://desk-config/boot.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("watch") {
				cfg.Boot.Watch = watch
			}
			logger := cfg.NewLogger(os.Stderr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			data, src, err := loadBoot(ctx, cfg, bootSpec, logger)
			if err != nil {
				return err
			}

			var mw []router.Middleware
			serverConfig := &server.ServerConfig{
				Address: cfg.Address(),
				SessionConfig: &server.SessionConfig{
					Mode:        cfg.Mode(),
					SettleDelay: cfg.Router.SettleDelay,
				},
			}
			if cfg.Metrics.Enabled {
				mw = append(mw, middleware.Prometheus(middleware.WithNamespace(cfg.Metrics.Namespace)))
				serverConfig.MetricsHandler = promhttp.Handler()
			}
			if cfg.Tracing.Enabled {
				mw = append(mw, middleware.OpenTelemetry(middleware.WithTracerName(cfg.Tracing.TracerName)))
			}
			serverConfig.Middleware = mw

			srv := server.New(serverConfig, logger)
			srv.SetRegistry(data.Registry())

			if cfg.Boot.Watch {
				startWatch(ctx, srv, src)
			}

			success("Serving desk routes on http://%s", cfg.Address())
			info("Boot data: %s (%d doctypes)", src.Name(), len(data.CanRead))
			return srv.Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default: server.port)")
	cmd.Flags().StringVar(&host, "host", "", "Host to bind to (default: server.host)")
	cmd.Flags().StringVarP(&bootSpec, "boot", "b", "", "Boot data source: file path or s3://bucket/key (default: boot.source)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload a file boot source when it changes")

	return cmd
}

// startWatch reloads a file boot source into srv until ctx is done.
func startWatch(ctx context.Context, srv *server.Server, src boot.Source) {
	fsrc, ok := src.(boot.FileSource)
	if !ok {
		srv.Logger().Warn("boot watching needs a file source", "source", src.Name())
		return
	}

	go func() {
		err := boot.Watch(ctx, fsrc.Path, func(data *boot.Data) {
			srv.SetRegistry(data.Registry())
		}, boot.WithWatchLogger(srv.Logger()))
		if err != nil {
			srv.Logger().Error("boot watcher stopped", "path", fsrc.Path, "error", err)
		}
	}()
}
