// ABOUTME: MCP server subcommand
// ABOUTME: Serves the client tools on stdio and optionally exposes Prometheus metrics
package cli

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/harperreed/agencycrm/handlers"
)

// MCPCommand starts the MCP server on stdio.
func MCPCommand(ctx context.Context, app *App, version string, args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	metricsAddr := fs.String("metrics-addr", app.Config.Metrics.Addr, "Serve /metrics on this address")
	_ = fs.Parse(args)

	log := app.Logger
	log.Info("Starting agencycrm MCP server", zap.String("version", version))

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.Metrics.Handler())
		srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			log.Info("Serving metrics", zap.String("addr", *metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	server := handlers.NewServer(app.Service, version)
	return server.Run(ctx, &mcp.StdioTransport{})
}
