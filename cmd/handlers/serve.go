package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"audiencelens/internal/config"
	"audiencelens/internal/logger"
	"audiencelens/internal/server"
)

const shutdownTimeout = 15 * time.Second

// NewServeCmd creates the serve command for starting the HTTP server
func NewServeCmd() *cobra.Command {
	var (
		port   int
		host   string
		withDB bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP clustering API",
		Long: `Start the audiencelens HTTP API.

Endpoints:
  • POST /api/clusters  - cluster inline posts, or database posts with "source": "database"
  • GET  /health        - health check (includes the database when configured)
  • GET  /api/status    - version, uptime and supported algorithms

Examples:
  # Start server on default port 8080
  audiencelens serve

  # Start on custom port with database-backed requests enabled
  audiencelens serve --port 3000 --with-db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host, withDB)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")
	cmd.Flags().BoolVar(&withDB, "with-db", false, "Connect the configured database as a post source")

	return cmd
}

func runServe(ctx context.Context, port int, host string, withDB bool) error {
	log := logger.Get()
	cfg := config.Get()

	// Override server config from flags if provided
	serverCfg := config.GetServer()
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	normalizer := newNormalizer(cfg)
	opts := []server.Option{server.WithVersion(Version)}

	if dbCfg := config.GetDatabase(); withDB || dbCfg.ConnectionString != "" {
		log.Info("Connecting to database", "driver", dbCfg.Driver, "table", dbCfg.Table)
		db, err := openDatabaseSource(ctx, cfg, normalizer)
		if err != nil {
			return err
		}
		defer db.Close()
		log.Info("Database connection successful")
		opts = append(opts, server.WithSource(db))
	}

	srv := server.New(newAnalyzer(cfg), normalizer, serverCfg, opts...)

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		log.Info(fmt.Sprintf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port))
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	// Block until we receive our signal or an error from server
	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case sig := <-shutdown:
		log.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", "error", err)
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		log.Info("Server stopped successfully")
	}

	return nil
}
