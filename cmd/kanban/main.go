// Command kanban serves the board API and the bundled frontend.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kanban/internal/config"
	"kanban/internal/server"
	"kanban/internal/service"
	"kanban/internal/storage"
	"kanban/internal/storage/jsonfile"
	"kanban/internal/storage/memory"
	"kanban/internal/storage/sqlite"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "kanban",
		Short:         "Kanban board server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand())
	return root
}

type serveFlags struct {
	config  string
	addr    string
	storage string
	db      string
	static  string
}

func newServeCommand() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&f.config, "config", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&f.addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&f.storage, "storage", "", "Storage driver: memory, sqlite or json")
	cmd.Flags().StringVar(&f.db, "db", "", "Path to the sqlite database or JSON store file")
	cmd.Flags().StringVar(&f.static, "static", "", "Directory with built frontend")
	return cmd
}

// resolve loads the config file and environment, then applies flags the
// user set explicitly.
func (f serveFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Addr = f.addr
	}
	if flags.Changed("storage") {
		cfg.Storage.Driver = f.storage
	}
	if flags.Changed("db") {
		cfg.Storage.Path = f.db
	}
	if flags.Changed("static") {
		cfg.StaticDir = f.static
	}
	return cfg, cfg.Validate()
}

// openRepository opens the storage backend selected by cfg.
func openRepository(cfg config.Storage, logger *slog.Logger) (storage.Repository, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverSQLite:
		return sqlite.Open(cfg.Path, logger)
	case config.DriverJSON:
		return jsonfile.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger := cfg.NewLogger(os.Stdout)
	logger.Info("kanban server", slog.String("version", version), slog.String("storage", cfg.Storage.Driver))

	repo, err := openRepository(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer repo.Close()

	svc := service.New(repo, service.Options{Logger: logger})
	srv := server.New(svc, logger, cfg.StaticDir)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped unexpectedly: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
	return nil
}
