package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/example/class-scheduler/internal/application"
	"github.com/example/class-scheduler/internal/config"
	"github.com/example/class-scheduler/internal/holiday"
	httptransport "github.com/example/class-scheduler/internal/http"
	"github.com/example/class-scheduler/internal/logging"
	"github.com/example/class-scheduler/internal/persistence/sqlite"
	"github.com/example/class-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/class-scheduler/internal/recurrence"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "scheduler",
		Short:         "Class session scheduling service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newPlanCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Apply migrations and serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				return a.serve(cmd.Context())
			})
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				status, err := a.storage.MigrationStatus(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version %s, %d pending\n", status.CurrentVersion, status.PendingCount)
				return nil
			})
		},
	}
}

func newPlanCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Preview a batch against the stored schedule without saving it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, closeFn, err := openInput(cmd, file)
			if err != nil {
				return err
			}
			defer closeFn()

			input, err := httptransport.DecodeBatchInput(in)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				result, err := a.sessions.PlanBatch(cmd.Context(), input)
				if err != nil {
					return err
				}
				return httptransport.EncodeManifest(cmd.OutOrStdout(), result)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "batch JSON file, - for stdin")
	return cmd
}

func openInput(cmd *cobra.Command, file string) (io.Reader, func(), error) {
	if file == "" || file == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, fmt.Errorf("open batch file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// app holds the wired services for one command invocation.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	storage  *sqlite.Storage
	calendar *holiday.CachedCalendar
	sessions *application.SessionService
	holidays *application.HolidayService
}

// withApp loads configuration, opens and migrates storage, runs fn and closes
// storage again. Errors are logged before being returned.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		slog.Error("failed to build logger", "error", err)
		return err
	}

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return err
	}
	defer func() {
		if cerr := a.storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := fn(a); err != nil {
		logger.Error("command failed", "command", cmd.Name(), "error", err, "error_kind", application.ErrorKind(err))
		return err
	}
	return nil
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLitePath), logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	holidayRepo := newHolidayRepositoryAdapter(storage.Holidays)
	calendar, err := holiday.NewCachedCalendar(holidayRepo, cfg.HolidayCacheSize, logger)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	engine := recurrence.NewEngine(cfg.Location(), recurrence.WithCeiling(cfg.ExpansionCeiling))
	sessions := application.NewSessionServiceWithLogger(
		newSessionRepositoryAdapter(storage.Sessions),
		calendar,
		engine,
		nil,
		time.Now,
		logger,
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		storage:  storage,
		calendar: calendar,
		sessions: sessions,
		holidays: application.NewHolidayService(holidayRepo, calendar, logger),
	}, nil
}

func (a *app) handler() http.Handler {
	return httptransport.NewRouter(httptransport.RouterConfig{
		Batches:  httptransport.NewBatchHandler(a.sessions, a.logger),
		Sessions: httptransport.NewSessionHandler(a.sessions, a.logger),
		Holidays: httptransport.NewHolidayHandler(a.holidays, a.logger),
		Health:   a.storage.Ping,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(a.logger),
			httptransport.Recoverer(a.logger),
		},
	})
}

func (a *app) serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.HTTPPort),
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("failed to shutdown server", "error", err)
		}
	}()

	a.logger.Info("scheduler API listening", "addr", server.Addr, "timezone", a.cfg.Location().String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	<-shutdownDone
	a.logger.Info("scheduler API stopped")
	return nil
}
