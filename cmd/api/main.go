package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"folio/api/internal/changefeed"
	"folio/api/internal/config"
	"folio/api/internal/logging"
	"folio/api/internal/store"
)

type cliEnv struct {
	cfg config.Config
	log zerolog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rt := &cliEnv{}

	cmd := &cobra.Command{
		Use:          "api",
		Short:        "Folio page organizer API",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			rt.cfg = config.Load()
			rt.log = logging.New(os.Stderr, rt.cfg.LogLevel, rt.cfg.LogFormat)
		},
		// No subcommand => serve.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rt)
		},
	}

	cmd.AddCommand(
		newServeCmd(rt),
		newMigrateCmd(rt),
		newTreeCmd(rt),
		newReindexCmd(rt),
		newTokenCmd(rt),
	)
	return cmd
}

func migrationsFS(cfg config.Config) fs.FS {
	if strings.TrimSpace(cfg.MigrationsDir) != "" {
		return os.DirFS(cfg.MigrationsDir)
	}
	return store.Migrations()
}

func storeDSN(cfg config.Config, dialect store.Dialect) string {
	if dialect == store.DialectSQLite {
		return cfg.SQLitePath
	}
	return cfg.DatabaseURL
}

// openStore connects to the configured database, applies migrations and
// returns the document store with its change notifier. The returned close
// function releases both.
func openStore(ctx context.Context, rt *cliEnv) (*store.SQLStore, func(), error) {
	dialect, err := store.ParseDialect(rt.cfg.StoreDriver)
	if err != nil {
		return nil, nil, err
	}
	db, err := store.Open(ctx, dialect, storeDSN(rt.cfg, dialect))
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := store.ApplyMigrations(ctx, db, dialect, migrationsFS(rt.cfg)); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations failed: %w", err)
	}

	opts := []store.SQLOption{
		store.WithLogger(rt.log.With().Str("component", "store").Logger()),
		store.WithPollInterval(rt.cfg.PollInterval),
	}
	closers := []func() error{db.Close}
	if strings.TrimSpace(rt.cfg.RedisURL) != "" {
		notifier, err := changefeed.NewRedisNotifier(rt.cfg.RedisURL)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		rt.log.Info().Msg("using redis for change notifications")
		opts = append(opts, store.WithNotifier(notifier))
		closers = append(closers, notifier.Close)
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				rt.log.Warn().Err(err).Msg("close failed")
			}
		}
	}
	return store.NewSQLStore(db, dialect, opts...), closeAll, nil
}
