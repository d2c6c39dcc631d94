package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/talktojesus/api_server/config"
	"github.com/talktojesus/api_server/internal/database"
	"github.com/talktojesus/api_server/internal/pkg/logger"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	// withMigrator loads config and hands a ready migrator to fn.
	withMigrator := func(fn func(m *migrate.Migrate, log *zap.Logger) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			zlog, err := logger.New(cfg.Log)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer zlog.Sync()

			m, err := database.NewMigrator(&cfg.Database)
			if err != nil {
				zlog.Error("init migrator failed", zap.Error(err))
				return err
			}
			defer m.Close()

			if err := fn(m, zlog); err != nil {
				zlog.Error("migration failed", zap.Error(err))
				return err
			}
			return nil
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withMigrator(func(m *migrate.Migrate, log *zap.Logger) error {
				if err := m.Up(); err != nil {
					if errors.Is(err, migrate.ErrNoChange) {
						log.Info("schema already up to date")
						return nil
					}
					return err
				}
				return logVersion(m, log, "migrated up")
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: withMigrator(func(m *migrate.Migrate, log *zap.Logger) error {
				if err := m.Steps(-1); err != nil {
					return err
				}
				return logVersion(m, log, "rolled back one migration")
			}),
		},
		&cobra.Command{
			Use:   "goto <version>",
			Short: "Migrate up or down to a specific version",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return withMigrator(func(m *migrate.Migrate, log *zap.Logger) error {
					if err := m.Migrate(uint(version)); err != nil && !errors.Is(err, migrate.ErrNoChange) {
						return err
					}
					return logVersion(m, log, "migrated")
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the current schema version",
			RunE: withMigrator(func(m *migrate.Migrate, log *zap.Logger) error {
				return logVersion(m, log, "schema status")
			}),
		},
	)

	return cmd
}

func logVersion(m *migrate.Migrate, log *zap.Logger, msg string) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info(msg, zap.String("version", "none"))
		return nil
	}
	if err != nil {
		return err
	}
	log.Info(msg, zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
