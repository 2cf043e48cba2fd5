package cli

import (
	"context"
	"fmt"
	"time"

	"tutorinminutes-backend/cmd/bootstrap"
	"tutorinminutes-backend/config"
	"tutorinminutes-backend/internal/infrastructure/cache"
	"tutorinminutes-backend/internal/infrastructure/database"
	"tutorinminutes-backend/internal/repository"
	"tutorinminutes-backend/internal/seed"
	"tutorinminutes-backend/internal/service"

	"github.com/spf13/cobra"
)

// NewServeCmd creates the 'serve' command.
func NewServeCmd() *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			bootstrap.SetupLogger(cfg.App)

			if migrateFirst {
				if err := database.MigrateUp(cfg.DB); err != nil {
					return err
				}
			}

			app, err := bootstrap.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return app.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "Apply pending migrations before serving")
	return cmd
}

// NewMigrateCmd creates the 'migrate' command with up and down subcommands.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServerConfig()
			if err != nil {
				return err
			}
			return database.MigrateUp(cfg.DB)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1, got %d", steps)
			}
			cfg, err := loadServerConfig()
			if err != nil {
				return err
			}
			return database.MigrateDown(cfg.DB, steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}

// NewSeedCmd creates the 'seed' command.
func NewSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo tutor catalog into the database",
		Long: `Upserts the demo tutors by id, so running it twice is safe.
The cached catalog is dropped when Redis is reachable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServerConfig()
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg)
		},
	}
}

func runSeed(ctx context.Context, cfg *config.Config) error {
	log := bootstrap.SetupLogger(cfg.App)

	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	var invalidator seed.CacheInvalidator
	redisCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if rdb, err := cache.NewRedisClient(redisCtx, cfg.Redis); err != nil {
		log.Warnf("Redis unavailable, catalog cache not invalidated: %v", err)
	} else {
		defer rdb.Close()
		invalidator = service.NewCatalogCache(rdb, cfg.Catalog.CacheTTL)
	}

	auditService := service.NewAuditService(log, repository.NewAuditLogRepository())
	seeder := seed.NewSeeder(db, log, repository.NewTutorRepository(), auditService, invalidator)

	_, err = seeder.Run(ctx, seed.Tutors())
	return err
}

func loadServerConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	bootstrap.SetupLogger(cfg.App)
	return cfg, nil
}
