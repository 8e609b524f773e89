package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nova-rewards/config"
	"nova-rewards/handlers"
	"nova-rewards/middleware"
	"nova-rewards/models"
	"nova-rewards/services"
	"nova-rewards/utils"
	"nova-rewards/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nova-rewards",
		Short:         "Gamification, rewards and recurring task service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedShopCmd(), versionCmd())
	return root
}

// bootstrap loads config and the logger shared by every command.
func bootstrap() (config.Config, *utils.Logger, error) {
	foundEnv := config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := utils.NewLogger(cfg.LogMode)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	if !foundEnv {
		log.Warn("⚠️ no .env file found, reading environment variables directly")
	}
	return cfg, log, nil
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	db, err := utils.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if err := models.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			log.Info("✅ database migrated")
			return nil
		},
	}
}

func seedShopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-shop",
		Short: "Upsert the built-in shop catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			shop := services.NewShopService(db, nil, services.ClockIn(cfg.Location), log, nil)
			n, err := shop.Seed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d shop items\n", n)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func serveCmd() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()
			if err := cfg.RequireServe(); err != nil {
				return err
			}
			return serve(cfg, log, skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not run AutoMigrate on startup")
	return cmd
}

func serve(cfg config.Config, log *utils.Logger, skipMigrate bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	if !skipMigrate {
		if err := models.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := utils.NewMetrics(registry)

	var notifier services.Notifier = services.NopNotifier{}
	if cfg.RedisAddr != "" {
		rn, err := utils.NewRedisNotifier(ctx, log, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rn.Close()
		notifier = rn
	}

	var store services.ObjectStore
	if cfg.BackupEnabled() {
		r2, err := utils.NewR2Store(ctx, cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2AccessKeySecret, cfg.R2Bucket)
		if err != nil {
			return fmt.Errorf("init R2: %w", err)
		}
		store = r2
	}

	clock := services.ClockIn(cfg.Location)
	ledger := services.NewLedgerService(db, clock, log, metrics)
	xp := services.NewExperienceService(db, ledger, clock, log, metrics)
	achievements := services.NewAchievementService(db, xp, ledger, clock, log, metrics)
	scheduler := services.NewSchedulerService(db, clock, log, metrics)
	shop := services.NewShopService(db, ledger, clock, log, metrics)

	if _, err := shop.Seed(ctx); err != nil {
		return err
	}

	if cfg.SweepInterval > 0 {
		if _, err := workers.NewRecurringSweep(scheduler, log).Start(ctx, cfg.SweepInterval); err != nil {
			return fmt.Errorf("start recurring sweep: %w", err)
		}
	}

	app := fiber.New(fiber.Config{
		AppName:               "nova-rewards",
		DisableStartupMessage: true,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// unauthenticated, for probes and scraping
	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "db unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// 🔐 everything below must come from the Gateway
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, log))

	handlers.SetupRoutes(app, handlers.Services{
		Progress: services.NewProgressService(db, achievements, log),
		Daily:    services.NewDailyRewardService(db, ledger, notifier, clock, log, metrics),
		Actions:  services.NewActionService(db, xp, ledger, achievements, notifier, clock, log),
		Ledger:   ledger,
		Tasks:    services.NewTaskService(db, scheduler, clock, log),
		Goals:    services.NewGoalService(db, clock),
		Shop:     shop,
		Backup:   services.NewBackupService(db, store, clock, log),
	}, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + cfg.Port)
	}()

	log.Info("✅ server running",
		"port", cfg.Port,
		"timezone", cfg.Location.String(),
		"cors_origins", cfg.AllowedOrigins,
		"redis", cfg.RedisAddr != "",
		"backups", store != nil,
		"sweep_interval", cfg.SweepInterval.String(),
	)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Info("shutting down server...")
	return app.ShutdownWithTimeout(10 * time.Second)
}
