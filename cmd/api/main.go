package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-inventory-pos/internal/config"
	"go-inventory-pos/internal/handler"
	"go-inventory-pos/internal/middleware"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/service"
	"go-inventory-pos/internal/ws"
	"go-inventory-pos/pkg/database"
	"go-inventory-pos/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load Env
	cfg, envLoaded, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.IsProduction())
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	if !envLoaded {
		log.Warn(".env file not found, relying on system env")
	}

	// Prices go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	// 2. Setup Database
	db, err := database.Connect(database.Options{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DSN(),
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		LogLevel:        cfg.DBLogLevel,
	})
	if err != nil {
		return err
	}
	defer database.Close(db)
	log.Info("database connected", zap.String("driver", cfg.DBDriver))

	// Auto Migrate (Hati-hati di production, sebaiknya pakai tools migrasi terpisah)
	if err := repository.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// 3. Dependency Injection (Wiring Layers)
	wsHub := ws.NewHub(log.Named("ws"))

	productRepo := repository.NewProductRepo(db)
	txRepo := repository.NewTransactionRepo(db)
	userRepo := repository.NewUserRepo(db)

	stockService := service.NewStockService(productRepo, txRepo, db, wsHub, log.Named("stock"), cfg.MutationTimeout)
	invService := service.NewInventoryService(productRepo, txRepo, stockService, wsHub, log.Named("inventory"))
	dashService := service.NewDashboardService(txRepo, cfg.LowStockThreshold)
	userService := service.NewUserService(userRepo, log.Named("users"))

	seedAdmin(cfg, userRepo, userService, log)

	handlers := handler.Handlers{
		Inventory: handler.NewInventoryHandler(invService, stockService),
		Dashboard: handler.NewDashboardHandler(dashService),
		User:      handler.NewUserHandler(userService),
		Health: handler.NewHealthHandler(func(ctx context.Context) error {
			return database.Ping(ctx, db)
		}),
	}

	// 4. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Inventory POS v1.0",
	})

	// Middleware
	app.Use(recover.New()) // Panic recovery
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))

	// 5. Routes
	mutationLimit := middleware.RateLimit(middleware.RateLimitConfig{
		Max:     cfg.RateLimitMax,
		Window:  cfg.RateLimitWindow,
		Storage: limiterStorage(cfg, log),
		Logger:  log.Named("ratelimit"),
	})
	handler.SetupRoutes(app, handlers, mutationLimit)

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		if !wsHub.Join(c) {
			return
		}
		defer wsHub.Leave(c)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 6. Run until SIGINT/SIGTERM, then shut down gracefully
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		wsHub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("server listening", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server exited")
	return nil
}

// limiterStorage returns shared Redis storage when REDIS_ADDR is set,
// falling back to in-memory counters when it is unset or unreachable.
func limiterStorage(cfg *config.Config, log *zap.Logger) fiber.Storage {
	if cfg.RedisAddr == "" || cfg.RateLimitMax <= 0 {
		return nil
	}
	storage, err := middleware.NewRedisStorage(cfg.RedisAddr)
	if err != nil {
		log.Warn("rate limiter falls back to in-memory storage", zap.Error(err))
		return nil
	}
	log.Info("rate limiter uses redis", zap.String("addr", cfg.RedisAddr))
	return storage
}

// seedAdmin creates the first user when the table is empty and
// SEED_ADMIN_USERNAME / SEED_ADMIN_PASSWORD are set.
func seedAdmin(cfg *config.Config, userRepo repository.UserRepository, users service.UserService, log *zap.Logger) {
	if cfg.SeedAdminUsername == "" || cfg.SeedAdminPassword == "" {
		return
	}

	ctx := context.Background()
	count, err := userRepo.Count(ctx)
	if err != nil {
		log.Warn("failed to count users", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}

	if _, err := users.CreateUser(ctx, &service.CreateUserRequest{
		Username: cfg.SeedAdminUsername,
		Password: cfg.SeedAdminPassword,
		Position: "admin",
	}); err != nil {
		log.Warn("failed to create admin user", zap.Error(err))
		return
	}
	log.Info("admin user created", zap.String("username", cfg.SeedAdminUsername))
}
