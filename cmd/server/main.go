package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"dataservice/internal/auth"
	"dataservice/internal/config"
	"dataservice/internal/engine"
	"dataservice/internal/schema"
	"dataservice/internal/store"
)

func main() {
	ctx := context.Background()

	// 1. Load config (.env first so env bindings pick it up)
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zlog := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zlog.Info().
		Int("port", cfg.Server.Port).
		Str("driver", cfg.Database.Driver).
		Str("db", cfg.Database.Name).
		Msg("config loaded")

	// 2. Connect to database and bootstrap tables
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap tables: %v", err)
	}
	zlog.Info().Msg("database ready")

	// 3. Build the entity registry (immutable after this point)
	reg := schema.NewRegistry()

	// 4. Auth verifier (may be unconfigured; routes then fail closed)
	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTPublicKeyBase64)
	if err != nil {
		log.Fatalf("Failed to configure JWT verification: %v", err)
	}
	if !verifier.Configured() {
		zlog.Warn().Msg("JWT verification not configured; authenticated routes will fail")
	}

	// 5. Mutation engine and audit recorder
	recorder := engine.NewRecorder(db.Dialect, cfg.AuditLogEnabled, zlog)
	eng := engine.NewEngine(db, recorder)

	// 6. Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(func(c *fiber.Ctx) error {
		id := uuid.NewString()
		c.Locals("request_id", id)
		c.Set("X-Request-ID", id)
		return c.Next()
	})

	// 7. Health check (no auth)
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(engine.Success(fiber.Map{"status": "ok"}))
	})

	// 8. Entity, validation and migration routes
	authMW := auth.Authenticate(verifier)
	adminMW := auth.RequireRoles(cfg.AdminRoles)
	handler := engine.NewHandler(db, reg, eng)
	engine.RegisterRoutes(app, handler, authMW, adminMW)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	zlog.Info().Str("addr", addr).Msg("starting server")
	log.Fatal(app.Listen(addr))
}

// errorHandler resolves every failure to the uniform error envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	var appErr *engine.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(engine.ErrorResponse(appErr))
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code == fiber.StatusNotFound {
		return c.Status(404).JSON(engine.ErrorResponse(engine.NotFoundError("Not found")))
	}

	log.Printf("ERROR: %v", err)
	return c.Status(500).JSON(engine.ErrorResponse(
		engine.NewAppError("INTERNAL_SERVER_ERROR", 500, "Internal Server Error")))
}
