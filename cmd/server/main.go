package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/journalforge/api/internal/analyzer"
	"github.com/journalforge/api/internal/client"
	"github.com/journalforge/api/internal/config"
	"github.com/journalforge/api/internal/handler"
	"github.com/journalforge/api/internal/middleware"
	"github.com/journalforge/api/internal/parser"
	"github.com/journalforge/api/internal/service"
	"github.com/journalforge/api/internal/steps"
	ws "github.com/journalforge/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, closeLog := config.SetupLogger(cfg.Server.LogFile, config.ParseLevel(cfg.Server.LogLevel))
	defer closeLog()

	// Initialize Redis client (rate limiting only; job state is in-memory)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		appLogger.Warn("redis not available, rate limiting disabled", "error", err)
	}

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub(appLogger)
	go hub.Run()

	// Initialize the pipeline stack
	llmClient := client.NewLLMClient(&cfg.LLM)
	if !llmClient.IsConfigured() {
		appLogger.Warn("no model API key configured, running with mock responses")
	}

	structParser := parser.New(appLogger,
		parser.WithRetries(cfg.Pipeline.ParserRetries),
		parser.WithBackoff(time.Duration(cfg.Pipeline.ParserBackoffMS)*time.Millisecond),
		parser.WithCallTimeout(time.Duration(cfg.LLM.TimeoutSeconds)*time.Second),
	)

	executors := steps.All(steps.Deps{
		LLM:    llmClient,
		Parser: structParser,
		Config: cfg.Pipeline,
		Logger: appLogger,
	})

	projectAnalyzer := analyzer.New(cfg.Pipeline, cfg.Analyzer, appLogger)
	jobService := service.NewJobService(cfg.Pipeline, executors, hub, projectAnalyzer, appLogger)

	// Initialize handlers
	jobHandler := handler.NewJobHandler(jobService, validate)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-User-Id",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":        "ok",
			"llmConfigured": llmClient.IsConfigured(),
			"gatewayAuth":   cfg.Gateway.Enabled,
		})
	})

	// Behind an API gateway, identity arrives as trusted headers; otherwise
	// the service validates bearer tokens itself.
	authHandler := authMiddleware.Authenticate()
	if cfg.Gateway.Enabled {
		authHandler = middleware.GatewayAuth()
	}

	// API routes
	api := app.Group("/api", authHandler)

	journals := api.Group("/journals")
	journals.Post("/generate", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), jobHandler.Create)

	jobs := api.Group("/jobs")
	jobs.Get("/", jobHandler.List)
	jobs.Get("/:jobId", jobHandler.Status)
	jobs.Post("/cancel/:jobId", jobHandler.Cancel)

	projects := api.Group("/projects")
	projects.Post("/analyze", rateLimiter.AnalyzeLimit(cfg.RateLimit.AnalyzePerMin), jobHandler.Analyze)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Graceful shutdown. In-flight pipelines are best-effort: the registry
	// is in-memory and jobs do not survive a restart.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		appLogger.Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			appLogger.Error("server shutdown error", "error", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	appLogger.Info("server starting", "addr", addr, "env", cfg.Server.Env)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
