// Package main provides the Flowkite engine binary: one process hosting the
// admission queue, scheduler, browser pool and HTTP API.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/flowkite/flowkite/pkg/browser"
	"github.com/flowkite/flowkite/pkg/cmd"
	"github.com/flowkite/flowkite/pkg/log"
	"github.com/flowkite/flowkite/pkg/otelhelper"
	"github.com/flowkite/flowkite/pkg/persistence"
	"github.com/flowkite/flowkite/pkg/queue"
	"github.com/flowkite/flowkite/pkg/runner"
	"github.com/flowkite/flowkite/pkg/scheduler"
	"github.com/flowkite/flowkite/pkg/services"
	queuetrigger "github.com/flowkite/flowkite/pkg/triggers/queue"
	"github.com/flowkite/flowkite/pkg/web"
)

type Config struct {
	DatabaseURL        string
	EventBus           string
	MaxExecutions      int
	MaxBrowsers        int
	BrowserIdleTimeout time.Duration
	Port               int
	RedisURL           string
	QueueName          string
}

type App struct {
	config Config
	logger *slog.Logger
}

func NewApp(config Config) *App {
	return &App{
		config: config,
		logger: log.WithModule("flowkite"),
	}
}

func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "Initializing Flowkite engine")

	persistence := cmd.NewPersistence(ctx, a.logger, a.config.DatabaseURL)
	defer func() {
		if err := persistence.Close(ctx); err != nil {
			a.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus := cmd.NewEventBus(a.config.EventBus, a.logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			a.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	tracer, err := otelhelper.NewTracer(ctx, "flowkite")
	if err != nil {
		a.logger.WarnContext(ctx, "Tracing disabled", "error", err)

		tracer = nil
	}

	pool := browser.NewPool(browser.Config{
		MaxSessions: a.config.MaxBrowsers,
		IdleTimeout: a.config.BrowserIdleTimeout,
		Logger:      a.logger,
	})
	pool.Start(ctx)
	defer pool.Shutdown(ctx)

	registry := cmd.NewRegistry(a.logger, pool)

	workflowRunner := runner.NewRunner(persistence, registry, eventBus, pool, tracer, a.logger)

	admissionQueue := queue.NewAdmissionQueue(persistence, workflowRunner, a.config.MaxExecutions, a.logger)
	admissionQueue.Start(ctx)
	defer admissionQueue.Stop()

	workflowScheduler := scheduler.NewScheduler(persistence, admissionQueue, a.logger)
	if err := workflowScheduler.Start(ctx); err != nil {
		return err
	}
	defer workflowScheduler.Stop()

	engine := services.NewEngine(persistence, admissionQueue, workflowScheduler, a.logger)

	if a.config.RedisURL != "" {
		trigger := queuetrigger.NewTrigger(a.config.RedisURL, a.config.QueueName, engine, a.logger)
		if err := trigger.Start(ctx); err != nil {
			return err
		}

		defer func() {
			if err := trigger.Stop(ctx); err != nil {
				a.logger.ErrorContext(ctx, "Failed to stop queue trigger", "error", err)
			}
		}()
	}

	app := a.buildHTTPApp(engine, persistence)

	go func() {
		if err := app.Listen(":" + strconv.Itoa(a.config.Port)); err != nil {
			a.logger.ErrorContext(ctx, "API server stopped", "error", err)
		}
	}()

	a.logger.InfoContext(ctx, "Flowkite engine started",
		"port", a.config.Port,
		"max_executions", a.config.MaxExecutions,
		"max_browsers", a.config.MaxBrowsers)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	a.logger.InfoContext(ctx, "Shutting down...")

	if err := app.Shutdown(); err != nil {
		a.logger.ErrorContext(ctx, "Failed to shut down API server", "error", err)
	}

	return nil
}

func (a *App) buildHTTPApp(engine *services.Engine, store persistence.Persistence) *fiber.App {
	handlers := web.NewAPIHandlers(engine, store, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowkite API")
	})

	handlers.Register(app)

	return app
}
