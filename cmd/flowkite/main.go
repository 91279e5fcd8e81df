package main

import (
	"context"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/flowkite/flowkite/pkg/log"
)

const (
	defaultPort           = 9080
	defaultMaxExecutions  = 5
	defaultMaxBrowsers    = 3
	defaultBrowserIdleMin = 30
)

func main() {
	command := &cli.Command{
		Name:                  "flowkite",
		Usage:                 "Run the browser workflow execution engine",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL (postgres://... or a file path)",
				Value:   "./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.IntFlag{
				Name:    "max-concurrent-executions",
				Usage:   "Maximum number of executions running at once",
				Value:   defaultMaxExecutions,
				Sources: cli.EnvVars("MAX_CONCURRENT_EXECUTIONS"),
			},
			&cli.IntFlag{
				Name:    "max-concurrent-browsers",
				Usage:   "Maximum number of live browser sessions",
				Value:   defaultMaxBrowsers,
				Sources: cli.EnvVars("MAX_CONCURRENT_BROWSERS"),
			},
			&cli.DurationFlag{
				Name:    "browser-idle-timeout",
				Usage:   "Idle time before a browser session is reclaimed",
				Value:   defaultBrowserIdleMin * time.Minute,
				Sources: cli.EnvVars("BROWSER_IDLE_TIMEOUT"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL enabling the queue trigger (optional)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "queue-name",
				Usage:   "Redis list the queue trigger consumes",
				Value:   "",
				Sources: cli.EnvVars("QUEUE_NAME"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			app := NewApp(Config{
				DatabaseURL:        command.String("database-url"),
				EventBus:           command.String("event-bus"),
				MaxExecutions:      command.Int("max-concurrent-executions"),
				MaxBrowsers:        command.Int("max-concurrent-browsers"),
				BrowserIdleTimeout: command.Duration("browser-idle-timeout"),
				Port:               command.Int("port"),
				RedisURL:           command.String("redis-url"),
				QueueName:          command.String("queue-name"),
			})

			return app.Run(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
