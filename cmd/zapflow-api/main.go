package main

import (
	"context"
	"database/sql"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/zapflow/zapflow/pkg/cmd"
	"github.com/zapflow/zapflow/pkg/log"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "zapflow-api",
		Usage:                 "Manage flows and ingest WhatsApp webhook events",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "customer-database-url",
				Usage:   "Optional customer database URL for database_query nodes",
				Sources: cli.EnvVars("CUSTOMER_DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the distributed conversation lock",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing ZapFlow API")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			var customerDB *sql.DB

			if url := command.String("customer-database-url"); url != "" {
				var err error

				customerDB, err = sql.Open("postgres", url)
				if err != nil {
					return err
				}
				defer func() { _ = customerDB.Close() }()
			}

			registry := cmd.NewRegistry(logger, eventBus, customerDB)
			locker := cmd.NewLocker(command.String("redis-url"))

			api := NewAPI(logger, persistence, registry, eventBus, locker)

			err := api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
