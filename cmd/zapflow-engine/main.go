package main

import (
	"context"
	"database/sql"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/zapflow/zapflow/pkg/cmd"
	"github.com/zapflow/zapflow/pkg/collaborators"
	"github.com/zapflow/zapflow/pkg/flow"
	"github.com/zapflow/zapflow/pkg/log"
	"github.com/zapflow/zapflow/pkg/services"
)

func main() {
	command := &cli.Command{
		Name:                  "zapflow-engine",
		EnableShellCompletion: true,
		Usage:                 "Start engine workers to execute conversation flows",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
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
				Usage:   "Optional PostgreSQL URL queried by database nodes",
				Sources: cli.EnvVars("CUSTOMER_DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for distributed conversation locks (in-process locks if empty)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "override-policy",
				Usage:   "Trigger override policy (resume_wins, keyword_wins)",
				Value:   string(flow.ResumeWins),
				Sources: cli.EnvVars("OVERRIDE_POLICY"),
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

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("zapflow-engine").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing ZapFlow engine worker")

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			var customerDB *sql.DB

			if url := command.String("customer-database-url"); url != "" {
				var err error

				customerDB, err = sql.Open("postgres", url)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to open customer database", "error", err)

					return err
				}
				defer customerDB.Close()
			}

			registry := cmd.NewRegistry(logger, eventBus, customerDB)
			locker := cmd.NewLocker(command.String("redis-url"))

			dispatcher := collaborators.NewBusDispatcher(eventBus)
			executor := flow.NewExecutor(registry, persistence.FlowRepository(), dispatcher, logger)
			resolver := flow.NewResolver(logger)
			catalog := services.NewCachedCatalog(persistence.FlowRepository())
			engine := services.NewEngine(persistence, catalog, executor, resolver, eventBus,
				locker, flow.OverridePolicy(command.String("override-policy")), workerID, logger)

			worker := NewWorker(workerID, engine, eventBus, logger)
			worker.InvalidateCatalogOnPublish(catalog)

			err := worker.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start engine worker", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
