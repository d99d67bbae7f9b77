package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/zapflow/zapflow/pkg/cmd"
	"github.com/zapflow/zapflow/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "zapflow-timer",
		EnableShellCompletion: true,
		Usage:                 "Sweep due delay suspensions and publish timer events",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "sweeper-id",
				Aliases: []string{"id"},
				Usage:   "Custom sweeper ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("SWEEPER_ID"),
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
				Name:    "schedule",
				Usage:   "Cron schedule (with seconds) for the delay sweep",
				Value:   "*/5 * * * * *",
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
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

			sweeperID := command.String("sweeper-id")
			if sweeperID == "" {
				sweeperID = "timer-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("zapflow-timer").With("sweeper_id", sweeperID)

			logger.InfoContext(ctx, "Initializing ZapFlow timer sweeper")

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

			sweeper := NewSweeper(sweeperID, persistence, eventBus, logger)

			err := sweeper.Start(ctx, command.String("schedule"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start delay sweeper", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
