// Package main runs the approval escalation sweeper on a schedule.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/mfgworks/flowgate/pkg/cmd"
	"github.com/mfgworks/flowgate/pkg/escalation"
	"github.com/mfgworks/flowgate/pkg/log"
	"github.com/mfgworks/flowgate/pkg/services"
)

func main() {
	logger := log.WithModule("sweeper")

	command := &cli.Command{
		Name:                  "flowgate-sweeper",
		Usage:                 "Escalate overdue approvals on a fixed schedule",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron expression controlling how often the sweep runs",
				Value:   "*/5 * * * *",
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

			schedule := command.String("schedule")
			if _, err := cron.ParseStandard(schedule); err != nil {
				return fmt.Errorf("invalid cron expression: %w", err)
			}

			logger.InfoContext(ctx, "Initializing Flowgate sweeper", "schedule", schedule)

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

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

			history := services.NewHistory(persistence)
			approvals := services.NewApprovals(persistence, eventBus, history, logger)
			sweeper := escalation.NewSweeper(persistence, approvals, logger)

			scheduler := cron.New(cron.WithChain(
				cron.SkipIfStillRunning(cron.DefaultLogger),
				cron.Recover(cron.DefaultLogger),
			))

			_, err = scheduler.AddFunc(schedule, func() {
				_, err := sweeper.Sweep(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Sweep failed", "error", err)
				}
			})
			if err != nil {
				return fmt.Errorf("failed to schedule sweep: %w", err)
			}

			scheduler.Start()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop

			logger.InfoContext(ctx, "Shutting down sweeper")
			<-scheduler.Stop().Done()

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
