package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zapflow/zapflow/pkg/eventbus"
	"github.com/zapflow/zapflow/pkg/events"
	"github.com/zapflow/zapflow/pkg/persistence"
)

const sweepBatchSize = 500

// Sweeper periodically scans for conversations whose delay suspension is due
// and publishes a DelayElapsed event for each. The event carries the
// conversation generation, so a stale signal published just before a reset is
// discarded by the engine instead of waking a dead execution.
type Sweeper struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	cron        *cron.Cron
}

func NewSweeper(
	id string,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		id:          id,
		logger:      logger.With("module", "zapflow-timer", "sweeper_id", id),
		persistence: p,
		eventBus:    eventBus,
	}
}

func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	s.logger.InfoContext(ctx, "Starting delay sweeper", "schedule", schedule)

	s.cron = cron.New(cron.WithSeconds(), cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := s.cron.AddFunc(schedule, func() {
		s.sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Delay sweeper started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	s.logger.InfoContext(ctx, "Shutting down delay sweeper...")

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	return nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now().UTC()

	due, err := s.persistence.ConversationRepository().DueDelays(ctx, now, sweepBatchSize)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to scan due delays", "error", err)

		return
	}

	if len(due) == 0 {
		return
	}

	s.logger.InfoContext(ctx, "Publishing elapsed delays", "count", len(due))

	for _, conversation := range due {
		event := events.DelayElapsed{
			BaseEvent: events.BaseEvent{
				ID:             s.eventBus.GenerateID(),
				Type:           events.DelayElapsedEvent,
				Timestamp:      now,
				OrganizationID: conversation.OrganizationID,
				ContactID:      conversation.ContactID,
				WorkerID:       s.id,
			},
			FlowID:     conversation.ActiveFlowID,
			NodeID:     conversation.CurrentNodeID,
			Generation: conversation.Generation,
		}

		err := s.eventBus.Publish(ctx, events.TimerTopic, event.ConversationKey(), event)
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish elapsed delay",
				"organization_id", conversation.OrganizationID,
				"contact_id", conversation.ContactID,
				"error", err)
		}
	}
}
