package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zapflow/zapflow/pkg/eventbus"
	"github.com/zapflow/zapflow/pkg/events"
	"github.com/zapflow/zapflow/pkg/otelhelper"
	"github.com/zapflow/zapflow/pkg/services"
)

// Worker consumes inbound messages and elapsed delay timers from the
// event bus and drives the conversation engine. Messages for the same
// conversation arrive on the same partition, so each conversation is
// processed in order.
type Worker struct {
	id       string
	logger   *slog.Logger
	engine   *services.Engine
	eventBus eventbus.EventBus
	tracer   trace.Tracer
	catalog  *services.CachedCatalog
}

func NewWorker(
	id string,
	engine *services.Engine,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		id:       id,
		logger:   logger.With("module", "zapflow-engine", "worker_id", id),
		engine:   engine,
		eventBus: eventBus,
	}
}

// InvalidateCatalogOnPublish subscribes the worker to publish fanout so its
// published-flow snapshots drop as soon as a flow changes.
func (w *Worker) InvalidateCatalogOnPublish(catalog *services.CachedCatalog) {
	w.catalog = catalog
}

func (w *Worker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting engine worker")

	tracer, err := otelhelper.NewTracer(ctx, "zapflow-engine")
	if err != nil {
		return err
	}

	w.tracer = tracer

	err = w.eventBus.Handle(events.InboundReceivedEvent, w.handleInboundReceived)
	if err != nil {
		return err
	}

	err = w.eventBus.Handle(events.DelayElapsedEvent, w.handleDelayElapsed)
	if err != nil {
		return err
	}

	if w.catalog != nil {
		err = w.eventBus.Handle(events.FlowPublishedEvent, w.catalog.HandleFlowPublished)
		if err != nil {
			return err
		}

		err = w.eventBus.Subscribe(ctx, events.EngineTopic)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to subscribe to engine topic", "error", err)

			return err
		}
	}

	err = w.eventBus.Subscribe(ctx, events.InboundTopic)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to inbound topic", "error", err)

		return err
	}

	err = w.eventBus.Subscribe(ctx, events.TimerTopic)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to timer topic", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Engine worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down engine worker...")

	return nil
}

func (w *Worker) handleInboundReceived(ctx context.Context, event any) error {
	inbound, ok := event.(*events.InboundReceived)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for InboundReceived")

		return nil
	}

	logger := w.logger.With(
		"organization_id", inbound.OrganizationID,
		"contact_id", inbound.ContactID,
		"event_id", inbound.ID,
	)
	logger.InfoContext(ctx, "Processing inbound message")

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "process_inbound",
		attribute.String(otelhelper.OrganizationIDKey, inbound.OrganizationID),
		attribute.String(otelhelper.ContactIDKey, inbound.ContactID),
		attribute.String(otelhelper.EventIDKey, inbound.ID),
	)
	defer span.End()

	err := w.engine.ProcessInbound(ctx, &inbound.Message)
	if err != nil {
		otelhelper.SetError(span, err)
	}

	return err
}

func (w *Worker) handleDelayElapsed(ctx context.Context, event any) error {
	elapsed, ok := event.(*events.DelayElapsed)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for DelayElapsed")

		return nil
	}

	logger := w.logger.With(
		"organization_id", elapsed.OrganizationID,
		"contact_id", elapsed.ContactID,
		"generation", elapsed.Generation,
	)
	logger.InfoContext(ctx, "Processing elapsed delay")

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "handle_delay_elapsed",
		attribute.String(otelhelper.OrganizationIDKey, elapsed.OrganizationID),
		attribute.String(otelhelper.ContactIDKey, elapsed.ContactID),
		attribute.Int64(otelhelper.GenerationKey, elapsed.Generation),
	)
	defer span.End()

	err := w.engine.HandleDelayElapsed(ctx, elapsed)
	if err != nil {
		otelhelper.SetError(span, err)
	}

	return err
}
