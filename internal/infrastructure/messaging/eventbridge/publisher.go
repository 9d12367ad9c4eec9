// Package eventbridge publishes note lifecycle events to AWS EventBridge.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	apperrors "github.com/DaX-523/notes-ai-1811/internal/errors"
	"github.com/DaX-523/notes-ai-1811/internal/infrastructure/observability"
	"github.com/DaX-523/notes-ai-1811/internal/repository"
)

// Source is the EventBridge source of every note event.
const Source = "notes-ai.api"

// PutEvents limits a single call to this many entries.
const batchSize = 10

// Client is the subset of the EventBridge API the publisher uses.
type Client interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Publisher implements repository.EventPublisher.
type Publisher struct {
	client       Client
	eventBusName string
	logger       *zap.Logger
	metrics      *observability.Collector
}

// NewPublisher creates a publisher for the named bus.
func NewPublisher(client Client, eventBusName string, logger *zap.Logger, metrics *observability.Collector) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		logger:       logger,
		metrics:      metrics,
	}
}

// Publish sends events in batches of ten.
func (p *Publisher) Publish(ctx context.Context, events ...repository.NoteEvent) error {
	for i := 0; i < len(events); i += batchSize {
		end := i + batchSize
		if end > len(events) {
			end = len(events)
		}
		if err := p.publishBatch(ctx, events[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishBatch(ctx context.Context, events []repository.NoteEvent) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(events))
	sent := make([]repository.NoteEvent, 0, len(events))

	for _, event := range events {
		detail, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("Failed to marshal event", zap.Error(err), zap.String("eventType", string(event.Type)))
			continue
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(Source),
			DetailType:   aws.String(string(event.Type)),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.OccurredAt),
			Resources:    []string{fmt.Sprintf("notes-ai:note/%s", event.NoteID)},
		})
		sent = append(sent, event)
	}
	if len(entries) == 0 {
		return nil
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		for _, event := range sent {
			p.metrics.ObserveEvent(string(event.Type), err)
		}
		return apperrors.Store(apperrors.CodeStoreUnavailable, "failed to publish events").
			WithOperation("Publish").
			WithCause(err).
			Build()
	}

	failed := 0
	for i, event := range sent {
		var entryErr error
		if i < len(result.Entries) && result.Entries[i].ErrorCode != nil {
			failed++
			entryErr = fmt.Errorf("%s: %s", aws.ToString(result.Entries[i].ErrorCode), aws.ToString(result.Entries[i].ErrorMessage))
			p.logger.Error("Failed to publish event",
				zap.String("eventType", string(event.Type)),
				zap.String("noteID", event.NoteID),
				zap.Error(entryErr),
			)
		}
		p.metrics.ObserveEvent(string(event.Type), entryErr)
	}
	if result.FailedEntryCount > 0 || failed > 0 {
		count := int(result.FailedEntryCount)
		if failed > count {
			count = failed
		}
		return apperrors.Store(apperrors.CodeStoreUnavailable, fmt.Sprintf("%d events failed to publish", count)).
			WithOperation("Publish").
			Build()
	}

	p.logger.Debug("Events published to EventBridge",
		zap.Int("count", len(entries)),
		zap.String("eventBus", p.eventBusName),
	)
	return nil
}

// LogPublisher writes events to the log instead of a bus. It is used when
// no event bus is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher returns a publisher that only logs.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, events ...repository.NoteEvent) error {
	for _, event := range events {
		p.logger.Debug("Note event",
			zap.String("type", string(event.Type)),
			zap.String("noteID", event.NoteID),
			zap.String("userID", event.UserID),
		)
	}
	return nil
}

var (
	_ repository.EventPublisher = (*Publisher)(nil)
	_ repository.EventPublisher = (*LogPublisher)(nil)
)
