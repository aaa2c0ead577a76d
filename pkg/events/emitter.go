// Package events handles event emission for activity lifecycle changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Emitter publishes activity lifecycle events after a resource import
// commits. Emission is best effort: a broker failure is logged and
// never unwinds the committed import.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitCreated announces identifiers stored for the first time.
func (e *Emitter) EmitCreated(ctx context.Context, resource models.ResourceContext, identifiers []string) {
	e.emit(ctx, "activity.created", resource, identifiers)
}

// EmitUpdated announces identifiers that were re-imported.
func (e *Emitter) EmitUpdated(ctx context.Context, resource models.ResourceContext, identifiers []string) {
	e.emit(ctx, "activity.updated", resource, identifiers)
}

// EmitDeleted announces tombstoned identifiers.
func (e *Emitter) EmitDeleted(ctx context.Context, resource models.ResourceContext, identifiers []string) {
	e.emit(ctx, "activity.deleted", resource, identifiers)
}

func (e *Emitter) emit(ctx context.Context, eventType string, resource models.ResourceContext, identifiers []string) {
	if e.producer == nil || len(identifiers) == 0 {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "events.Emitter.emit")
	defer span.End()

	events := make([]*kafka.ActivityEvent, 0, len(identifiers))
	for _, id := range identifiers {
		events = append(events, &kafka.ActivityEvent{
			EventType:      eventType,
			IATIIdentifier: id,
			ResourceURL:    resource.URL,
			DatasetID:      resource.DatasetID,
		})
	}

	if err := e.producer.PublishActivityEvents(ctx, events); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": eventType,
			"resource":   resource.URL,
			"count":      len(identifiers),
		}).Error("Failed to emit activity events")
	}
}
