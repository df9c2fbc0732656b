// Package events handles event emission for the compliance pipeline
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/auditkit/papertrail/pkg/kafka"
	"github.com/auditkit/papertrail/pkg/models"
	"github.com/auditkit/papertrail/pkg/platform/tracing"
)

// Emitter publishes compliance pipeline events
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitDocumentIngested emits a document.ingested event
func (e *Emitter) EmitDocumentIngested(ctx context.Context, doc *models.Document) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDocumentIngested")
	defer span.End()

	event := DocumentIngestedEvent{
		BaseEvent:  NewBaseEvent(EventTypeDocumentIngested, doc.TenantID),
		DocumentID: doc.ID,
		DocType:    doc.DocType,
	}

	return e.publish(ctx, doc.ID, event.BaseEvent, event)
}

// EmitDocumentEvaluated emits a document.evaluated event
func (e *Emitter) EmitDocumentEvaluated(ctx context.Context, report *models.EvaluationReport) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDocumentEvaluated")
	defer span.End()

	event := DocumentEvaluatedEvent{
		BaseEvent:   NewBaseEvent(EventTypeDocumentEvaluated, report.TenantID),
		ReportID:    report.ID,
		DocumentIDs: report.DocumentIDs,
		Summary:     report.Summary,
		Results:     report.Results,
	}

	return e.publish(ctx, report.ID, event.BaseEvent, event)
}

// EmitDocumentsMatched emits a documents.matched event
func (e *Emitter) EmitDocumentsMatched(ctx context.Context, tenantID, sourceDocumentID string, matches []models.DocumentMatch) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDocumentsMatched")
	defer span.End()

	event := DocumentsMatchedEvent{
		BaseEvent:      NewBaseEvent(EventTypeDocumentsMatched, tenantID),
		SourceDocument: sourceDocumentID,
		Matches:        matches,
	}

	return e.publish(ctx, sourceDocumentID, event.BaseEvent, event)
}

func (e *Emitter) publish(ctx context.Context, key string, base BaseEvent, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	headers := map[string]string{
		"event_type":     string(base.EventType),
		"tenant_id":      base.TenantID,
		"schema_version": base.SchemaVersion,
	}

	if err := e.producer.Publish(ctx, key, data, headers); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": base.EventType,
		}).Error("Failed to emit event")
		return err
	}

	return nil
}
