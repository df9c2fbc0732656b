package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/auditkit/papertrail/pkg/models"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// EventType defines the type of event
type EventType string

const (
	// EventTypeDocumentIngested is emitted once a parsed document is stored
	EventTypeDocumentIngested EventType = "document.ingested"
	// EventTypeDocumentEvaluated is emitted after a rule batch runs
	EventTypeDocumentEvaluated EventType = "document.evaluated"
	// EventTypeDocumentsMatched is emitted when a match run links documents
	EventTypeDocumentsMatched EventType = "documents.matched"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	TenantID      string    `json:"tenant_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// DocumentIngestedEvent is emitted when a parsed document is stored
type DocumentIngestedEvent struct {
	BaseEvent
	DocumentID string              `json:"document_id"`
	DocType    models.DocumentType `json:"doc_type"`
}

// DocumentEvaluatedEvent is emitted after a rule batch runs over a document set
type DocumentEvaluatedEvent struct {
	BaseEvent
	ReportID    string                    `json:"report_id"`
	DocumentIDs []string                  `json:"document_ids"`
	Summary     models.EvaluationSummary  `json:"summary"`
	Results     []models.EvaluationResult `json:"results"`
}

// DocumentsMatchedEvent is emitted when a match run links a source document
// to one or more targets
type DocumentsMatchedEvent struct {
	BaseEvent
	SourceDocument string                 `json:"source_document"`
	Matches        []models.DocumentMatch `json:"matches"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType EventType, tenantID string) BaseEvent {
	return BaseEvent{
		EventType:     eventType,
		SchemaVersion: SchemaVersion,
		TenantID:      tenantID,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.New().String(),
	}
}
