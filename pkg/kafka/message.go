package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/auditkit/papertrail/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content
	ParsedDocument *ParsedDocumentMessage
}

// ParsedDocumentMessage is the payload the upstream parsing pipeline emits
// once OCR and field extraction finish. This service never sees raw files.
type ParsedDocumentMessage struct {
	TenantID string                       `json:"tenant_id"`
	Document models.CreateDocumentRequest `json:"document"`
}

// ParseDocumentMessage parses the message value as a parsed-document payload
func (m *IncomingMessage) ParseDocumentMessage() error {
	var msg ParsedDocumentMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return err
	}
	if msg.Document.DocType == "" {
		return fmt.Errorf("document message missing doc_type")
	}
	m.ParsedDocument = &msg
	return nil
}

// GetTenantID returns the tenant ID from the payload, falling back to the
// message header.
func (m *IncomingMessage) GetTenantID() string {
	if m.ParsedDocument != nil && m.ParsedDocument.TenantID != "" {
		return m.ParsedDocument.TenantID
	}
	return m.Headers["tenant_id"]
}
