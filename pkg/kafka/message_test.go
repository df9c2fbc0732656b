package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditkit/papertrail/pkg/models"
)

func TestParseDocumentMessage(t *testing.T) {
	msg := &IncomingMessage{
		Value: []byte(`{
			"tenant_id": "tenant-1",
			"document": {
				"doc_type": "invoice",
				"vendor": "Acme Corp",
				"document_number": "INV-1001",
				"total_amount": 1250.50,
				"currency": "USD",
				"fields": {"po_number": "PO-9001"}
			}
		}`),
	}

	require.NoError(t, msg.ParseDocumentMessage())
	require.NotNil(t, msg.ParsedDocument)
	assert.Equal(t, "tenant-1", msg.ParsedDocument.TenantID)
	assert.Equal(t, models.DocumentTypeInvoice, msg.ParsedDocument.Document.DocType)
	assert.Equal(t, "INV-1001", msg.ParsedDocument.Document.DocumentNumber)
	assert.Equal(t, "PO-9001", msg.ParsedDocument.Document.Fields["po_number"])
}

func TestParseDocumentMessageMissingDocType(t *testing.T) {
	msg := &IncomingMessage{
		Value: []byte(`{"tenant_id": "tenant-1", "document": {"vendor": "Acme"}}`),
	}

	err := msg.ParseDocumentMessage()
	assert.Error(t, err)
	assert.Nil(t, msg.ParsedDocument)
}

func TestParseDocumentMessageInvalidJSON(t *testing.T) {
	msg := &IncomingMessage{Value: []byte(`not json`)}
	assert.Error(t, msg.ParseDocumentMessage())
}

func TestGetTenantIDFallsBackToHeader(t *testing.T) {
	msg := &IncomingMessage{
		Headers: map[string]string{"tenant_id": "tenant-from-header"},
	}
	assert.Equal(t, "tenant-from-header", msg.GetTenantID())

	msg.ParsedDocument = &ParsedDocumentMessage{TenantID: "tenant-from-payload"}
	assert.Equal(t, "tenant-from-payload", msg.GetTenantID())
}
