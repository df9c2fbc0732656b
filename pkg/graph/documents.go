package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/auditkit/papertrail/pkg/models"
	"github.com/auditkit/papertrail/pkg/platform/tracing"
)

// DocumentService maintains document nodes and the MATCHES relationships
// between them. The graph answers "what is this invoice linked to" without
// re-scoring anything.
type DocumentService struct {
	client *Client
	logger ectologger.Logger
}

// NewDocumentService creates a new document graph service
func NewDocumentService(client *Client, logger ectologger.Logger) *DocumentService {
	return &DocumentService{
		client: client,
		logger: logger,
	}
}

// UpsertDocument creates or updates a document node
func (s *DocumentService) UpsertDocument(ctx context.Context, doc *models.Document) error {
	ctx, span := tracing.StartSpan(ctx, "graph.DocumentService.UpsertDocument")
	defer span.End()

	props := map[string]any{
		"id":        doc.ID,
		"tenant_id": doc.TenantID,
		"doc_type":  string(doc.DocType),
	}
	if doc.DocumentNumber != "" {
		props["document_number"] = doc.DocumentNumber
	}
	if doc.Vendor != "" {
		props["vendor"] = doc.Vendor
	}
	if doc.VendorID != "" {
		props["vendor_id"] = doc.VendorID
	}
	if doc.Date != nil {
		props["date"] = doc.Date.Format(time.RFC3339)
	}
	if doc.TotalAmount != nil {
		props["total_amount"] = *doc.TotalAmount
	}
	if doc.Currency != "" {
		props["currency"] = doc.Currency
	}

	cypher := `
		MERGE (d:Document {id: $id, tenant_id: $tenant_id})
		SET d += $props
		RETURN d
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":        doc.ID,
			"tenant_id": doc.TenantID,
			"props":     props,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to upsert document in graph")
		return fmt.Errorf("failed to upsert document in graph: %w", err)
	}

	return nil
}

// LinkDocuments records a scored match as a MATCHES relationship between two
// document nodes. Re-linking the same pair overwrites the score.
func (s *DocumentService) LinkDocuments(ctx context.Context, tenantID string, match models.DocumentMatch) error {
	ctx, span := tracing.StartSpan(ctx, "graph.DocumentService.LinkDocuments")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"source":    match.SourceDocument,
		"target":    match.TargetDocument,
	})

	cypher := `
		MATCH (from:Document {id: $from_id, tenant_id: $tenant_id})
		MATCH (to:Document {id: $to_id, tenant_id: $tenant_id})
		MERGE (from)-[r:MATCHES]->(to)
		SET r.match_confidence = $confidence,
		    r.match_type = $match_type,
		    r.tenant_id = $tenant_id,
		    r.updated_at = datetime()
		RETURN r
	`

	_, err := s.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"from_id":    match.SourceDocument,
			"to_id":      match.TargetDocument,
			"tenant_id":  tenantID,
			"confidence": match.MatchConfidence,
			"match_type": string(match.MatchType),
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		log.WithError(err).Error("Failed to link documents in graph")
		return fmt.Errorf("failed to link documents in graph: %w", err)
	}

	log.Debug("Linked documents in graph")
	return nil
}

// LinkedDocument is one edge of a document's match neighborhood
type LinkedDocument struct {
	DocumentID      string  `json:"document_id"`
	DocType         string  `json:"doc_type"`
	MatchConfidence float64 `json:"match_confidence"`
	MatchType       string  `json:"match_type"`
}

// GetLinkedDocuments returns every document linked to the given one, in
// either direction.
func (s *DocumentService) GetLinkedDocuments(ctx context.Context, tenantID, documentID string) ([]LinkedDocument, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.DocumentService.GetLinkedDocuments")
	defer span.End()

	cypher := `
		MATCH (d:Document {id: $id, tenant_id: $tenant_id})-[r:MATCHES]-(other)
		RETURN other.id AS id, other.doc_type AS doc_type,
		       r.match_confidence AS confidence, r.match_type AS match_type
	`

	result, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"id":        documentID,
			"tenant_id": tenantID,
		})
		if err != nil {
			return nil, err
		}

		linked := make([]LinkedDocument, 0)
		for result.Next(ctx) {
			record := result.Record()
			link := LinkedDocument{}
			if v, ok := record.Get("id"); ok {
				link.DocumentID, _ = v.(string)
			}
			if v, ok := record.Get("doc_type"); ok {
				link.DocType, _ = v.(string)
			}
			if v, ok := record.Get("confidence"); ok {
				link.MatchConfidence, _ = v.(float64)
			}
			if v, ok := record.Get("match_type"); ok {
				link.MatchType, _ = v.(string)
			}
			linked = append(linked, link)
		}
		return linked, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get linked documents from graph: %w", err)
	}

	return result.([]LinkedDocument), nil
}
