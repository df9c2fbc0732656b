// Package processor wires the compliance pipeline together: documents arrive
// from Kafka or HTTP, get stored, evaluated against active rules, matched
// against prior documents, and linked in the graph.
package processor

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	documentrepo "github.com/auditkit/papertrail/internal/repositories/document"
	reportrepo "github.com/auditkit/papertrail/internal/repositories/report"
	rulerepo "github.com/auditkit/papertrail/internal/repositories/rule"
	"github.com/auditkit/papertrail/pkg/evaluator"
	"github.com/auditkit/papertrail/pkg/events"
	"github.com/auditkit/papertrail/pkg/graph"
	"github.com/auditkit/papertrail/pkg/kafka"
	"github.com/auditkit/papertrail/pkg/matching"
	"github.com/auditkit/papertrail/pkg/metrics"
	"github.com/auditkit/papertrail/pkg/models"
	"github.com/auditkit/papertrail/pkg/platform/tracing"
)

// Processor orchestrates ingest, evaluation and matching
type Processor struct {
	logger       ectologger.Logger
	documentRepo *documentrepo.Repository
	ruleRepo     *rulerepo.Repository
	reportRepo   *reportrepo.Repository
	batch        *evaluator.Batch
	matcher      *matching.Matcher
	graphDocs    *graph.DocumentService
	emitter      *events.Emitter
}

// NewProcessor creates a new pipeline processor. The graph service and event
// emitter are optional; when nil those steps are skipped.
func NewProcessor(
	logger ectologger.Logger,
	documentRepo *documentrepo.Repository,
	ruleRepo *rulerepo.Repository,
	reportRepo *reportrepo.Repository,
	batch *evaluator.Batch,
	matcher *matching.Matcher,
	graphDocs *graph.DocumentService,
	emitter *events.Emitter,
) *Processor {
	return &Processor{
		logger:       logger,
		documentRepo: documentRepo,
		ruleRepo:     ruleRepo,
		reportRepo:   reportRepo,
		batch:        batch,
		matcher:      matcher,
		graphDocs:    graphDocs,
		emitter:      emitter,
	}
}

// ProcessMessage handles an incoming document message from Kafka
func (p *Processor) ProcessMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.ProcessMessage")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"key":    msg.Key,
		"topic":  msg.Topic,
		"offset": msg.Offset,
	})

	if msg.ParsedDocument == nil {
		if err := msg.ParseDocumentMessage(); err != nil {
			log.WithError(err).Error("Failed to parse document message")
			return err
		}
	}

	tenantID := msg.GetTenantID()
	if tenantID == "" {
		// No retry can fix a message with no tenant
		log.Error("Missing tenant_id in message, skipping")
		return nil
	}

	log = log.WithFields(map[string]any{
		"tenant_id": tenantID,
		"doc_type":  msg.ParsedDocument.Document.DocType,
	})
	log.Debug("Processing document message")

	doc, err := p.Ingest(ctx, tenantID, msg.ParsedDocument.Document)
	if err != nil {
		metrics.RecordIngestedDocument(tenantID, string(msg.ParsedDocument.Document.DocType), "error")
		return err
	}

	// Reference documents only feed rule lookups; they are never evaluated
	// or matched themselves.
	if doc.DocType == models.DocumentTypeReference {
		return nil
	}

	if _, err := p.Evaluate(ctx, tenantID, []string{doc.ID}, nil, nil); err != nil {
		log.WithError(err).Warn("Post-ingest evaluation failed")
	}

	if _, err := p.Match(ctx, tenantID, doc.ID, models.MatchCriteria{}); err != nil {
		log.WithError(err).Warn("Post-ingest matching failed")
	}

	return nil
}

// Ingest stores a parsed document and registers it in the graph
func (p *Processor) Ingest(ctx context.Context, tenantID string, req models.CreateDocumentRequest) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Ingest")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"doc_type":  req.DocType,
	})

	doc, err := p.documentRepo.Create(ctx, tenantID, req)
	if err != nil {
		log.WithError(err).Error("Failed to store document")
		return nil, err
	}
	metrics.RecordIngestedDocument(tenantID, string(doc.DocType), "success")

	if p.graphDocs != nil {
		if err := p.graphDocs.UpsertDocument(ctx, doc); err != nil {
			// The graph is a projection; the document of record is already stored
			log.WithError(err).Warn("Failed to upsert document in graph")
		}
	}

	if p.emitter != nil {
		if err := p.emitter.EmitDocumentIngested(ctx, doc); err != nil {
			log.WithError(err).Warn("Failed to emit document.ingested event")
		}
	}

	return doc, nil
}

// Evaluate runs rules against a document set and persists the report.
// The set is built from stored documents named by ID plus any inline documents,
// which are evaluated without being stored. When ruleIDs is empty every active
// rule is considered; rules whose required document types are absent from the
// set are skipped, not failed.
func (p *Processor) Evaluate(ctx context.Context, tenantID string, documentIDs []string, inline []models.CreateDocumentRequest, ruleIDs []string) (*models.EvaluationReport, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Evaluate")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":      tenantID,
		"document_count": len(documentIDs),
	})

	set, err := p.buildDocumentSet(ctx, tenantID, documentIDs, inline)
	if err != nil {
		return nil, err
	}

	var rules []*models.Rule
	if len(ruleIDs) > 0 {
		rules = make([]*models.Rule, 0, len(ruleIDs))
		for _, id := range ruleIDs {
			rule, err := p.ruleRepo.Get(ctx, tenantID, id)
			if err != nil {
				return nil, err
			}
			rules = append(rules, rule)
		}
	} else {
		rules, err = p.ruleRepo.ListActive(ctx, tenantID)
		if err != nil {
			return nil, err
		}
	}

	applicable := evaluator.Applicable(rules, set)
	log.WithFields(map[string]any{
		"rule_count":       len(rules),
		"applicable_count": len(applicable),
	}).Debug("Evaluating document set")

	start := time.Now()
	results := p.batch.EvaluateAll(ctx, applicable, set)
	metrics.RecordEvaluationBatch(tenantID, time.Since(start).Seconds())
	for i, result := range results {
		metrics.RecordEvaluation(tenantID, string(applicable[i].CheckType), string(result.Result))
	}

	report, err := p.reportRepo.Create(ctx, tenantID, documentIDs, results)
	if err != nil {
		return nil, err
	}

	if p.emitter != nil {
		if err := p.emitter.EmitDocumentEvaluated(ctx, report); err != nil {
			log.WithError(err).Warn("Failed to emit document.evaluated event")
		}
	}

	return report, nil
}

// buildDocumentSet loads the named documents keyed by type, overlays any
// inline documents, and folds in the tenant's reference document when none was
// named explicitly. A set holds at most one document per type; the last
// document of a type wins, inline over stored.
func (p *Processor) buildDocumentSet(ctx context.Context, tenantID string, documentIDs []string, inline []models.CreateDocumentRequest) (models.DocumentSet, error) {
	docs, err := p.documentRepo.GetByIDs(ctx, tenantID, documentIDs)
	if err != nil {
		return nil, err
	}

	set := make(models.DocumentSet, len(docs)+len(inline)+1)
	for _, doc := range docs {
		set[string(doc.DocType)] = doc
	}
	for _, req := range inline {
		set[string(req.DocType)] = transientDocument(tenantID, req)
	}

	if _, ok := set[string(models.DocumentTypeReference)]; !ok {
		ref, err := p.documentRepo.GetReference(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			set[string(models.DocumentTypeReference)] = ref
		}
	}

	return set, nil
}

// transientDocument builds an unstored document for one-off evaluation. It has
// no ID and never touches the repositories.
func transientDocument(tenantID string, req models.CreateDocumentRequest) *models.Document {
	return &models.Document{
		TenantID:       tenantID,
		DocType:        req.DocType,
		Filename:       req.Filename,
		Vendor:         req.Vendor,
		VendorID:       req.VendorID,
		DocumentNumber: req.DocumentNumber,
		Date:           req.Date,
		TotalAmount:    req.TotalAmount,
		Currency:       req.Currency,
		RawText:        req.RawText,
		Fields:         req.Fields,
		Reference:      req.Reference,
	}
}

// Match scores a document against stored candidates and links matches in the graph
func (p *Processor) Match(ctx context.Context, tenantID string, sourceID string, criteria models.MatchCriteria) ([]models.DocumentMatch, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Match")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":       tenantID,
		"source_document": sourceID,
	})

	source, err := p.documentRepo.Get(ctx, tenantID, sourceID)
	if err != nil {
		return nil, err
	}

	var targetType *models.DocumentType
	if criteria.TargetType != "" {
		targetType = &criteria.TargetType
	}
	candidates, err := p.documentRepo.ListCandidates(ctx, tenantID, sourceID, targetType, 0)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	matches := p.matcher.FindMatches(ctx, source, candidates, criteria)
	metrics.RecordMatchRun(tenantID, time.Since(start).Seconds())

	for _, match := range matches {
		metrics.RecordMatch(tenantID, string(match.MatchType))
		if p.graphDocs != nil {
			if err := p.graphDocs.LinkDocuments(ctx, tenantID, match); err != nil {
				log.WithError(err).Warn("Failed to link documents in graph")
			}
		}
	}

	if len(matches) > 0 && p.emitter != nil {
		if err := p.emitter.EmitDocumentsMatched(ctx, tenantID, sourceID, matches); err != nil {
			log.WithError(err).Warn("Failed to emit documents.matched event")
		}
	}

	log.WithFields(map[string]any{"match_count": len(matches)}).Info("Match run completed")
	return matches, nil
}
