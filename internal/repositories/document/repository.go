// Package document persists parsed business documents
package document

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/auditkit/papertrail/pkg/fingerprint"
	"github.com/auditkit/papertrail/pkg/models"
	"github.com/auditkit/papertrail/pkg/normalizers"
	"github.com/auditkit/papertrail/pkg/platform/database"
	"github.com/auditkit/papertrail/pkg/platform/tracing"
)

var documentColumns = []string{
	"id", "tenant_id", "doc_type", "filename", "vendor", "vendor_id",
	"document_number", "doc_date", "total_amount", "currency", "raw_text",
	"fingerprint", "fields", "reference", "created_at", "updated_at", "deleted_at",
}

// documentRow carries the JSONB columns alongside the model for scanning
type documentRow struct {
	models.Document
	FieldsJSON    database.JSONB[map[string]any] `db:"fields"`
	ReferenceJSON database.JSONB[map[string]any] `db:"reference"`
}

func (row *documentRow) toModel() *models.Document {
	doc := row.Document
	doc.Fields = row.FieldsJSON.GetValue()
	doc.Reference = row.ReferenceJSON.GetValue()
	return &doc
}

// Repository handles document persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new document repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create stores a parsed document. Identifier fields are normalized on the
// way in so lookups and exact matching see one canonical form. A redelivery
// of already-stored content returns the existing document instead of
// inserting a duplicate.
func (r *Repository) Create(ctx context.Context, tenantID string, req models.CreateDocumentRequest) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":    "Create",
		"tenant_id": tenantID,
		"doc_type":  req.DocType,
	})

	now := time.Now().UTC()
	doc := &models.Document{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		DocType:        req.DocType,
		Filename:       req.Filename,
		Vendor:         normalizers.Apply(req.Vendor, "vendor_name"),
		VendorID:       normalizers.Apply(req.VendorID, "trim"),
		DocumentNumber: normalizers.Apply(req.DocumentNumber, "document_number"),
		Date:           req.Date,
		TotalAmount:    req.TotalAmount,
		Currency:       normalizers.Apply(req.Currency, "currency"),
		RawText:        req.RawText,
		Fields:         req.Fields,
		Reference:      req.Reference,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	doc.Fingerprint = fingerprint.ForDocument(
		string(doc.DocType), doc.Vendor, doc.VendorID, doc.DocumentNumber,
		doc.Currency, doc.Date, doc.TotalAmount, doc.Fields, doc.Reference,
	)

	if existing, err := r.getByFingerprint(ctx, tenantID, doc.Fingerprint); err == nil && existing != nil {
		log.WithFields(map[string]any{"id": existing.ID}).Info("Document already stored, skipping duplicate")
		return existing, nil
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("documents")
	sb.Cols("id", "tenant_id", "doc_type", "filename", "vendor", "vendor_id",
		"document_number", "doc_date", "total_amount", "currency", "raw_text",
		"fingerprint", "fields", "reference", "created_at", "updated_at")
	sb.Values(doc.ID, doc.TenantID, doc.DocType, doc.Filename, doc.Vendor, doc.VendorID,
		doc.DocumentNumber, doc.Date, doc.TotalAmount, doc.Currency, doc.RawText,
		doc.Fingerprint, database.NewJSONB(doc.Fields), database.NewJSONB(doc.Reference), doc.CreatedAt, doc.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create document")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create document")
	}

	log.WithFields(map[string]any{"id": doc.ID}).Info("Created document")
	return doc, nil
}

// getByFingerprint finds a live document with identical content, nil when none
func (r *Repository) getByFingerprint(ctx context.Context, tenantID string, fp string) (*models.Document, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(documentColumns...)
	sb.From("documents")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("fingerprint", fp),
		sb.IsNull("deleted_at"),
	)
	sb.Limit(1)

	query, args := sb.Build()
	var row documentRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		return nil, err
	}
	return row.toModel(), nil
}

// Get retrieves a document by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(documentColumns...)
	sb.From("documents")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var row documentRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("document %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get document")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get document")
	}

	return row.toModel(), nil
}

// GetByIDs retrieves a set of documents by ID. Missing IDs are simply absent
// from the result; the caller decides whether that matters.
func (r *Repository) GetByIDs(ctx context.Context, tenantID string, ids []string) ([]*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.GetByIDs")
	defer span.End()

	if len(ids) == 0 {
		return []*models.Document{}, nil
	}

	idArgs := make([]any, len(ids))
	for i, id := range ids {
		idArgs[i] = id
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(documentColumns...)
	sb.From("documents")
	sb.Where(
		sb.In("id", idArgs...),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get documents")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get documents")
	}

	docs := make([]*models.Document, len(rows))
	for i := range rows {
		docs[i] = rows[i].toModel()
	}
	return docs, nil
}

// List retrieves documents for a tenant, optionally filtered by type
func (r *Repository) List(ctx context.Context, tenantID string, docType *models.DocumentType, page, pageSize int) ([]*models.Document, int, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("documents")
	countWhere := []string{
		countSb.Equal("tenant_id", tenantID),
		countSb.IsNull("deleted_at"),
	}
	if docType != nil {
		countWhere = append(countWhere, countSb.Equal("doc_type", *docType))
	}
	countSb.Where(countWhere...)

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count documents")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count documents")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(documentColumns...)
	sb.From("documents")
	where := []string{
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	}
	if docType != nil {
		where = append(where, sb.Equal("doc_type", *docType))
	}
	sb.Where(where...)
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list documents")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list documents")
	}

	docs := make([]*models.Document, len(rows))
	for i := range rows {
		docs[i] = rows[i].toModel()
	}
	return docs, totalCount, nil
}

// ListCandidates retrieves match candidates: every live document except the
// source, optionally restricted to one type.
func (r *Repository) ListCandidates(ctx context.Context, tenantID string, excludeID string, docType *models.DocumentType, limit int) ([]*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.ListCandidates")
	defer span.End()

	if limit < 1 || limit > 1000 {
		limit = 500
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(documentColumns...)
	sb.From("documents")
	where := []string{
		sb.Equal("tenant_id", tenantID),
		sb.NotEqual("id", excludeID),
		sb.NotEqual("doc_type", models.DocumentTypeReference),
		sb.IsNull("deleted_at"),
	}
	if docType != nil {
		where = append(where, sb.Equal("doc_type", *docType))
	}
	sb.Where(where...)
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list candidate documents")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list candidate documents")
	}

	docs := make([]*models.Document, len(rows))
	for i := range rows {
		docs[i] = rows[i].toModel()
	}
	return docs, nil
}

// GetReference retrieves the tenant's reference document (allow-lists), nil
// when none exists.
func (r *Repository) GetReference(ctx context.Context, tenantID string) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.GetReference")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(documentColumns...)
	sb.From("documents")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("doc_type", models.DocumentTypeReference),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var row documentRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get reference document")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get reference document")
	}

	return row.toModel(), nil
}

// Delete soft deletes a document
func (r *Repository) Delete(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.Delete")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("documents")
	sb.Set(sb.Assign("deleted_at", now))
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete document")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete document")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("document %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"id": id}).Info("Deleted document")
	return nil
}
