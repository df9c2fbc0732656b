// Package report persists batch evaluation reports
package report

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/auditkit/papertrail/pkg/models"
	"github.com/auditkit/papertrail/pkg/platform/database"
	"github.com/auditkit/papertrail/pkg/platform/tracing"
)

var reportColumns = []string{
	"id", "tenant_id", "document_ids", "results", "summary", "created_at",
}

type reportRow struct {
	models.EvaluationReport
	DocumentIDsJSON database.JSONB[[]string]                  `db:"document_ids"`
	ResultsJSON     database.JSONB[[]models.EvaluationResult] `db:"results"`
	SummaryJSON     database.JSONB[models.EvaluationSummary]  `db:"summary"`
}

func (row *reportRow) toModel() *models.EvaluationReport {
	report := row.EvaluationReport
	report.DocumentIDs = row.DocumentIDsJSON.GetValue()
	report.Results = row.ResultsJSON.GetValue()
	report.Summary = row.SummaryJSON.GetValue()
	return &report
}

// Repository handles evaluation report persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new report repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create stores a batch evaluation report
func (r *Repository) Create(ctx context.Context, tenantID string, documentIDs []string, results []models.EvaluationResult) (*models.EvaluationReport, error) {
	ctx, span := tracing.StartSpan(ctx, "report.Repository.Create")
	defer span.End()

	report := &models.EvaluationReport{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		DocumentIDs: documentIDs,
		Results:     results,
		Summary:     models.Summarize(results),
		CreatedAt:   time.Now().UTC(),
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("evaluation_reports")
	sb.Cols("id", "tenant_id", "document_ids", "results", "summary", "created_at")
	sb.Values(report.ID, report.TenantID,
		database.NewJSONB(report.DocumentIDs), database.NewJSONB(report.Results),
		database.NewJSONB(report.Summary), report.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create evaluation report")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create evaluation report")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"report_id":   report.ID,
		"tenant_id":   tenantID,
		"total_rules": report.Summary.TotalRules,
		"pass_rate":   report.Summary.PassRate,
	}).Info("Created evaluation report")
	return report, nil
}

// Get retrieves an evaluation report by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.EvaluationReport, error) {
	ctx, span := tracing.StartSpan(ctx, "report.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(reportColumns...)
	sb.From("evaluation_reports")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var row reportRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("evaluation report %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get evaluation report")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get evaluation report")
	}

	return row.toModel(), nil
}

// List retrieves evaluation reports for a tenant with pagination
func (r *Repository) List(ctx context.Context, tenantID string, page, pageSize int) ([]*models.EvaluationReport, int, error) {
	ctx, span := tracing.StartSpan(ctx, "report.Repository.List")
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
	countSb.From("evaluation_reports")
	countSb.Where(countSb.Equal("tenant_id", tenantID))

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count evaluation reports")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count evaluation reports")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(reportColumns...)
	sb.From("evaluation_reports")
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var rows []reportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list evaluation reports")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list evaluation reports")
	}

	reports := make([]*models.EvaluationReport, len(rows))
	for i := range rows {
		reports[i] = rows[i].toModel()
	}
	return reports, totalCount, nil
}
