// Package rule persists compliance rules
package rule

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/auditkit/papertrail/pkg/models"
	"github.com/auditkit/papertrail/pkg/platform/database"
	"github.com/auditkit/papertrail/pkg/platform/tracing"
)

var ruleColumns = []string{
	"id", "tenant_id", "description", "applies_to", "fields", "check_type",
	"parameters", "on_fail", "is_active", "created_at", "updated_at", "deleted_at",
}

type ruleRow struct {
	models.Rule
	AppliesToJSON  database.JSONB[[]string]       `db:"applies_to"`
	FieldsJSON     database.JSONB[map[string]any] `db:"fields"`
	ParametersJSON database.JSONB[map[string]any] `db:"parameters"`
}

func (row *ruleRow) toModel() *models.Rule {
	r := row.Rule
	r.AppliesTo = row.AppliesToJSON.GetValue()
	r.Fields = row.FieldsJSON.GetValue()
	r.Parameters = row.ParametersJSON.GetValue()
	return &r
}

// Repository handles rule persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new rule repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create stores a rule. Rule IDs are author-chosen, so a duplicate within the
// tenant is a conflict rather than a server error.
func (r *Repository) Create(ctx context.Context, tenantID string, req models.CreateRuleRequest) (*models.Rule, error) {
	ctx, span := tracing.StartSpan(ctx, "rule.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":    "Create",
		"tenant_id": tenantID,
		"rule_id":   req.RuleID,
	})

	if !models.ValidCheckType(req.CheckType) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown check type: %s", req.CheckType))
	}

	if existing, err := r.Get(ctx, tenantID, req.RuleID); err == nil && existing != nil {
		return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("rule %s already exists", req.RuleID))
	}

	now := time.Now().UTC()
	rule := &models.Rule{
		ID:          req.RuleID,
		TenantID:    tenantID,
		Description: req.Description,
		AppliesTo:   req.AppliesTo,
		Fields:      req.Fields,
		CheckType:   req.CheckType,
		Parameters:  req.Parameters,
		OnFail:      req.OnFail,
		IsActive:    req.IsActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("rules")
	sb.Cols("id", "tenant_id", "description", "applies_to", "fields", "check_type",
		"parameters", "on_fail", "is_active", "created_at", "updated_at")
	sb.Values(rule.ID, rule.TenantID, rule.Description,
		database.NewJSONB(rule.AppliesTo), database.NewJSONB(rule.Fields), rule.CheckType,
		database.NewJSONB(rule.Parameters), rule.OnFail, rule.IsActive, rule.CreatedAt, rule.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create rule")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create rule")
	}

	log.Info("Created rule")
	return rule, nil
}

// Get retrieves a rule by ID
func (r *Repository) Get(ctx context.Context, tenantID string, id string) (*models.Rule, error) {
	ctx, span := tracing.StartSpan(ctx, "rule.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(ruleColumns...)
	sb.From("rules")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var row ruleRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("rule %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get rule")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get rule")
	}

	return row.toModel(), nil
}

// List retrieves rules for a tenant with pagination
func (r *Repository) List(ctx context.Context, tenantID string, page, pageSize int) ([]*models.Rule, int, error) {
	ctx, span := tracing.StartSpan(ctx, "rule.Repository.List")
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
	countSb.From("rules")
	countSb.Where(
		countSb.Equal("tenant_id", tenantID),
		countSb.IsNull("deleted_at"),
	)

	countQuery, countArgs := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count rules")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count rules")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(ruleColumns...)
	sb.From("rules")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize).Offset(offset)

	query, args := sb.Build()
	var rows []ruleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list rules")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list rules")
	}

	rules := make([]*models.Rule, len(rows))
	for i := range rows {
		rules[i] = rows[i].toModel()
	}
	return rules, totalCount, nil
}

// ListActive retrieves every active rule for a tenant. Evaluation runs over
// the full active set; applicability filtering happens in the evaluator.
func (r *Repository) ListActive(ctx context.Context, tenantID string) ([]*models.Rule, error) {
	ctx, span := tracing.StartSpan(ctx, "rule.Repository.ListActive")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(ruleColumns...)
	sb.From("rules")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("is_active", true),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("id ASC")

	query, args := sb.Build()
	var rows []ruleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list active rules")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list active rules")
	}

	rules := make([]*models.Rule, len(rows))
	for i := range rows {
		rules[i] = rows[i].toModel()
	}
	return rules, nil
}

// Update updates a rule
func (r *Repository) Update(ctx context.Context, tenantID string, id string, req models.UpdateRuleRequest) (*models.Rule, error) {
	ctx, span := tracing.StartSpan(ctx, "rule.Repository.Update")
	defer span.End()

	rule, err := r.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.AppliesTo != nil {
		rule.AppliesTo = req.AppliesTo
	}
	if req.Fields != nil {
		rule.Fields = req.Fields
	}
	if req.CheckType != nil {
		if !models.ValidCheckType(*req.CheckType) {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown check type: %s", *req.CheckType))
		}
		rule.CheckType = *req.CheckType
	}
	if req.Parameters != nil {
		rule.Parameters = req.Parameters
	}
	if req.OnFail != nil {
		rule.OnFail = *req.OnFail
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	rule.UpdatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("rules")
	sb.Set(
		sb.Assign("description", rule.Description),
		sb.Assign("applies_to", database.NewJSONB(rule.AppliesTo)),
		sb.Assign("fields", database.NewJSONB(rule.Fields)),
		sb.Assign("check_type", rule.CheckType),
		sb.Assign("parameters", database.NewJSONB(rule.Parameters)),
		sb.Assign("on_fail", rule.OnFail),
		sb.Assign("is_active", rule.IsActive),
		sb.Assign("updated_at", rule.UpdatedAt),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update rule")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update rule")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"rule_id": id}).Info("Updated rule")
	return rule, nil
}

// Delete soft deletes a rule
func (r *Repository) Delete(ctx context.Context, tenantID string, id string) error {
	ctx, span := tracing.StartSpan(ctx, "rule.Repository.Delete")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("rules")
	sb.Set(sb.Assign("deleted_at", now))
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete rule")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete rule")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("rule %s not found", id))
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{"rule_id": id}).Info("Deleted rule")
	return nil
}
