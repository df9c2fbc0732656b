package evaluation

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	reportrepo "github.com/auditkit/papertrail/internal/repositories/report"
	"github.com/auditkit/papertrail/pkg/models"
	"github.com/auditkit/papertrail/pkg/platform/reqcontext"
	"github.com/auditkit/papertrail/pkg/processor"
)

var validate = validator.New()

// Register registers evaluation routes
func Register(g *echo.Group) {
	g.POST("", EvaluateDocuments)
	g.GET("", ListReports)
	g.GET("/:id", GetReport)
}

// EvaluateRequest names the documents to evaluate together, by stored ID or
// inline. When rule_ids is empty every active rule is considered.
type EvaluateRequest struct {
	DocumentIDs []string                       `json:"document_ids,omitempty"`
	Documents   []models.CreateDocumentRequest `json:"documents,omitempty" validate:"dive"`
	RuleIDs     []string                       `json:"rule_ids,omitempty"`
}

// EvaluateDocuments runs rules against a document set and returns the report
func EvaluateDocuments(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := reqcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req EvaluateRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.DocumentIDs) == 0 && len(req.Documents) == 0 {
		return httperror.NewHTTPError(http.StatusBadRequest, "document_ids or documents is required")
	}

	ctx, proc, err := ectoinject.GetContext[*processor.Processor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	report, err := proc.Evaluate(ctx, tenantID, req.DocumentIDs, req.Documents, req.RuleIDs)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, report)
}

// ListReports lists evaluation reports for the tenant
func ListReports(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := reqcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	ctx, repo, err := ectoinject.GetContext[*reportrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	reports, total, err := repo.List(ctx, tenantID, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"reports": reports,
		"total":   total,
	})
}

// GetReport gets an evaluation report by ID
func GetReport(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := reqcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*reportrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	report, err := repo.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, report)
}
