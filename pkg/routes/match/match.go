package match

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/auditkit/papertrail/pkg/models"
	"github.com/auditkit/papertrail/pkg/platform/reqcontext"
	"github.com/auditkit/papertrail/pkg/processor"
)

var validate = validator.New()

// Register registers match routes
func Register(g *echo.Group) {
	g.POST("", FindMatches)
}

// FindMatchesRequest names the source document and the run criteria
type FindMatchesRequest struct {
	SourceDocumentID      string              `json:"source_document_id" validate:"required"`
	TargetType            models.DocumentType `json:"target_type,omitempty"`
	MinConfidence         float64             `json:"min_confidence,omitempty"`
	MinSemanticSimilarity float64             `json:"min_semantic_similarity,omitempty"`
}

// FindMatches scores the source document against stored candidates
func FindMatches(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := reqcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req FindMatchesRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, proc, err := ectoinject.GetContext[*processor.Processor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	criteria := models.MatchCriteria{
		TargetType:            req.TargetType,
		MinConfidence:         req.MinConfidence,
		MinSemanticSimilarity: req.MinSemanticSimilarity,
	}

	matches, err := proc.Match(ctx, tenantID, req.SourceDocumentID, criteria)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"source_document": req.SourceDocumentID,
		"matches":         matches,
	})
}
