package document

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	documentrepo "github.com/auditkit/papertrail/internal/repositories/document"
	"github.com/auditkit/papertrail/pkg/graph"
	"github.com/auditkit/papertrail/pkg/models"
	"github.com/auditkit/papertrail/pkg/platform/reqcontext"
	"github.com/auditkit/papertrail/pkg/processor"
)

var validate = validator.New()

// Register registers document routes
func Register(g *echo.Group) {
	g.POST("", IngestDocument)
	g.GET("", ListDocuments)
	g.GET("/:id", GetDocument)
	g.GET("/:id/links", GetDocumentLinks)
	g.DELETE("/:id", DeleteDocument)
}

// IngestDocument submits a parsed document to the compliance pipeline
func IngestDocument(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := reqcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	var req models.CreateDocumentRequest
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

	doc, err := proc.Ingest(ctx, tenantID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, doc)
}

// ListDocuments lists documents, optionally filtered by doc_type
func ListDocuments(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := reqcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	var docType *models.DocumentType
	if t := c.QueryParam("doc_type"); t != "" {
		dt := models.DocumentType(t)
		docType = &dt
	}

	ctx, repo, err := ectoinject.GetContext[*documentrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	docs, total, err := repo.List(ctx, tenantID, docType, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"documents": docs,
		"total":     total,
	})
}

// GetDocument gets a document by ID
func GetDocument(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := reqcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*documentrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	doc, err := repo.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, doc)
}

// GetDocumentLinks returns the document's match neighborhood from the graph
func GetDocumentLinks(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := reqcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	id := c.Param("id")

	ctx, svc, err := ectoinject.GetContext[*graph.DocumentService](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "graph service unavailable")
	}

	linked, err := svc.GetLinkedDocuments(ctx, tenantID, id)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get linked documents")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"document_id": id,
		"links":       linked,
	})
}

// DeleteDocument soft deletes a document
func DeleteDocument(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := reqcontext.GetTenantID(ctx)
	if tenantID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*documentrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
