package handlers

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/helpdesk-mailsync/internal/api/response"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"github.com/welldanyogia/helpdesk-mailsync/internal/services"
	"github.com/welldanyogia/helpdesk-mailsync/internal/template"
)

// TemplateManager administers per-company templates of one kind or both
type TemplateManager interface {
	List(ctx context.Context, slug string, kind models.TemplateKind) ([]models.MessageTemplate, error)
	Get(ctx context.Context, slug string, kind models.TemplateKind, id uint) (*models.MessageTemplate, error)
	Create(ctx context.Context, slug string, kind models.TemplateKind, in services.TemplateInput) (*models.MessageTemplate, error)
	Update(ctx context.Context, slug string, kind models.TemplateKind, id uint, in services.TemplateInput) (*models.MessageTemplate, error)
	Delete(ctx context.Context, slug string, kind models.TemplateKind, id uint) error
	InitDefault(ctx context.Context, slug string, kind models.TemplateKind) ([]models.MessageTemplate, error)
	Preview(ctx context.Context, slug string, content template.Content) (*services.PreviewResult, error)
	Validate(source string) (template.ValidationResult, []string)
}

// TemplateHandler serves the template routes of one template kind
type TemplateHandler struct {
	templates TemplateManager
	kind      models.TemplateKind
}

// NewTemplateHandler creates a handler for templates of kind
func NewTemplateHandler(templates TemplateManager, kind models.TemplateKind) *TemplateHandler {
	return &TemplateHandler{templates: templates, kind: kind}
}

// ValidateRequest carries a single template source to check
type ValidateRequest struct {
	Template string `json:"template"`
}

// ValidateResponse reports whether a template compiles and what it references
type ValidateResponse struct {
	template.ValidationResult
	Variables []string `json:"variables"`
}

// List handles GET /api/companies/:slug/<kind>-templates
func (h *TemplateHandler) List(c echo.Context) error {
	templates, err := h.templates.List(c.Request().Context(), c.Param("slug"), h.kind)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, templates)
}

// Get handles GET /api/companies/:slug/<kind>-templates/:id
func (h *TemplateHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid template ID")
	}

	tpl, err := h.templates.Get(c.Request().Context(), c.Param("slug"), h.kind, id)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, tpl)
}

// Create handles POST /api/companies/:slug/<kind>-templates
func (h *TemplateHandler) Create(c echo.Context) error {
	var req services.TemplateInput
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	tpl, err := h.templates.Create(c.Request().Context(), c.Param("slug"), h.kind, req)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, tpl)
}

// Update handles PUT /api/companies/:slug/<kind>-templates/:id
func (h *TemplateHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid template ID")
	}

	var req services.TemplateInput
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	tpl, err := h.templates.Update(c.Request().Context(), c.Param("slug"), h.kind, id, req)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, tpl)
}

// Delete handles DELETE /api/companies/:slug/<kind>-templates/:id
func (h *TemplateHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "invalid template ID")
	}

	if err := h.templates.Delete(c.Request().Context(), c.Param("slug"), h.kind, id); err != nil {
		return response.Error(c, err)
	}
	return response.NoContent(c)
}

// InitDefault handles POST /api/companies/:slug/<kind>-templates/init-default
func (h *TemplateHandler) InitDefault(c echo.Context) error {
	templates, err := h.templates.InitDefault(c.Request().Context(), c.Param("slug"), h.kind)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, templates)
}

// Preview handles POST /api/companies/:slug/<kind>-templates/preview
func (h *TemplateHandler) Preview(c echo.Context) error {
	var req template.Content
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	result, err := h.templates.Preview(c.Request().Context(), c.Param("slug"), req)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, result)
}

// Validate handles POST /api/templates/validate. An invalid template is a
// successful call whose result says so.
func (h *TemplateHandler) Validate(c echo.Context) error {
	var req ValidateRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	result, vars := h.templates.Validate(req.Template)
	if vars == nil {
		vars = []string{}
	}
	return response.Success(c, ValidateResponse{ValidationResult: result, Variables: vars})
}
