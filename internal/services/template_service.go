package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"github.com/welldanyogia/helpdesk-mailsync/internal/repository"
	"github.com/welldanyogia/helpdesk-mailsync/internal/template"
	"gorm.io/datatypes"
)

// TemplateInput is the editable part of a template. Nil flags and empty
// strings leave the stored value unchanged on update.
type TemplateInput struct {
	Name      string                 `json:"name"`
	Subject   string                 `json:"subject"`
	BodyText  string                 `json:"body_text"`
	BodyHTML  string                 `json:"body_html"`
	IsDefault *bool                  `json:"is_default"`
	IsActive  *bool                  `json:"is_active"`
	Variables map[string]interface{} `json:"variables"`
}

// PreviewResult is a rendered template together with the variables it uses
type PreviewResult struct {
	Preview    template.Rendered                    `json:"preview"`
	Variables  []string                             `json:"variables"`
	Validation map[string]template.ValidationResult `json:"validation"`
}

// TemplateService administers the auto-reply and notification templates of
// a company
type TemplateService struct {
	companies repository.CompanyRepository
	templates repository.TemplateRepository
	engine    *template.Engine
	logger    *slog.Logger
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(
	companies repository.CompanyRepository,
	templates repository.TemplateRepository,
	engine *template.Engine,
	logger *slog.Logger,
) *TemplateService {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = template.NewEngine()
	}
	return &TemplateService{
		companies: companies,
		templates: templates,
		engine:    engine,
		logger:    logger,
	}
}

func (s *TemplateService) company(ctx context.Context, slug string) (*models.Company, error) {
	company, err := s.companies.GetBySlug(ctx, slug)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrCompanyNotFound
		}
		return nil, err
	}
	return company, nil
}

func checkKind(kind models.TemplateKind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown template kind %q: %w", kind, apperrors.ErrInvalidInput)
	}
	return nil
}

// List returns the templates of one kind, default first
func (s *TemplateService) List(ctx context.Context, slug string, kind models.TemplateKind) ([]models.MessageTemplate, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	company, err := s.company(ctx, slug)
	if err != nil {
		return nil, err
	}
	return s.templates.ListByCompany(ctx, company.ID, kind)
}

// Get returns one template
func (s *TemplateService) Get(ctx context.Context, slug string, kind models.TemplateKind, id uint) (*models.MessageTemplate, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	company, err := s.company(ctx, slug)
	if err != nil {
		return nil, err
	}
	tpl, err := s.templates.GetByID(ctx, company.ID, kind, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrTemplateNotFound
		}
		return nil, err
	}
	return tpl, nil
}

// Create validates and stores a new template. Variables default to the
// descriptions of the kind.
func (s *TemplateService) Create(ctx context.Context, slug string, kind models.TemplateKind, in TemplateInput) (*models.MessageTemplate, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	company, err := s.company(ctx, slug)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", apperrors.ErrInvalidInput)
	}
	content := template.Content{Subject: in.Subject, Text: in.BodyText, HTML: in.BodyHTML}
	if err := s.engine.ValidateContent(content); err != nil {
		return nil, err
	}

	tpl := &models.MessageTemplate{
		CompanyID: company.ID,
		Kind:      kind,
		Name:      name,
		Subject:   in.Subject,
		BodyText:  in.BodyText,
		BodyHTML:  in.BodyHTML,
		IsDefault: in.IsDefault != nil && *in.IsDefault,
		IsActive:  in.IsActive == nil || *in.IsActive,
		Variables: datatypes.JSONMap(in.Variables),
	}
	if len(tpl.Variables) == 0 {
		tpl.Variables = variableDescriptions(kind)
	}

	if err := s.templates.Create(ctx, tpl); err != nil {
		return nil, err
	}
	s.logger.Info("template created",
		slog.Uint64("company_id", uint64(company.ID)),
		slog.String("kind", string(kind)),
		slog.Uint64("template_id", uint64(tpl.ID)))
	return tpl, nil
}

// Update applies in to a stored template and validates the result
func (s *TemplateService) Update(ctx context.Context, slug string, kind models.TemplateKind, id uint, in TemplateInput) (*models.MessageTemplate, error) {
	tpl, err := s.Get(ctx, slug, kind, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		tpl.Name = name
	}
	if in.Subject != "" {
		tpl.Subject = in.Subject
	}
	if in.BodyText != "" {
		tpl.BodyText = in.BodyText
	}
	if in.BodyHTML != "" {
		tpl.BodyHTML = in.BodyHTML
	}
	if in.IsDefault != nil {
		tpl.IsDefault = *in.IsDefault
	}
	if in.IsActive != nil {
		tpl.IsActive = *in.IsActive
	}
	if in.Variables != nil {
		tpl.Variables = datatypes.JSONMap(in.Variables)
	}

	content := template.Content{Subject: tpl.Subject, Text: tpl.BodyText, HTML: tpl.BodyHTML}
	if err := s.engine.ValidateContent(content); err != nil {
		return nil, err
	}

	if err := s.templates.Update(ctx, tpl); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrTemplateNotFound
		}
		return nil, err
	}
	return tpl, nil
}

// Delete removes a template. The last template of a kind is kept.
func (s *TemplateService) Delete(ctx context.Context, slug string, kind models.TemplateKind, id uint) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	company, err := s.company(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.templates.Delete(ctx, company.ID, kind, id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.ErrTemplateNotFound
		}
		return err
	}
	s.logger.Info("template deleted",
		slog.Uint64("company_id", uint64(company.ID)),
		slog.String("kind", string(kind)),
		slog.Uint64("template_id", uint64(id)))
	return nil
}

// InitDefault creates the built-in default template of a kind for a company
// that has none yet
func (s *TemplateService) InitDefault(ctx context.Context, slug string, kind models.TemplateKind) ([]models.MessageTemplate, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	company, err := s.company(ctx, slug)
	if err != nil {
		return nil, err
	}

	count, err := s.templates.Count(ctx, company.ID, kind)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperrors.ErrTemplatesExist
	}

	name, content := template.DefaultAutoReplyName, template.DefaultAutoReply
	if kind == models.TemplateKindNotification {
		name, content = template.DefaultNotificationName, template.DefaultNotification
	}
	defaults := []models.MessageTemplate{{
		CompanyID: company.ID,
		Kind:      kind,
		Name:      name,
		Subject:   content.Subject,
		BodyText:  content.Text,
		BodyHTML:  content.HTML,
		IsDefault: true,
		IsActive:  true,
		Variables: variableDescriptions(kind),
	}}
	if err := s.templates.CreateBatch(ctx, defaults); err != nil {
		return nil, err
	}
	return defaults, nil
}

// Preview validates content and renders it against sample values for the
// company
func (s *TemplateService) Preview(ctx context.Context, slug string, content template.Content) (*PreviewResult, error) {
	company, err := s.company(ctx, slug)
	if err != nil {
		return nil, err
	}

	result := &PreviewResult{Validation: s.validateParts(content)}
	for _, part := range []string{"subject", "text", "html"} {
		if v := result.Validation[part]; !v.IsValid {
			return nil, &template.Error{Err: fmt.Errorf("%s: %s", part, v.Error)}
		}
	}

	if result.Preview, err = s.engine.Preview(content, company.Name); err != nil {
		return nil, err
	}
	result.Variables = s.variables(content)
	return result, nil
}

// Validate reports whether source compiles and which variables it uses
func (s *TemplateService) Validate(source string) (template.ValidationResult, []string) {
	res := s.engine.Validate(source)
	if !res.IsValid {
		return res, nil
	}
	return res, s.engine.ExtractVariables(source)
}

func (s *TemplateService) validateParts(content template.Content) map[string]template.ValidationResult {
	return map[string]template.ValidationResult{
		"subject": s.engine.Validate(content.Subject),
		"text":    s.engine.Validate(content.Text),
		"html":    s.engine.Validate(content.HTML),
	}
}

func (s *TemplateService) variables(content template.Content) []string {
	seen := make(map[string]struct{})
	for _, source := range []string{content.Subject, content.Text, content.HTML} {
		for _, v := range s.engine.ExtractVariables(source) {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func variableDescriptions(kind models.TemplateKind) datatypes.JSONMap {
	src := template.AutoReplyVariableDescriptions
	if kind == models.TemplateKindNotification {
		src = template.NotificationVariableDescriptions
	}
	out := make(datatypes.JSONMap, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
