// Package template renders the handlebars templates used for auto-replies and
// ticket notifications.
package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/aymerick/raymond"
	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
)

// Error is returned when a template cannot be compiled or executed
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("template rendering failed: %v", e.Err)
}

// Unwrap exposes both the cause and ErrTemplateInvalid to errors.Is
func (e *Error) Unwrap() []error {
	return []error{apperrors.ErrTemplateInvalid, e.Err}
}

// Variables is the flat value bag a template is rendered against
type Variables map[string]interface{}

// Content is the three renderable parts of an email template
type Content struct {
	Subject string `json:"subject"`
	Text    string `json:"body_text"`
	HTML    string `json:"body_html"`
}

// Rendered is a rendered email
type Rendered struct {
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// ValidationResult reports whether a template compiles
type ValidationResult struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
}

// Engine compiles and renders templates. It holds no state and is safe for
// concurrent use.
type Engine struct {
	now func() time.Time
}

// NewEngine creates a new template engine
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// positionalFormat matches formatDate called with a positional format string
var positionalFormat = regexp.MustCompile(`\{\{(\{?)\s*formatDate\s+([^\s}]+)\s+("[^"]*"|'[^']*')\s*(\}?)\}\}`)

// normalize rewrites {{formatDate x "PP"}} into {{formatDate x format="PP"}}
func normalize(source string) string {
	return positionalFormat.ReplaceAllString(source, `{{${1}formatDate ${2} format=${3}${4}}}`)
}

func compile(source string, escapeHTML bool) (*raymond.Template, error) {
	tpl, err := raymond.Parse(normalize(source))
	if err != nil {
		return nil, &Error{Err: err}
	}
	tpl.RegisterHelpers(helpers(escapeHTML))
	return tpl, nil
}

func (e *Engine) render(source string, vars Variables, escapeHTML bool) (string, error) {
	tpl, err := compile(source, escapeHTML)
	if err != nil {
		return "", err
	}

	ctx := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		if s, ok := v.(string); ok && !escapeHTML {
			ctx[k] = raymond.SafeString(s)
			continue
		}
		ctx[k] = v
	}

	out, err := tpl.Exec(ctx)
	if err != nil {
		return "", &Error{Err: err}
	}
	return out, nil
}

// Render renders a plain-text template. Values are inserted verbatim.
func (e *Engine) Render(source string, vars Variables) (string, error) {
	return e.render(source, vars, false)
}

// RenderHTML renders an HTML template. Double-stash values are HTML-escaped;
// triple-stash values are inserted verbatim.
func (e *Engine) RenderHTML(source string, vars Variables) (string, error) {
	return e.render(source, vars, true)
}

// RenderContent renders the subject, text and HTML parts of a template
func (e *Engine) RenderContent(content Content, vars Variables) (Rendered, error) {
	var (
		out Rendered
		err error
	)
	if out.Subject, err = e.Render(content.Subject, vars); err != nil {
		return Rendered{}, err
	}
	if out.Text, err = e.Render(content.Text, vars); err != nil {
		return Rendered{}, err
	}
	if out.HTML, err = e.RenderHTML(content.HTML, vars); err != nil {
		return Rendered{}, err
	}
	out.Subject = strings.TrimSpace(out.Subject)
	return out, nil
}

// Validate compiles a template without rendering it
func (e *Engine) Validate(source string) ValidationResult {
	if _, err := compile(source, false); err != nil {
		return ValidationResult{IsValid: false, Error: err.Error()}
	}
	return ValidationResult{IsValid: true}
}

// ValidateContent validates every part of a template and returns the first
// failure, prefixed with the part name
func (e *Engine) ValidateContent(content Content) error {
	parts := []struct {
		name   string
		source string
	}{
		{"subject", content.Subject},
		{"text body", content.Text},
		{"html body", content.HTML},
	}
	for _, p := range parts {
		if strings.TrimSpace(p.source) == "" {
			return fmt.Errorf("%s is required: %w", p.name, apperrors.ErrInvalidInput)
		}
		if _, err := compile(p.source, false); err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	return nil
}

// Preview renders a template against a fixed sample of realistic values
func (e *Engine) Preview(content Content, companyName string) (Rendered, error) {
	return e.RenderContent(content, SampleVariables(companyName, e.now()))
}

var (
	mustachePattern = regexp.MustCompile(`\{\{\{?~?([^{}]+?)~?\}?\}\}`)
	identPattern    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z0-9_]+)*$`)
)

// builtin block helpers and the helpers registered by the engine
var helperNames = map[string]bool{
	"if": true, "unless": true, "each": true, "with": true, "lookup": true, "log": true, "equal": true,
	"formatDate": true, "uppercase": true, "lowercase": true, "capitalize": true,
}

// ExtractVariables returns the sorted, unique variable names a template
// references. Helper names, closing tags, comments and partials are skipped;
// helper arguments are included.
func (e *Engine) ExtractVariables(source string) []string {
	seen := make(map[string]struct{})

	for _, m := range mustachePattern.FindAllStringSubmatch(source, -1) {
		expr := strings.TrimSpace(m[1])
		if expr == "" {
			continue
		}

		switch expr[0] {
		case '/', '!', '>':
			continue
		case '#', '^':
			expr = strings.TrimSpace(expr[1:])
		}

		fields := strings.Fields(expr)
		if len(fields) == 0 || fields[0] == "else" {
			continue
		}
		if helperNames[fields[0]] || len(fields) > 1 {
			fields = fields[1:]
		}

		for _, f := range fields {
			if i := strings.IndexByte(f, '='); i >= 0 {
				f = f[i+1:]
			}
			if f == "this" || !identPattern.MatchString(f) || f == "true" || f == "false" {
				continue
			}
			seen[f] = struct{}{}
		}
	}

	vars := make([]string, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}
