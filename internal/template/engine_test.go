package template

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
)

func fixedEngine(now time.Time) *Engine {
	return &Engine{now: func() time.Time { return now }}
}

func TestRender_SubstitutesVariables(t *testing.T) {
	e := NewEngine()

	out, err := e.Render("Hello {{customerName}}, ticket {{ticketNumber}}", Variables{
		"customerName": "Jane",
		"ticketNumber": "AAR-0001",
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello Jane, ticket AAR-0001", out)
}

func TestRender_TextIsNotEscaped(t *testing.T) {
	out, err := NewEngine().Render("{{subject}}", Variables{"subject": `Tom & Jerry <"quote">`})

	require.NoError(t, err)
	assert.Equal(t, `Tom & Jerry <"quote">`, out)
}

func TestRenderHTML_EscapesValues(t *testing.T) {
	e := NewEngine()

	out, err := e.RenderHTML("<p>{{subject}}</p>", Variables{"subject": "<script>x</script>"})
	require.NoError(t, err)
	assert.Equal(t, "<p>&lt;script&gt;x&lt;/script&gt;</p>", out)

	out, err = e.RenderHTML("{{{body}}}", Variables{"body": "<b>ok</b>"})
	require.NoError(t, err)
	assert.Equal(t, "<b>ok</b>", out)
}

func TestRender_MissingVariableRendersEmpty(t *testing.T) {
	out, err := NewEngine().Render("[{{ticketNumber}}]{{nope}}", Variables{"ticketNumber": "X"})

	require.NoError(t, err)
	assert.Equal(t, "[X]", out)
}

func TestRender_InvalidTemplate(t *testing.T) {
	_, err := NewEngine().Render("Hello {{name", Variables{})

	require.Error(t, err)
	var tplErr *Error
	assert.True(t, errors.As(err, &tplErr))
	assert.True(t, errors.Is(err, apperrors.ErrTemplateInvalid))
	assert.Equal(t, apperrors.CodeTemplateInvalid, apperrors.GetErrorCode(err))
}

func TestRender_NoPlaceholdersRemainWhenAllKeysPresent(t *testing.T) {
	e := NewEngine()
	vars := SampleVariables("Acme", time.Now())

	for _, content := range []Content{DefaultAutoReply, DefaultNotification, FallbackAutoReply} {
		out, err := e.RenderContent(content, vars)
		require.NoError(t, err)
		for _, part := range []string{out.Subject, out.Text, out.HTML} {
			assert.NotContains(t, part, "{{")
			assert.NotContains(t, part, "}}")
		}
	}
}

func TestHelpers(t *testing.T) {
	e := NewEngine()
	created := time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC)

	tests := []struct {
		name   string
		source string
		vars   Variables
		want   string
	}{
		{"uppercase", "{{uppercase priority}}", Variables{"priority": "high"}, "HIGH"},
		{"lowercase", "{{lowercase status}}", Variables{"status": "OPEN"}, "open"},
		{"capitalize", "{{capitalize status}}", Variables{"status": "iN PROGRESS"}, "In progress"},
		{"capitalize empty", "[{{capitalize status}}]", Variables{"status": ""}, "[]"},
		{"formatDate default", "{{formatDate createdAt}}", Variables{"createdAt": created}, "Mar 5, 2024, 2:07 PM"},
		{"formatDate PP", `{{formatDate createdAt "PP"}}`, Variables{"createdAt": created}, "Mar 5, 2024"},
		{"formatDate PPP hash", `{{formatDate createdAt format="PPP"}}`, Variables{"createdAt": created}, "March 5, 2024"},
		{"formatDate iso", `{{formatDate createdAt 'yyyy-MM-dd'}}`, Variables{"createdAt": created}, "2024-03-05"},
		{"formatDate time", `{{formatDate createdAt "p"}}`, Variables{"createdAt": created}, "2:07 PM"},
		{"formatDate go layout", `{{formatDate createdAt "2006/01/02"}}`, Variables{"createdAt": created}, "2024/03/05"},
		{"formatDate string input", `{{formatDate createdAt "PP"}}`, Variables{"createdAt": "Mar 5, 2024, 2:07 PM"}, "Mar 5, 2024"},
		{"formatDate unparsable", `{{formatDate createdAt "PP"}}`, Variables{"createdAt": "soon"}, "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := e.Render(tt.source, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestValidate(t *testing.T) {
	e := NewEngine()

	assert.Equal(t, ValidationResult{IsValid: true}, e.Validate("Hi {{name}}"))
	assert.Equal(t, ValidationResult{IsValid: true}, e.Validate(""))

	for _, bad := range []string{"{{name", "{{#if x}}open", "{{/if}}"} {
		res := e.Validate(bad)
		assert.False(t, res.IsValid, bad)
		assert.NotEmpty(t, res.Error, bad)
	}
}

func TestValidateContent(t *testing.T) {
	e := NewEngine()

	require.NoError(t, e.ValidateContent(DefaultAutoReply))

	err := e.ValidateContent(Content{Subject: "x", Text: "", HTML: "y"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "text body")

	err = e.ValidateContent(Content{Subject: "x", Text: "y", HTML: "{{broken"})
	assert.ErrorIs(t, err, apperrors.ErrTemplateInvalid)
	assert.True(t, strings.HasPrefix(err.Error(), "html body"))
}

func TestExtractVariables(t *testing.T) {
	e := NewEngine()
	source := `{{! a comment }}Hi {{customerName}}, {{#if assigneeName}}{{assigneeName}}{{else}}team{{/if}}
{{formatDate createdAt "PP"}} {{uppercase priority}} {{{bodyHtml}}} {{ticketNumber}} {{> footer}}`

	vars := e.ExtractVariables(source)

	assert.Equal(t, []string{"assigneeName", "bodyHtml", "createdAt", "customerName", "priority", "ticketNumber"}, vars)
}

func TestExtractVariables_IsIdempotent(t *testing.T) {
	e := NewEngine()
	first := e.ExtractVariables(DefaultNotification.Text)
	second := e.ExtractVariables(DefaultNotification.Text)

	assert.Equal(t, first, second)
	assert.Empty(t, e.ExtractVariables("no placeholders"))
}

func TestPreview_UsesSampleData(t *testing.T) {
	now := time.Date(2024, time.July, 1, 9, 30, 0, 0, time.UTC)
	e := fixedEngine(now)

	out, err := e.Preview(Content{
		Subject: "[{{ticketNumber}}] {{subject}}",
		Text:    "Dear {{customerName}}, created {{createdAt}} on {{currentDate}}",
		HTML:    "<p>{{companyName}}</p>",
	}, "Acme")

	require.NoError(t, err)
	assert.Equal(t, "[TCK-001] Need help with account setup", out.Subject)
	assert.Equal(t, "Dear John Doe, created Jul 1, 2024, 9:30 AM on Jul 1, 2024", out.Text)
	assert.Equal(t, "<p>Acme</p>", out.HTML)
}

func TestPreview_SampleCoversDeclaredVariables(t *testing.T) {
	e := NewEngine()
	sample := SampleVariables("Acme", time.Now())

	for _, content := range []Content{DefaultAutoReply, DefaultNotification} {
		_, err := e.Preview(content, "Acme")
		require.NoError(t, err)

		for _, part := range []string{content.Subject, content.Text, content.HTML} {
			for _, name := range e.ExtractVariables(part) {
				assert.Contains(t, sample, name)
			}
		}
	}

	for name := range AutoReplyVariableDescriptions {
		assert.Contains(t, sample, name)
	}
	for name := range NotificationVariableDescriptions {
		assert.Contains(t, sample, name)
	}
}

func TestNotificationData_Fallbacks(t *testing.T) {
	vars := NotificationData{
		CustomerEmail: "jane@example.com",
		CreatedAt:     time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC),
	}.Variables()

	assert.Equal(t, "jane@example.com", vars["customerName"])
	assert.Equal(t, "Unassigned", vars["assigneeName"])
	assert.Equal(t, "Jan 2, 2024", vars["createdAt"])
}

func TestAutoReplyData_Variables(t *testing.T) {
	now := time.Date(2024, time.January, 2, 15, 4, 0, 0, time.UTC)
	vars := AutoReplyData{CompanyName: "Acme", TicketNumber: "AAR-0003"}.Variables(now)

	assert.Equal(t, "Acme", vars["companyName"])
	assert.Equal(t, "Jan 2, 2024, 3:04 PM", vars["createdAt"])
	assert.Equal(t, "Jan 2, 2024", vars["currentDate"])
	assert.Equal(t, "3:04 PM", vars["currentTime"])
}
