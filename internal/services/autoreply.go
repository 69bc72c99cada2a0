package services

import (
	"context"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
	"github.com/welldanyogia/helpdesk-mailsync/internal/logger"
	"github.com/welldanyogia/helpdesk-mailsync/internal/mail"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"github.com/welldanyogia/helpdesk-mailsync/internal/repository"
	"github.com/welldanyogia/helpdesk-mailsync/internal/validator"
	"github.com/welldanyogia/helpdesk-mailsync/internal/template"
)

// AutoReplyRequest describes one acknowledgement to a customer
type AutoReplyRequest struct {
	Mailbox *models.Mailbox
	Company *models.Company
	To      string
	// Subject is the subject of the customer's email
	Subject      string
	CustomerName string
	Ticket       *models.Ticket
	// CustomMessage replaces the stored template with operator-written text
	CustomMessage string
	// InReplyTo is the message id of the customer's email, without brackets
	InReplyTo  string
	References []string
}

// customReply wraps operator-written text with a ticket footer
var customReply = template.Content{
	Subject: "{{subject}}",
	Text:    "{{customMessage}}\n\n---\nTicket Number: {{ticketNumber}}\nSupport Team: {{companyName}}",
	HTML:    "<p>{{{customMessageHTML}}}</p><hr><p><strong>Ticket Number:</strong> {{ticketNumber}}<br><strong>Support Team:</strong> {{companyName}}</p>",
}

// AutoReplySender acknowledges customer emails using the company's default
// auto-reply template, or a built-in fallback when there is none.
type AutoReplySender struct {
	templates repository.TemplateRepository
	engine    *template.Engine
	mailer    mail.Sender
	logger    *slog.Logger
	now       func() time.Time
}

// NewAutoReplySender creates a new AutoReplySender
func NewAutoReplySender(templates repository.TemplateRepository, engine *template.Engine, mailer mail.Sender, logger *slog.Logger) *AutoReplySender {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoReplySender{
		templates: templates,
		engine:    engine,
		mailer:    mailer,
		logger:    logger,
		now:       time.Now,
	}
}

// Send renders and delivers the auto-reply. It reports false on any failure
// and never returns an error: callers treat the reply as best-effort.
func (s *AutoReplySender) Send(ctx context.Context, req AutoReplyRequest) bool {
	if req.Mailbox == nil || req.Company == nil || req.To == "" {
		s.logger.Warn("auto-reply skipped: incomplete request")
		return false
	}

	log := s.logger.With(
		slog.Uint64("mailbox_id", uint64(req.Mailbox.ID)),
		slog.String("recipient", logger.MaskEmail(req.To)))

	vars := s.variables(req)
	content, source, stored := s.content(ctx, req, vars)

	rendered, err := s.engine.RenderContent(content, vars)
	if err != nil && stored {
		log.Warn("auto-reply template failed to render, using fallback",
			slog.String("template", source),
			slog.Any("error", err))
		source = "fallback"
		rendered, err = s.engine.RenderContent(template.FallbackAutoReply, vars)
	}
	if err != nil {
		log.Error("failed to render auto-reply", slog.Any("error", err))
		return false
	}

	msg := mail.OutboundMessage{
		FromName:   req.Company.Name + " Support",
		To:         req.To,
		Subject:    collapseReplyPrefix(rendered.Subject),
		Text:       rendered.Text,
		HTML:       rendered.HTML,
		InReplyTo:  req.InReplyTo,
		References: threadReferences(req.References, req.InReplyTo),
	}
	if req.Ticket != nil {
		msg.Headers = map[string]string{"X-Ticket-Number": req.Ticket.TicketNumber}
	}

	if _, err := s.mailer.Send(ctx, req.Mailbox, msg); err != nil {
		log.Error("failed to send auto-reply", slog.Any("error", err))
		return false
	}

	log.Info("auto-reply sent",
		slog.String("template", source),
		slog.Bool("custom_message", req.CustomMessage != ""))
	return true
}

// content picks what to render: the custom wrapper, the default template or
// the fallback. stored is true only for a company template.
func (s *AutoReplySender) content(ctx context.Context, req AutoReplyRequest, vars template.Variables) (content template.Content, source string, stored bool) {
	if req.CustomMessage != "" {
		vars["subject"] = replySubject(req.Subject)
		vars["customMessageHTML"] = strings.ReplaceAll(html.EscapeString(req.CustomMessage), "\n", "<br>")
		return customReply, "custom", false
	}

	tpl, err := s.templates.GetDefault(ctx, req.Company.ID, models.TemplateKindAutoReply)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.logger.Warn("failed to load auto-reply template, using fallback",
				slog.Uint64("company_id", uint64(req.Company.ID)),
				slog.Any("error", err))
		} else {
			s.logger.Debug("no default auto-reply template, using fallback",
				slog.Uint64("company_id", uint64(req.Company.ID)))
		}
		return template.FallbackAutoReply, "fallback", false
	}
	return template.Content{Subject: tpl.Subject, Text: tpl.BodyText, HTML: tpl.BodyHTML}, tpl.Name, true
}

func (s *AutoReplySender) variables(req AutoReplyRequest) template.Variables {
	data := template.AutoReplyData{
		CompanyName:   req.Company.Name,
		TicketPrefix:  ticketPrefix(req.Company, DefaultSyncPrefix),
		Subject:       req.Subject,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.To,
		SupportEmail:  supportEmail(req.Company, req.Mailbox),
		CustomMessage: req.CustomMessage,
	}
	if t := req.Ticket; t != nil {
		data.TicketNumber = t.TicketNumber
		data.Priority = t.Priority
		data.Status = t.Status
		data.CreatedAt = t.CreatedAt
		if t.Assignee != nil {
			data.AssigneeName = t.Assignee.Name
		}
		if i := strings.LastIndexByte(t.TicketNumber, '-'); i > 0 {
			data.TicketPrefix = t.TicketNumber[:i]
		}
	}
	return data.Variables(s.now())
}

// replySubject prefixes "Re: " unless the subject already carries it
func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

var repeatedReply = regexp.MustCompile(`(?i)^\s*(re:\s*){2,}`)

// collapseReplyPrefix folds the "Re: Re: " a reply template produces for a
// subject that was already a reply
func collapseReplyPrefix(subject string) string {
	return repeatedReply.ReplaceAllString(subject, "Re: ")
}

// threadReferences appends the replied-to id to the References chain
func threadReferences(refs []string, inReplyTo string) []string {
	if inReplyTo == "" {
		return refs
	}
	out := make([]string, 0, len(refs)+1)
	for _, r := range refs {
		if r != inReplyTo {
			out = append(out, r)
		}
	}
	return append(out, inReplyTo)
}

func supportEmail(company *models.Company, mailbox *models.Mailbox) string {
	if company != nil && company.SupportEmail != "" {
		return company.SupportEmail
	}
	if mailbox != nil {
		return mailbox.Email
	}
	return ""
}

// ticketPrefix returns the company ticket prefix, or fallback when it is
// unset or malformed
func ticketPrefix(company *models.Company, fallback string) string {
	if company != nil && company.TicketIDPrefix != "" && validator.ValidateTicketPrefix(company.TicketIDPrefix) == nil {
		return company.TicketIDPrefix
	}
	return fallback
}
