package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
	"github.com/welldanyogia/helpdesk-mailsync/internal/logger"
	"github.com/welldanyogia/helpdesk-mailsync/internal/mail"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"github.com/welldanyogia/helpdesk-mailsync/internal/repository"
	"github.com/welldanyogia/helpdesk-mailsync/internal/template"
)

// NotificationTypeTicket is the X-Notification-Type of ticket notifications
const NotificationTypeTicket = "ticket-notification"

// TicketSnapshot is the ticket state a notification describes
type TicketSnapshot struct {
	ID            uint
	Subject       string
	Priority      string
	Status        string
	CreatedAt     time.Time
	CustomerName  string
	CustomerEmail string
	Assignee      *models.User
}

// SnapshotTicket builds a TicketSnapshot for the customer of an email
func SnapshotTicket(t *models.Ticket, customerName, customerEmail string) TicketSnapshot {
	return TicketSnapshot{
		ID:            t.ID,
		Subject:       t.Subject,
		Priority:      t.Priority,
		Status:        t.Status,
		CreatedAt:     t.CreatedAt,
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		Assignee:      t.Assignee,
	}
}

// NotificationRequest describes one ticket notification
type NotificationRequest struct {
	CompanyID       uint
	To              string
	OriginalSubject string
	TicketNumber    string
	Ticket          TicketSnapshot
	// CustomSubject overrides the template subject
	CustomSubject string
	CustomMessage string
	InReplyTo     string
	References    []string
}

// NotificationResult reports the outcome of a notification. Skipped is set
// when the company has notifications turned off; that is still a success.
type NotificationResult struct {
	Success   bool   `json:"success"`
	Skipped   bool   `json:"skipped,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NotificationSender delivers templated ticket notifications to customers
type NotificationSender struct {
	companies repository.CompanyRepository
	mailboxes repository.MailboxRepository
	templates repository.TemplateRepository
	engine    *template.Engine
	mailer    mail.Sender
	logger    *slog.Logger
}

// NewNotificationSender creates a new NotificationSender
func NewNotificationSender(
	companies repository.CompanyRepository,
	mailboxes repository.MailboxRepository,
	templates repository.TemplateRepository,
	engine *template.Engine,
	mailer mail.Sender,
	logger *slog.Logger,
) *NotificationSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationSender{
		companies: companies,
		mailboxes: mailboxes,
		templates: templates,
		engine:    engine,
		mailer:    mailer,
		logger:    logger,
	}
}

// Send renders the company's default notification template and delivers it.
// Failures are reported in the result, never returned.
func (s *NotificationSender) Send(ctx context.Context, req NotificationRequest) NotificationResult {
	log := s.logger.With(
		slog.Uint64("company_id", uint64(req.CompanyID)),
		slog.String("ticket_number", req.TicketNumber),
		slog.String("recipient", logger.MaskEmail(req.To)))

	fail := func(err error) NotificationResult {
		log.Error("failed to send notification", slog.Any("error", err))
		return NotificationResult{Success: false, Error: err.Error()}
	}

	company, err := s.companies.GetByID(ctx, req.CompanyID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return fail(apperrors.ErrCompanyNotFound)
		}
		return fail(err)
	}

	if !company.NotificationsEnabled {
		log.Debug("notifications disabled for company")
		return NotificationResult{Success: true, Skipped: true, Message: "Notifications disabled"}
	}

	tpl, err := s.templates.GetDefault(ctx, company.ID, models.TemplateKindNotification)
	if err != nil {
		if apperrors.IsNotFound(err) {
			log.Info("no notification template configured")
			return NotificationResult{Success: false, Message: "No notification template configured"}
		}
		return fail(err)
	}

	mailbox, err := s.mailboxes.FirstActiveByCompany(ctx, company.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return fail(apperrors.ErrNoOutboundMailbox)
		}
		return fail(err)
	}

	vars := template.NotificationData{
		TicketNumber:    req.TicketNumber,
		OriginalSubject: req.OriginalSubject,
		CustomerName:    req.Ticket.CustomerName,
		CustomerEmail:   req.Ticket.CustomerEmail,
		Priority:        req.Ticket.Priority,
		Status:          req.Ticket.Status,
		CreatedAt:       req.Ticket.CreatedAt,
		CompanyName:     company.Name,
		SupportEmail:    supportEmail(company, mailbox),
		CustomMessage:   req.CustomMessage,
	}
	if a := req.Ticket.Assignee; a != nil {
		vars.AssigneeName = a.Name
		vars.AssigneeEmail = a.Email
	}

	content := template.Content{Subject: tpl.Subject, Text: tpl.BodyText, HTML: tpl.BodyHTML}
	if req.CustomSubject != "" {
		content.Subject = req.CustomSubject
	}
	if strings.TrimSpace(content.Subject) == "" {
		content.Subject = "{{originalSubject}}"
	}

	rendered, err := s.engine.RenderContent(content, vars.Variables())
	if err != nil {
		return fail(err)
	}
	subject := withTicketPrefix(rendered.Subject, req.TicketNumber)

	messageID, err := s.mailer.Send(ctx, mailbox, mail.OutboundMessage{
		FromName:   company.Name + " Support",
		To:         req.To,
		Subject:    subject,
		Text:       rendered.Text,
		HTML:       rendered.HTML,
		InReplyTo:  req.InReplyTo,
		References: threadReferences(req.References, req.InReplyTo),
		Headers: map[string]string{
			"X-Ticket-Number":     req.TicketNumber,
			"X-Ticket-ID":         strconv.FormatUint(uint64(req.Ticket.ID), 10),
			"X-Notification-Type": NotificationTypeTicket,
		},
	})
	if err != nil {
		return fail(fmt.Errorf("send via mailbox %d: %w", mailbox.ID, err))
	}

	log.Info("notification sent", slog.String("message_id", messageID))
	return NotificationResult{Success: true, MessageID: messageID, Subject: subject}
}

// withTicketPrefix guarantees the subject carries "[ticketNumber]"
func withTicketPrefix(subject, ticketNumber string) string {
	if ticketNumber == "" {
		return subject
	}
	tag := "[" + ticketNumber + "]"
	if strings.Contains(subject, tag) {
		return subject
	}
	return strings.TrimSpace(tag + " " + subject)
}
