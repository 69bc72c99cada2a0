package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"github.com/welldanyogia/helpdesk-mailsync/internal/repository"
)

// ErrReplyNotSent is returned when the operator's reply could not be delivered
var ErrReplyNotSent = fmt.Errorf("failed to send reply email: %w", apperrors.ErrDeliveryFailed)

// ConvertResult is the outcome of converting an email to a ticket
type ConvertResult struct {
	Ticket        *models.Ticket     `json:"ticket"`
	AutoReplySent bool               `json:"auto_reply_sent"`
	Notification  NotificationResult `json:"notification"`
}

// ReplyResult is the outcome of replying to an email
type ReplyResult struct {
	Ticket  *models.Ticket        `json:"ticket"`
	Comment *models.TicketComment `json:"comment"`
}

// TicketService holds the operator actions on inbound emails
type TicketService struct {
	companies repository.CompanyRepository
	mailboxes repository.MailboxRepository
	emails    repository.EmailRepository
	tickets   repository.TicketRepository
	actors    *ActorResolver
	autoReply AutoReplier
	notify    Notifier
	logger    *slog.Logger
}

// NewTicketService creates a new TicketService
func NewTicketService(
	companies repository.CompanyRepository,
	mailboxes repository.MailboxRepository,
	emails repository.EmailRepository,
	tickets repository.TicketRepository,
	actors *ActorResolver,
	autoReply AutoReplier,
	notify Notifier,
	logger *slog.Logger,
) *TicketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TicketService{
		companies: companies,
		mailboxes: mailboxes,
		emails:    emails,
		tickets:   tickets,
		actors:    actors,
		autoReply: autoReply,
		notify:    notify,
		logger:    logger,
	}
}

// loadEmail returns a company and one of its emails
func (s *TicketService) loadEmail(ctx context.Context, companySlug string, emailID uint) (*models.Company, *models.Email, error) {
	company, err := s.companies.GetBySlug(ctx, companySlug)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.ErrCompanyNotFound
		}
		return nil, nil, err
	}

	email, err := s.emails.GetByID(ctx, emailID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.ErrEmailNotFound
		}
		return nil, nil, err
	}
	if email.CompanyID != company.ID {
		return nil, nil, apperrors.ErrEmailNotFound
	}
	return company, email, nil
}

// createTicket opens a ticket for email inside one transaction
func (s *TicketService) createTicket(ctx context.Context, company *models.Company, email *models.Email) (*models.Ticket, error) {
	actor, err := s.actors.Resolve(ctx, company)
	if err != nil {
		return nil, err
	}

	ticket := &models.Ticket{
		CompanyID: company.ID,
		Subject:   email.Subject,
		Status:    models.TicketStatusOpen,
		Priority:  models.PriorityMedium,
		CreatorID: actor.UserID,
	}
	if err := s.tickets.CreateFromEmail(ctx, ticket, ticketPrefix(company, DefaultManualPrefix), email.ID); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ConvertEmail turns an unprocessed email into a ticket, then sends the
// auto-reply and the notification. Delivery failures do not fail the call.
func (s *TicketService) ConvertEmail(ctx context.Context, companySlug string, emailID uint) (*ConvertResult, error) {
	company, email, err := s.loadEmail(ctx, companySlug, emailID)
	if err != nil {
		return nil, err
	}

	if email.IsProcessed {
		return nil, apperrors.ErrEmailAlreadyProcessed
	}
	if _, err := s.tickets.FindByEmail(ctx, email.ID); err == nil {
		return nil, apperrors.ErrEmailAlreadyProcessed
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	ticket, err := s.createTicket(ctx, company, email)
	if err != nil {
		return nil, err
	}

	s.logger.Info("email converted to ticket",
		slog.Uint64("email_id", uint64(email.ID)),
		slog.String("ticket_number", ticket.TicketNumber))

	result := &ConvertResult{Ticket: ticket}

	if mailbox, err := s.mailboxes.GetByID(ctx, email.MailboxID); err == nil {
		result.AutoReplySent = s.autoReply.Send(ctx, AutoReplyRequest{
			Mailbox:      mailbox,
			Company:      company,
			To:           email.FromEmail,
			Subject:      email.Subject,
			CustomerName: email.FromName,
			Ticket:       ticket,
			InReplyTo:    email.MessageID,
			References:   email.References,
		})
	} else {
		s.logger.Warn("auto-reply skipped: mailbox unavailable",
			slog.Uint64("mailbox_id", uint64(email.MailboxID)),
			slog.Any("error", err))
	}

	result.Notification = s.notify.Send(ctx, NotificationRequest{
		CompanyID:       company.ID,
		To:              email.FromEmail,
		OriginalSubject: email.Subject,
		TicketNumber:    ticket.TicketNumber,
		Ticket:          SnapshotTicket(ticket, email.FromName, email.FromEmail),
		InReplyTo:       email.MessageID,
		References:      email.References,
	})
	return result, nil
}

// ReplyToEmail sends an operator-written reply to the sender of an email and
// records it as a ticket comment. The ticket is created first when the email
// has none. authorID of 0 records the system actor as the author.
func (s *TicketService) ReplyToEmail(ctx context.Context, companySlug string, emailID uint, message string, authorID uint) (*ReplyResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("message is required: %w", apperrors.ErrInvalidInput)
	}

	company, email, err := s.loadEmail(ctx, companySlug, emailID)
	if err != nil {
		return nil, err
	}

	mailbox, err := s.mailboxes.GetByID(ctx, email.MailboxID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrMailboxNotFound
		}
		return nil, err
	}
	if !mailbox.IsActive {
		return nil, apperrors.ErrMailboxInactive
	}

	ticket, err := s.tickets.FindByEmail(ctx, email.ID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			return nil, err
		}
		if ticket, err = s.createTicket(ctx, company, email); err != nil {
			return nil, err
		}
	}

	sent := s.autoReply.Send(ctx, AutoReplyRequest{
		Mailbox:       mailbox,
		Company:       company,
		To:            email.FromEmail,
		Subject:       email.Subject,
		CustomerName:  email.FromName,
		Ticket:        ticket,
		CustomMessage: message,
		InReplyTo:     email.MessageID,
		References:    email.References,
	})
	if !sent {
		return nil, ErrReplyNotSent
	}

	if authorID == 0 {
		actor, err := s.actors.Resolve(ctx, company)
		if err != nil {
			return nil, err
		}
		authorID = actor.UserID
	}

	comment := &models.TicketComment{
		TicketID: ticket.ID,
		UserID:   authorID,
		Content:  "Custom reply sent to customer:\n\n" + message,
	}
	if err := s.tickets.AddComment(ctx, comment); err != nil {
		return nil, err
	}

	s.logger.Info("reply sent",
		slog.Uint64("email_id", uint64(email.ID)),
		slog.String("ticket_number", ticket.TicketNumber))

	return &ReplyResult{Ticket: ticket, Comment: comment}, nil
}
