package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
	"github.com/welldanyogia/helpdesk-mailsync/internal/logger"
	"github.com/welldanyogia/helpdesk-mailsync/internal/mail"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"github.com/welldanyogia/helpdesk-mailsync/internal/repository"
	"github.com/welldanyogia/helpdesk-mailsync/internal/storage"
	"github.com/welldanyogia/helpdesk-mailsync/internal/validator"
	"github.com/welldanyogia/helpdesk-mailsync/internal/websocket"
)

// Ticket number prefixes used when the company has none configured
const (
	DefaultSyncPrefix   = "AAR"
	DefaultManualPrefix = "TCK"
)

// AutoReplier sends ticket acknowledgements
type AutoReplier interface {
	Send(ctx context.Context, req AutoReplyRequest) bool
}

// Notifier sends ticket notifications
type Notifier interface {
	Send(ctx context.Context, req NotificationRequest) NotificationResult
}

// EventPublisher fans realtime events out to a company's subscribers
type EventPublisher interface {
	Publish(companyID uint, event websocket.MessageType, payload interface{})
}

// SyncResult is the outcome of one mailbox sync
type SyncResult struct {
	Success        bool   `json:"success"`
	MailboxID      uint   `json:"mailbox_id"`
	Skipped        bool   `json:"skipped,omitempty"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
	ProcessedCount int    `json:"processed_count"`
	NewTickets     int    `json:"new_tickets"`
	UpdatedTickets int    `json:"updated_tickets"`
	FailedCount    int    `json:"failed_count"`
	EmailIDs       []uint `json:"email_ids,omitempty"`
}

// SyncAllResult aggregates a pass over every active mailbox
type SyncAllResult struct {
	Success        bool         `json:"success"`
	Results        []SyncResult `json:"results"`
	TotalProcessed int          `json:"total_processed"`
	TotalErrors    int          `json:"total_errors"`
	Error          string       `json:"error,omitempty"`
	CompletedAt    time.Time    `json:"completed_at"`
}

// SyncDependencies are the collaborators of a SyncEngine. Journal, Storage
// and Events may be nil.
type SyncDependencies struct {
	Mailboxes repository.MailboxRepository
	Companies repository.CompanyRepository
	Emails    repository.EmailRepository
	Tickets   repository.TicketRepository
	Dialer    mail.InboundDialer
	Journal   mail.AckJournal
	Storage   storage.FileStorage
	Actors    *ActorResolver
	AutoReply AutoReplier
	Notify    Notifier
	Events    EventPublisher
	Audit     *logger.AuditLogger
}

// SyncEngine pulls unseen mail from a mailbox, stores it and turns it into
// tickets. A message is acknowledged on the server only after it is stored.
type SyncEngine struct {
	deps   SyncDependencies
	logger *slog.Logger
	now    func() time.Time
}

// NewSyncEngine creates a new SyncEngine
func NewSyncEngine(deps SyncDependencies, logger *slog.Logger) *SyncEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncEngine{deps: deps, logger: logger, now: time.Now}
}

// messageOutcome is what happened to one fetched message
type messageOutcome struct {
	emailID   uint
	duplicate bool
	created   bool
	updated   bool
}

// SyncMailbox runs one sync pass over a mailbox. It never panics and never
// returns an error; failures are reported in the result and recorded on the
// mailbox.
func (e *SyncEngine) SyncMailbox(ctx context.Context, mailboxID uint) (result SyncResult) {
	result = SyncResult{MailboxID: mailboxID}
	log := e.logger.With(slog.Uint64("mailbox_id", uint64(mailboxID)))

	defer func() {
		if r := recover(); r != nil {
			result = e.fail(ctx, log, result, fmt.Errorf("sync panicked: %v", r))
		}
	}()

	mailbox, err := e.deps.Mailboxes.GetByID(ctx, mailboxID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			result.Success, result.Skipped = true, true
			result.Message = "Mailbox not found"
			return result
		}
		return e.fail(ctx, log, result, err)
	}
	if !mailbox.IsActive {
		result.Success, result.Skipped = true, true
		result.Message = "Mailbox is not active"
		return result
	}

	company, err := e.deps.Companies.GetByID(ctx, mailbox.CompanyID)
	if err != nil {
		return e.fail(ctx, log, result, fmt.Errorf("load company: %w", err))
	}

	log.Debug("connecting to mailbox",
		slog.String("protocol", mailbox.Protocol),
		slog.String("host", mailbox.InboundHost))

	session, err := e.deps.Dialer.Dial(ctx, mailbox)
	if err != nil {
		return e.fail(ctx, log, result, fmt.Errorf("%w: %v", apperrors.ErrConnectionFailed, err))
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("failed to close inbound session", slog.Any("error", err))
		}
	}()

	e.flushJournal(ctx, log, mailbox.ID, session)

	messages, err := session.FetchUnseen(ctx)
	if err != nil {
		return e.fail(ctx, log, result, fmt.Errorf("fetch unseen messages: %w", err))
	}
	log.Info("fetched unseen messages", slog.Int("count", len(messages)))

	for _, raw := range messages {
		if ctx.Err() != nil {
			return e.fail(ctx, log, result, ctx.Err())
		}

		outcome, err := e.processMessage(ctx, session, mailbox, company, raw)
		if err != nil {
			result.FailedCount++
			log.Error("failed to process message",
				slog.String("uid", raw.UID),
				slog.Uint64("email_id", uint64(outcome.emailID)),
				slog.Any("error", err))
			continue
		}
		if outcome.duplicate {
			continue
		}

		result.ProcessedCount++
		result.EmailIDs = append(result.EmailIDs, outcome.emailID)
		if outcome.created {
			result.NewTickets++
		}
		if outcome.updated {
			result.UpdatedTickets++
		}
	}

	syncedAt := e.now()
	if err := e.deps.Mailboxes.MarkSynced(ctx, mailbox.ID, syncedAt); err != nil {
		return e.fail(ctx, log, result, fmt.Errorf("update mailbox status: %w", err))
	}

	e.publish(company.ID, websocket.EventMailboxSynced, websocket.MailboxSyncedPayload{
		MailboxID:      mailbox.ID,
		ProcessedCount: result.ProcessedCount,
		NewTickets:     result.NewTickets,
		UpdatedTickets: result.UpdatedTickets,
		SyncedAt:       syncedAt.UTC().Format(time.RFC3339),
	})

	log.Info("mailbox synced",
		slog.Int("processed", result.ProcessedCount),
		slog.Int("new_tickets", result.NewTickets),
		slog.Int("updated_tickets", result.UpdatedTickets),
		slog.Int("failed", result.FailedCount))

	result.Success = true
	return result
}

// fail records err on the mailbox and returns the failed result. The status
// write is itself best-effort. A sync interrupted by its caller leaves the
// mailbox status alone.
func (e *SyncEngine) fail(ctx context.Context, log *slog.Logger, result SyncResult, err error) SyncResult {
	result.Success = false
	result.Error = err.Error()

	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		log.Warn("mailbox sync interrupted", slog.Any("error", err))
		return result
	}

	log.Error("mailbox sync failed", slog.Any("error", err))

	if markErr := e.deps.Mailboxes.MarkError(context.WithoutCancel(ctx), result.MailboxID, err.Error()); markErr != nil {
		log.Error("failed to record mailbox error", slog.Any("error", markErr))
	}
	if e.deps.Audit != nil {
		e.deps.Audit.SyncFailed(result.MailboxID, err.Error())
	}
	return result
}

// processMessage stores one message and links or creates its ticket
func (e *SyncEngine) processMessage(
	ctx context.Context,
	session mail.InboundSession,
	mailbox *models.Mailbox,
	company *models.Company,
	raw mail.RawMessage,
) (out messageOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing message: %v", r)
		}
	}()

	parsed, err := mail.Parse(raw.Raw)
	if err != nil {
		return out, err
	}

	email, err := e.deps.Emails.GetByMessageID(ctx, mailbox.ID, parsed.MessageID)
	switch {
	case err == nil:
		out.emailID = email.ID
		e.acknowledge(ctx, session, mailbox.ID, raw.UID, email.MessageID)
		if email.IsProcessed {
			out.duplicate = true
			return out, nil
		}
	case apperrors.IsNotFound(err):
		email, err = e.store(ctx, mailbox, parsed)
		if err != nil {
			return out, err
		}
		out.emailID = email.ID
		e.acknowledge(ctx, session, mailbox.ID, raw.UID, email.MessageID)
	default:
		return out, fmt.Errorf("dedup lookup: %w", err)
	}

	if !company.AutoRepliesEnabled {
		return out, nil
	}

	ticket, err := e.threadTicket(ctx, company.ID, email)
	if err != nil {
		return out, err
	}
	if ticket != nil {
		err = e.attach(ctx, mailbox, company, email, ticket)
		if err == nil {
			out.updated = true
			return out, nil
		}
		// the thread ticket was deleted meanwhile; open a new one
		if !apperrors.IsNotFound(err) {
			return out, err
		}
	}

	created, err := e.createTicket(ctx, mailbox, company, email)
	if err != nil {
		return out, err
	}
	out.created = created
	return out, nil
}

// store persists a parsed message with its attachments. Attachment files
// that cannot be written are logged and left out.
func (e *SyncEngine) store(ctx context.Context, mailbox *models.Mailbox, parsed *mail.ParsedEmail) (*models.Email, error) {
	email := &models.Email{
		CompanyID:      mailbox.CompanyID,
		MailboxID:      mailbox.ID,
		MessageID:      parsed.MessageID,
		Subject:        validator.SanitizeString(parsed.Subject, 998),
		FromEmail:      parsed.FromEmail,
		FromName:       parsed.FromName,
		ToEmail:        parsed.To,
		CcEmail:        parsed.Cc,
		BccEmail:       parsed.Bcc,
		Body:           parsed.Text,
		InReplyTo:      parsed.InReplyTo,
		References:     parsed.References,
		Headers:        parsed.Headers,
		RawMimeContent: parsed.Raw,
		ReceivedAt:     parsed.Date,
	}
	if parsed.HTML != "" {
		clean := mail.SanitizeHTML(parsed.HTML)
		email.BodyHTML = &clean
	}

	attachments := e.saveAttachments(mailbox.ID, parsed)
	if err := e.deps.Emails.CreateWithAttachments(ctx, email, attachments); err != nil {
		e.discardFiles(attachments)
		return nil, fmt.Errorf("store email: %w", err)
	}
	return email, nil
}

func (e *SyncEngine) saveAttachments(mailboxID uint, parsed *mail.ParsedEmail) []models.EmailAttachment {
	if e.deps.Storage == nil || len(parsed.Attachments) == 0 {
		return nil
	}

	var saved []models.EmailAttachment
	for _, att := range parsed.Attachments {
		name := validator.SanitizeFilename(att.Filename)
		path, err := e.deps.Storage.Save(name, bytes.NewReader(att.Content))
		if err != nil {
			e.logger.Warn("failed to store attachment",
				slog.Uint64("mailbox_id", uint64(mailboxID)),
				slog.String("message_id", parsed.MessageID),
				slog.String("filename", name),
				slog.Any("error", err))
			continue
		}
		saved = append(saved, models.EmailAttachment{
			Filename:    name,
			ContentType: att.ContentType,
			ContentID:   att.ContentID,
			IsInline:    att.Inline,
			FilePath:    path,
			SizeBytes:   att.Size(),
		})
	}
	return saved
}

func (e *SyncEngine) discardFiles(attachments []models.EmailAttachment) {
	for _, att := range attachments {
		if err := e.deps.Storage.Delete(att.FilePath); err != nil {
			e.logger.Warn("failed to remove orphaned attachment",
				slog.String("path", att.FilePath),
				slog.Any("error", err))
		}
	}
}

// acknowledge marks a stored message seen (IMAP) or deleted (POP3). The
// journal entry outlives a failed acknowledgement so the next sync retries it.
func (e *SyncEngine) acknowledge(ctx context.Context, session mail.InboundSession, mailboxID uint, uid, messageID string) {
	log := e.logger.With(slog.Uint64("mailbox_id", uint64(mailboxID)), slog.String("uid", uid))

	if e.deps.Journal != nil {
		if err := e.deps.Journal.Record(mailboxID, uid, messageID); err != nil {
			log.Warn("failed to journal pending acknowledgement", slog.Any("error", err))
		}
	}

	if err := session.Acknowledge(ctx, []string{uid}); err != nil {
		log.Warn("failed to acknowledge message on server", slog.Any("error", err))
		return
	}

	if e.deps.Journal != nil {
		if err := e.deps.Journal.Clear(mailboxID, uid); err != nil {
			log.Warn("failed to clear journal entry", slog.Any("error", err))
		}
	}
}

// flushJournal acknowledges messages an earlier run stored but could not
// acknowledge
func (e *SyncEngine) flushJournal(ctx context.Context, log *slog.Logger, mailboxID uint, session mail.InboundSession) {
	if e.deps.Journal == nil {
		return
	}

	pending, err := e.deps.Journal.Pending(mailboxID)
	if err != nil {
		log.Warn("failed to read ack journal", slog.Any("error", err))
		return
	}
	if len(pending) == 0 {
		return
	}

	uids := make([]string, 0, len(pending))
	for uid := range pending {
		uids = append(uids, uid)
	}
	if err := session.Acknowledge(ctx, uids); err != nil {
		log.Warn("failed to flush pending acknowledgements", slog.Int("count", len(uids)), slog.Any("error", err))
		return
	}
	if err := e.deps.Journal.Clear(mailboxID, uids...); err != nil {
		log.Warn("failed to clear ack journal", slog.Any("error", err))
		return
	}
	log.Info("flushed pending acknowledgements", slog.Int("count", len(uids)))
}

// threadTicket returns the ticket an email replies to, or nil. Matching uses
// the In-Reply-To and References headers only.
func (e *SyncEngine) threadTicket(ctx context.Context, companyID uint, email *models.Email) (*models.Ticket, error) {
	ids := email.ThreadIDs()
	if len(ids) == 0 {
		return nil, nil
	}

	ticketID, err := e.deps.Tickets.FindThreadTicket(ctx, companyID, ids)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	ticket, err := e.deps.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return ticket, nil
}

// attach links a reply to its thread ticket, reopens it and notifies the
// customer. No auto-reply is sent for a thread already acknowledged.
func (e *SyncEngine) attach(ctx context.Context, mailbox *models.Mailbox, company *models.Company, email *models.Email, ticket *models.Ticket) error {
	updated, err := e.deps.Tickets.AttachEmail(ctx, ticket.ID, email.ID)
	if err != nil {
		return err
	}
	updated.Assignee = ticket.Assignee

	e.logger.Info("email linked to existing ticket",
		slog.Uint64("email_id", uint64(email.ID)),
		slog.String("ticket_number", updated.TicketNumber))

	e.notify(ctx, company, email, updated)
	e.publishTicket(company.ID, websocket.EventTicketUpdated, mailbox, email, updated)
	return nil
}

// createTicket opens a ticket for an email and sends the auto-reply and the
// notification. It reports false when another writer processed the email
// first.
func (e *SyncEngine) createTicket(ctx context.Context, mailbox *models.Mailbox, company *models.Company, email *models.Email) (bool, error) {
	actor, err := e.deps.Actors.Resolve(ctx, company)
	if err != nil {
		return false, err
	}

	ticket := &models.Ticket{
		CompanyID: company.ID,
		Subject:   email.Subject,
		Status:    models.TicketStatusOpen,
		Priority:  models.PriorityMedium,
		CreatorID: actor.UserID,
	}
	err = e.deps.Tickets.CreateFromEmail(ctx, ticket, ticketPrefix(company, DefaultSyncPrefix), email.ID)
	if errors.Is(err, apperrors.ErrEmailAlreadyProcessed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	e.logger.Info("ticket created from email",
		slog.Uint64("email_id", uint64(email.ID)),
		slog.String("ticket_number", ticket.TicketNumber),
		slog.Bool("system_actor", actor.System))

	if e.deps.AutoReply != nil {
		e.deps.AutoReply.Send(ctx, AutoReplyRequest{
			Mailbox:      mailbox,
			Company:      company,
			To:           email.FromEmail,
			Subject:      email.Subject,
			CustomerName: email.FromName,
			Ticket:       ticket,
			InReplyTo:    email.MessageID,
			References:   email.References,
		})
	}
	e.notify(ctx, company, email, ticket)
	e.publishTicket(company.ID, websocket.EventTicketCreated, mailbox, email, ticket)
	return true, nil
}

func (e *SyncEngine) notify(ctx context.Context, company *models.Company, email *models.Email, ticket *models.Ticket) {
	if e.deps.Notify == nil {
		return
	}
	res := e.deps.Notify.Send(ctx, NotificationRequest{
		CompanyID:       company.ID,
		To:              email.FromEmail,
		OriginalSubject: email.Subject,
		TicketNumber:    ticket.TicketNumber,
		Ticket:          SnapshotTicket(ticket, email.FromName, email.FromEmail),
		InReplyTo:       email.MessageID,
		References:      email.References,
	})
	if !res.Success {
		e.logger.Warn("ticket notification not sent",
			slog.String("ticket_number", ticket.TicketNumber),
			slog.String("reason", res.Error+res.Message))
	}
}

func (e *SyncEngine) publishTicket(companyID uint, event websocket.MessageType, mailbox *models.Mailbox, email *models.Email, ticket *models.Ticket) {
	e.publish(companyID, event, websocket.TicketPayload{
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		Subject:      ticket.Subject,
		Status:       ticket.Status,
		EmailID:      email.ID,
		MailboxID:    mailbox.ID,
	})
}

func (e *SyncEngine) publish(companyID uint, event websocket.MessageType, payload interface{}) {
	if e.deps.Events != nil {
		e.deps.Events.Publish(companyID, event, payload)
	}
}

// SyncAllMailboxes syncs every active mailbox one after another. A failing
// mailbox is counted and does not stop the others.
func (e *SyncEngine) SyncAllMailboxes(ctx context.Context) SyncAllResult {
	mailboxes, err := e.deps.Mailboxes.ListActive(ctx)
	if err != nil {
		e.logger.Error("failed to list active mailboxes", slog.Any("error", err))
		return SyncAllResult{Success: false, Error: err.Error(), Results: []SyncResult{}, CompletedAt: e.now()}
	}

	e.logger.Info("starting sync for all mailboxes", slog.Int("count", len(mailboxes)))

	all := SyncAllResult{Success: true, Results: make([]SyncResult, 0, len(mailboxes))}
	for _, mb := range mailboxes {
		if ctx.Err() != nil {
			break
		}
		res := e.SyncMailbox(ctx, mb.ID)
		all.Results = append(all.Results, res)
		all.TotalProcessed += res.ProcessedCount
		if !res.Success {
			all.TotalErrors++
		}
	}
	all.CompletedAt = e.now()

	e.logger.Info("sync completed for all mailboxes",
		slog.Int("mailboxes", len(all.Results)),
		slog.Int("processed", all.TotalProcessed),
		slog.Int("errors", all.TotalErrors))
	return all
}
