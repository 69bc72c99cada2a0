package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"github.com/welldanyogia/helpdesk-mailsync/internal/repository"
	"github.com/welldanyogia/helpdesk-mailsync/internal/websocket"
)

var (
	ticketStatuses = []string{
		models.TicketStatusOpen,
		models.TicketStatusInProgress,
		models.TicketStatusPending,
		models.TicketStatusClosed,
	}
	ticketPriorities = []string{
		models.PriorityLow,
		models.PriorityMedium,
		models.PriorityHigh,
		models.PriorityUrgent,
	}
)

// TicketDetail is a ticket with its thread and comments
type TicketDetail struct {
	Ticket   *models.Ticket         `json:"ticket"`
	Emails   []models.Email         `json:"emails"`
	Comments []models.TicketComment `json:"comments"`
}

// TicketStats counts a company's tickets per status
type TicketStats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

// TicketUpdate changes a ticket's workflow fields. Nil fields are left as
// they are; Unassign clears the assignee.
type TicketUpdate struct {
	Status     *string `json:"status"`
	Priority   *string `json:"priority"`
	AssigneeID *uint   `json:"assignee_id"`
	Unassign   bool    `json:"unassign"`
}

func (u TicketUpdate) empty() bool {
	return u.Status == nil && u.Priority == nil && u.AssigneeID == nil && !u.Unassign
}

// TicketDesk lists tickets and moves them through their lifecycle
type TicketDesk struct {
	companies repository.CompanyRepository
	tickets   repository.TicketRepository
	users     repository.UserRepository
	events    EventPublisher
	logger    *slog.Logger
}

// NewTicketDesk creates a new TicketDesk
func NewTicketDesk(
	companies repository.CompanyRepository,
	tickets repository.TicketRepository,
	users repository.UserRepository,
	events EventPublisher,
	logger *slog.Logger,
) *TicketDesk {
	if logger == nil {
		logger = slog.Default()
	}
	return &TicketDesk{
		companies: companies,
		tickets:   tickets,
		users:     users,
		events:    events,
		logger:    logger,
	}
}

func (d *TicketDesk) company(ctx context.Context, slug string) (*models.Company, error) {
	company, err := d.companies.GetBySlug(ctx, slug)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrCompanyNotFound
		}
		return nil, err
	}
	return company, nil
}

// List returns a page of a company's tickets
func (d *TicketDesk) List(ctx context.Context, slug string, filter repository.TicketFilter) ([]models.Ticket, int64, error) {
	if filter.Status != "" && !slices.Contains(ticketStatuses, filter.Status) {
		return nil, 0, fmt.Errorf("unknown ticket status %q: %w", filter.Status, apperrors.ErrInvalidInput)
	}
	company, err := d.company(ctx, slug)
	if err != nil {
		return nil, 0, err
	}
	return d.tickets.ListByCompany(ctx, company.ID, filter)
}

// Stats counts a company's tickets per status. Every status is present.
func (d *TicketDesk) Stats(ctx context.Context, slug string) (*TicketStats, error) {
	company, err := d.company(ctx, slug)
	if err != nil {
		return nil, err
	}
	counts, err := d.tickets.CountByStatus(ctx, company.ID)
	if err != nil {
		return nil, err
	}

	stats := &TicketStats{ByStatus: make(map[string]int64, len(ticketStatuses))}
	for _, status := range ticketStatuses {
		stats.ByStatus[status] = 0
	}
	for status, n := range counts {
		stats.ByStatus[status] = n
		stats.Total += n
	}
	return stats, nil
}

// Get returns a ticket with its emails and comments
func (d *TicketDesk) Get(ctx context.Context, id uint) (*TicketDetail, error) {
	ticket, err := d.tickets.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	emails, err := d.tickets.ListEmails(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := d.tickets.ListComments(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TicketDetail{Ticket: ticket, Emails: emails, Comments: comments}, nil
}

// Update applies in to a ticket after validating every field, then
// publishes ticket.updated to the company
func (d *TicketDesk) Update(ctx context.Context, id uint, in TicketUpdate) (*models.Ticket, error) {
	if err := d.validate(ctx, in); err != nil {
		return nil, err
	}

	var (
		ticket *models.Ticket
		err    error
	)
	if in.Status != nil {
		if ticket, err = d.tickets.UpdateStatus(ctx, id, *in.Status); err != nil {
			return nil, d.notFound(err)
		}
	}
	if in.Priority != nil {
		if ticket, err = d.tickets.UpdatePriority(ctx, id, *in.Priority); err != nil {
			return nil, d.notFound(err)
		}
	}
	if in.AssigneeID != nil || in.Unassign {
		if ticket, err = d.tickets.Assign(ctx, id, in.AssigneeID); err != nil {
			return nil, d.notFound(err)
		}
	}

	d.logger.Info("ticket updated",
		slog.Uint64("ticket_id", uint64(ticket.ID)),
		slog.String("ticket_number", ticket.TicketNumber),
		slog.String("status", ticket.Status))

	if d.events != nil {
		payload := websocket.TicketPayload{
			TicketID:     ticket.ID,
			TicketNumber: ticket.TicketNumber,
			Subject:      ticket.Subject,
			Status:       ticket.Status,
		}
		if ticket.EmailID != nil {
			payload.EmailID = *ticket.EmailID
		}
		d.events.Publish(ticket.CompanyID, websocket.EventTicketUpdated, payload)
	}
	return ticket, nil
}

func (d *TicketDesk) validate(ctx context.Context, in TicketUpdate) error {
	if in.empty() {
		return fmt.Errorf("nothing to update: %w", apperrors.ErrInvalidInput)
	}
	if in.Status != nil && !slices.Contains(ticketStatuses, *in.Status) {
		return fmt.Errorf("unknown ticket status %q: %w", *in.Status, apperrors.ErrInvalidInput)
	}
	if in.Priority != nil && !slices.Contains(ticketPriorities, *in.Priority) {
		return fmt.Errorf("unknown ticket priority %q: %w", *in.Priority, apperrors.ErrInvalidInput)
	}
	if in.AssigneeID != nil && in.Unassign {
		return fmt.Errorf("assignee_id and unassign are exclusive: %w", apperrors.ErrInvalidInput)
	}
	if in.AssigneeID != nil {
		if _, err := d.users.GetByID(ctx, *in.AssigneeID); err != nil {
			if apperrors.IsNotFound(err) {
				return fmt.Errorf("assignee %d does not exist: %w", *in.AssigneeID, apperrors.ErrInvalidInput)
			}
			return err
		}
	}
	return nil
}

func (d *TicketDesk) notFound(err error) error {
	if apperrors.IsNotFound(err) {
		return apperrors.ErrTicketNotFound
	}
	return err
}
