package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FormatTicketNumber renders a ticket number such as AAR-0042
func FormatTicketNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}

// TicketRepository defines the interface for ticket data access
type TicketRepository interface {
	CreateFromEmail(ctx context.Context, ticket *models.Ticket, prefix string, emailID uint) error
	AttachEmail(ctx context.Context, ticketID, emailID uint) (*models.Ticket, error)
	FindThreadTicket(ctx context.Context, companyID uint, messageIDs []string) (uint, error)
	FindByEmail(ctx context.Context, emailID uint) (*models.Ticket, error)
	GetByID(ctx context.Context, id uint) (*models.Ticket, error)
	ListEmails(ctx context.Context, ticketID uint) ([]models.Email, error)
	AddComment(ctx context.Context, comment *models.TicketComment) error
	ListComments(ctx context.Context, ticketID uint) ([]models.TicketComment, error)
	ListByCompany(ctx context.Context, companyID uint, filter TicketFilter) ([]models.Ticket, int64, error)
	CountByStatus(ctx context.Context, companyID uint) (map[string]int64, error)
	UpdateStatus(ctx context.Context, id uint, status string) (*models.Ticket, error)
	UpdatePriority(ctx context.Context, id uint, priority string) (*models.Ticket, error)
	Assign(ctx context.Context, id uint, assigneeID *uint) (*models.Ticket, error)
}

// TicketFilter narrows a ticket listing
type TicketFilter struct {
	Status     string
	AssigneeID *uint
	Limit      int
	Offset     int
}

// ticketRepository implements TicketRepository using GORM
type ticketRepository struct {
	base
}

// NewTicketRepository creates a new TicketRepository instance
func NewTicketRepository(db *gorm.DB, opts ...Option) TicketRepository {
	return &ticketRepository{base: newBase(db, opts)}
}

// CreateFromEmail creates a ticket for an unprocessed email. Claiming the
// email, drawing the next company sequence number, inserting the ticket and
// linking the email happen in one transaction; if any step fails none of
// them is visible.
func (r *ticketRepository) CreateFromEmail(ctx context.Context, ticket *models.Ticket, prefix string, emailID uint) error {
	err := r.transaction(ctx, func(tx *gorm.DB) error {
		ticket.ID = 0

		claim := tx.Model(&models.Email{}).
			Where("id = ? AND is_processed = ?", emailID, false).
			Update("is_processed", true)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Email{}).Where("id = ?", emailID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrEmailAlreadyProcessed
		}

		seq, err := nextSequence(tx, ticket.CompanyID)
		if err != nil {
			return err
		}

		ticket.TicketNumber = FormatTicketNumber(prefix, seq)
		ticket.EmailID = &emailID
		if ticket.Status == "" {
			ticket.Status = models.TicketStatusOpen
		}
		if ticket.Priority == "" {
			ticket.Priority = models.PriorityMedium
		}
		if err := tx.Omit("Assignee").Create(ticket).Error; err != nil {
			return err
		}

		return tx.Create(&models.TicketEmail{TicketID: ticket.ID, EmailID: emailID}).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrEmailAlreadyProcessed) {
			return err
		}
		if isDuplicateKeyError(err) {
			return fmt.Errorf("ticket number already taken: %w", ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// nextSequence atomically increments and returns the company's ticket
// counter. A company without a counter row is seeded from its existing
// ticket count.
func nextSequence(tx *gorm.DB, companyID uint) (int64, error) {
	bump := tx.Model(&models.TicketCounter{}).
		Where("company_id = ?", companyID).
		Update("last_value", gorm.Expr("last_value + 1"))
	if bump.Error != nil {
		return 0, bump.Error
	}

	if bump.RowsAffected == 0 {
		var existing int64
		if err := tx.Model(&models.Ticket{}).Where("company_id = ?", companyID).Count(&existing).Error; err != nil {
			return 0, err
		}
		seed := models.TicketCounter{CompanyID: companyID, LastValue: existing + 1}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "company_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"last_value": gorm.Expr("ticket_counters.last_value + 1"),
			}),
		}).Create(&seed).Error
		if err != nil {
			return 0, err
		}
	}

	var counter models.TicketCounter
	if err := tx.Where("company_id = ?", companyID).First(&counter).Error; err != nil {
		return 0, err
	}
	return counter.LastValue, nil
}

// AttachEmail links an email to an existing ticket, marks it processed and
// reopens the ticket
func (r *ticketRepository) AttachEmail(ctx context.Context, ticketID, emailID uint) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&ticket, ticketID).Error; err != nil {
			return err
		}

		link := models.TicketEmail{TicketID: ticketID, EmailID: emailID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Email{}).Where("id = ?", emailID).Update("is_processed", true).Error; err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&models.Ticket{}).Where("id = ?", ticketID).Updates(map[string]interface{}{
			"status":     models.TicketStatusOpen,
			"closed_at":  nil,
			"updated_at": now,
		}).Error; err != nil {
			return err
		}

		ticket.Status = models.TicketStatusOpen
		ticket.ClosedAt = nil
		ticket.UpdatedAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to attach email to ticket: %w", err)
	}
	return &ticket, nil
}

// FindThreadTicket returns the ticket holding the earliest stored email of
// the company whose message id is in messageIDs
func (r *ticketRepository) FindThreadTicket(ctx context.Context, companyID uint, messageIDs []string) (uint, error) {
	if len(messageIDs) == 0 {
		return 0, ErrNotFound
	}

	var rows []struct {
		TicketID uint
	}
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Table("emails").
			Select("ticket_emails.ticket_id").
			Joins("JOIN ticket_emails ON ticket_emails.email_id = emails.id").
			Where("emails.company_id = ? AND emails.message_id IN ?", companyID, messageIDs).
			Order("emails.id ASC").
			Limit(1).
			Scan(&rows).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to find thread ticket: %w", err)
	}
	if len(rows) == 0 {
		return 0, ErrNotFound
	}
	return rows[0].TicketID, nil
}

// FindByEmail returns the ticket an email is linked to
func (r *ticketRepository) FindByEmail(ctx context.Context, emailID uint) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Preload("Assignee").
			Joins("JOIN ticket_emails ON ticket_emails.ticket_id = tickets.id").
			Where("ticket_emails.email_id = ?", emailID).
			Order("tickets.id ASC").
			First(&ticket).Error
	})
	if err != nil {
		return nil, notFound(err, "ticket by email")
	}
	return &ticket, nil
}

// GetByID retrieves a ticket by its ID
func (r *ticketRepository) GetByID(ctx context.Context, id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Preload("Assignee").First(&ticket, id).Error
	})
	if err != nil {
		return nil, notFound(err, "ticket by ID")
	}
	return &ticket, nil
}

// ListEmails returns every email linked to a ticket in arrival order
func (r *ticketRepository) ListEmails(ctx context.Context, ticketID uint) ([]models.Email, error) {
	var emails []models.Email
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Joins("JOIN ticket_emails ON ticket_emails.email_id = emails.id").
			Where("ticket_emails.ticket_id = ?", ticketID).
			Order("emails.received_at ASC, emails.id ASC").
			Find(&emails).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket emails: %w", err)
	}
	return emails, nil
}

// AddComment records a comment on a ticket
func (r *ticketRepository) AddComment(ctx context.Context, comment *models.TicketComment) error {
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Create(comment).Error
	})
	if err != nil {
		return fmt.Errorf("failed to add ticket comment: %w", err)
	}
	return nil
}

// ListComments returns a ticket's comments, oldest first
func (r *ticketRepository) ListComments(ctx context.Context, ticketID uint) ([]models.TicketComment, error) {
	var comments []models.TicketComment
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Where("ticket_id = ?", ticketID).Order("id ASC").Find(&comments).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket comments: %w", err)
	}
	return comments, nil
}

// ListByCompany returns a page of a company's tickets, newest first
func (r *ticketRepository) ListByCompany(ctx context.Context, companyID uint, filter TicketFilter) ([]models.Ticket, int64, error) {
	var (
		tickets []models.Ticket
		total   int64
	)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Model(&models.Ticket{}).Where("company_id = ?", companyID)
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.AssigneeID != nil {
			db = db.Where("assignee_id = ?", *filter.AssigneeID)
		}
		return db
	}

	err := r.run(ctx, func(db *gorm.DB) error {
		if err := db.Scopes(scope).Count(&total).Error; err != nil {
			return err
		}
		return db.Scopes(scope).
			Preload("Assignee").
			Order("created_at DESC, id DESC").
			Limit(limit).
			Offset(filter.Offset).
			Find(&tickets).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, total, nil
}

// CountByStatus returns how many of a company's tickets are in each status
func (r *ticketRepository) CountByStatus(ctx context.Context, companyID uint) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.run(ctx, func(db *gorm.DB) error {
		return db.Model(&models.Ticket{}).
			Select("status, COUNT(*) AS count").
			Where("company_id = ?", companyID).
			Group("status").
			Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// UpdateStatus moves a ticket to status. ClosedAt is stamped only on the
// transition into closed and cleared when the ticket leaves it.
func (r *ticketRepository) UpdateStatus(ctx context.Context, id uint, status string) (*models.Ticket, error) {
	return r.update(ctx, id, "status", func(ticket *models.Ticket, now time.Time) map[string]interface{} {
		fields := map[string]interface{}{"status": status}
		switch {
		case status == models.TicketStatusClosed && ticket.Status != models.TicketStatusClosed:
			fields["closed_at"] = now
		case status != models.TicketStatusClosed:
			fields["closed_at"] = nil
		}
		return fields
	})
}

// UpdatePriority changes a ticket's priority
func (r *ticketRepository) UpdatePriority(ctx context.Context, id uint, priority string) (*models.Ticket, error) {
	return r.update(ctx, id, "priority", func(*models.Ticket, time.Time) map[string]interface{} {
		return map[string]interface{}{"priority": priority}
	})
}

// Assign sets or, with a nil assigneeID, clears a ticket's assignee
func (r *ticketRepository) Assign(ctx context.Context, id uint, assigneeID *uint) (*models.Ticket, error) {
	return r.update(ctx, id, "assignee", func(*models.Ticket, time.Time) map[string]interface{} {
		return map[string]interface{}{"assignee_id": assigneeID}
	})
}

// update reads a ticket, applies the changes derived from it and returns the
// reloaded row, all in one transaction
func (r *ticketRepository) update(ctx context.Context, id uint, what string, fields func(*models.Ticket, time.Time) map[string]interface{}) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&ticket, id).Error; err != nil {
			return err
		}

		now := time.Now()
		changes := fields(&ticket, now)
		changes["updated_at"] = now
		if err := tx.Model(&models.Ticket{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return err
		}

		ticket = models.Ticket{}
		return tx.Preload("Assignee").First(&ticket, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update ticket %s: %w", what, err)
	}
	return &ticket, nil
}
