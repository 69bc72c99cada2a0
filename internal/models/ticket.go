package models

import (
	"time"
)

// Ticket statuses
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in progress"
	TicketStatusPending    = "pending"
	TicketStatusClosed     = "closed"
)

// Ticket priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Ticket is a trackable support case. EmailID is the originating email; later
// replies in the same thread are linked through TicketEmail.
type Ticket struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CompanyID    uint       `gorm:"not null;uniqueIndex:idx_tickets_company_number" json:"company_id"`
	TicketNumber string     `gorm:"not null;size:50;uniqueIndex:idx_tickets_company_number" json:"ticket_number"`
	Subject      string     `json:"subject"`
	Status       string     `gorm:"not null;size:20;index" json:"status"`
	Priority     string     `gorm:"not null;size:20" json:"priority"`
	CreatorID    uint       `gorm:"not null" json:"creator_id"`
	AssigneeID   *uint      `gorm:"index" json:"assignee_id,omitempty"`
	EmailID      *uint      `gorm:"index" json:"email_id,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`

	// Relationships
	Assignee *User `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
}

// TableName returns the table name for Ticket
func (Ticket) TableName() string {
	return "tickets"
}

// TicketEmail links an email to the ticket it belongs to
type TicketEmail struct {
	TicketID  uint      `gorm:"primaryKey;autoIncrement:false" json:"ticket_id"`
	EmailID   uint      `gorm:"primaryKey;autoIncrement:false;index" json:"email_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for TicketEmail
func (TicketEmail) TableName() string {
	return "ticket_emails"
}

// TicketCounter holds the last ticket sequence number issued for a company
type TicketCounter struct {
	CompanyID uint      `gorm:"primaryKey;autoIncrement:false"`
	LastValue int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for TicketCounter
func (TicketCounter) TableName() string {
	return "ticket_counters"
}

// TicketComment records an agent or system note on a ticket
type TicketComment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TicketID   uint      `gorm:"not null;index" json:"ticket_id"`
	UserID     uint      `gorm:"not null" json:"user_id"`
	Content    string    `gorm:"type:text" json:"content"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for TicketComment
func (TicketComment) TableName() string {
	return "ticket_comments"
}
