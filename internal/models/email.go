package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Email is one normalized inbound message. IsProcessed is true once a ticket
// has been created for it or it has been linked to one.
type Email struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	CompanyID      uint              `gorm:"not null;index" json:"company_id"`
	MailboxID      uint              `gorm:"not null;uniqueIndex:idx_emails_mailbox_message" json:"mailbox_id"`
	MessageID      string            `gorm:"not null;size:512;uniqueIndex:idx_emails_mailbox_message;index:idx_emails_message_id" json:"message_id"`
	Subject        string            `json:"subject"`
	FromEmail      string            `gorm:"not null;size:255" json:"from_email"`
	FromName       string            `gorm:"size:255" json:"from_name,omitempty"`
	ToEmail        pq.StringArray    `gorm:"type:text[]" json:"to_email"`
	CcEmail        pq.StringArray    `gorm:"type:text[]" json:"cc_email"`
	BccEmail       pq.StringArray    `gorm:"type:text[]" json:"bcc_email"`
	Body           string            `gorm:"type:text" json:"body"`
	BodyHTML       *string           `gorm:"type:text" json:"body_html,omitempty"`
	InReplyTo      string            `gorm:"size:512" json:"in_reply_to,omitempty"`
	References     pq.StringArray    `gorm:"column:reference_ids;type:text[]" json:"references,omitempty"`
	Headers        datatypes.JSONMap `json:"headers"`
	RawMimeContent string            `gorm:"type:text" json:"-"`
	ReceivedAt     time.Time         `gorm:"not null;index" json:"received_at"`
	IsProcessed    bool              `gorm:"index" json:"is_processed"`
	CreatedAt      time.Time         `gorm:"autoCreateTime" json:"created_at"`

	// Relationships
	Mailbox     Mailbox           `gorm:"foreignKey:MailboxID;constraint:OnDelete:CASCADE" json:"-"`
	Attachments []EmailAttachment `gorm:"foreignKey:EmailID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
}

// TableName returns the table name for Email
func (Email) TableName() string {
	return "emails"
}

// ThreadIDs returns the message ids this email replies to, In-Reply-To first.
func (e *Email) ThreadIDs() []string {
	ids := make([]string, 0, len(e.References)+1)
	seen := make(map[string]struct{}, len(e.References)+1)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	add(e.InReplyTo)
	for _, ref := range e.References {
		add(ref)
	}
	return ids
}

// EmailListItem is a lightweight version for list views
type EmailListItem struct {
	ID          uint      `json:"id"`
	MailboxID   uint      `json:"mailbox_id"`
	Subject     string    `json:"subject"`
	FromEmail   string    `json:"from_email"`
	FromName    string    `json:"from_name,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
	IsProcessed bool      `json:"is_processed"`
	TicketID    *uint     `json:"ticket_id,omitempty"`
}
