package models

import (
	"time"
)

// Mailbox statuses
const (
	MailboxStatusActive   = "active"
	MailboxStatusError    = "error"
	MailboxStatusInactive = "inactive"
)

// Inbound protocols
const (
	ProtocolIMAP = "imap"
	ProtocolPOP3 = "pop3"
)

// Mailbox is an inbound/outbound email account connected to a company
type Mailbox struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	CompanyID uint   `gorm:"not null;index" json:"company_id"`
	Name      string `gorm:"size:255" json:"name"`
	Email     string `gorm:"not null;size:255;index" json:"email"`
	Protocol  string `gorm:"not null;size:10" json:"protocol"`

	InboundHost string `gorm:"size:255" json:"inbound_host"`
	InboundPort int    `json:"inbound_port"`
	InboundUser string `gorm:"size:255" json:"inbound_user"`
	InboundPass string `gorm:"size:255" json:"-"`
	InboundTLS  bool   `json:"inbound_tls"`

	OutboundHost string `gorm:"size:255" json:"outbound_host"`
	OutboundPort int    `json:"outbound_port"`
	OutboundUser string `gorm:"size:255" json:"outbound_user"`
	OutboundPass string `gorm:"size:255" json:"-"`
	OutboundTLS  bool   `json:"outbound_tls"`

	IsActive   bool       `gorm:"index" json:"is_active"`
	Status     string     `gorm:"not null;size:20" json:"status"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	LastError  *string    `json:"last_error,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Company Company `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for Mailbox
func (Mailbox) TableName() string {
	return "mailboxes"
}
