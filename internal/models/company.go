package models

import (
	"time"
)

// SystemUsername is the reserved username of the account that owns
// automatically created tickets.
const SystemUsername = "system"

// Company is a tenant. Every mailbox, email, ticket and template belongs to one.
type Company struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	Name                 string    `gorm:"not null;size:255" json:"name"`
	Slug                 string    `gorm:"uniqueIndex;not null;size:100" json:"slug"`
	OwnerID              uint      `gorm:"not null;index" json:"owner_id"`
	SupportEmail         string    `gorm:"size:255" json:"support_email,omitempty"`
	TicketIDPrefix       string    `gorm:"size:20" json:"ticket_id_prefix,omitempty"`
	AutoRepliesEnabled   bool      `json:"auto_replies_enabled"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Company
func (Company) TableName() string {
	return "companies"
}

// User is an agent account. The system actor is a User with SystemUsername.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null;size:100" json:"username"`
	Name      string    `gorm:"size:255" json:"name,omitempty"`
	Email     string    `gorm:"size:255" json:"email,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for User
func (User) TableName() string {
	return "users"
}
