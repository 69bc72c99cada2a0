package models

import (
	"time"

	"gorm.io/datatypes"
)

// TemplateKind distinguishes auto-reply templates from notification templates
type TemplateKind string

const (
	TemplateKindAutoReply    TemplateKind = "auto_reply"
	TemplateKindNotification TemplateKind = "notification"
)

// Valid reports whether k is a known template kind
func (k TemplateKind) Valid() bool {
	return k == TemplateKindAutoReply || k == TemplateKindNotification
}

// MessageTemplate is a per-company, user-editable email template. At most one
// template per company and kind has IsDefault set.
type MessageTemplate struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	CompanyID uint              `gorm:"not null;index:idx_templates_company_kind" json:"company_id"`
	Kind      TemplateKind      `gorm:"not null;size:20;index:idx_templates_company_kind" json:"kind"`
	Name      string            `gorm:"not null;size:255" json:"name"`
	Subject   string            `gorm:"not null" json:"subject"`
	BodyText  string            `gorm:"type:text" json:"body_text"`
	BodyHTML  string            `gorm:"type:text" json:"body_html"`
	IsDefault bool              `json:"is_default"`
	IsActive  bool              `json:"is_active"`
	Variables datatypes.JSONMap `json:"variables,omitempty"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for MessageTemplate
func (MessageTemplate) TableName() string {
	return "message_templates"
}
