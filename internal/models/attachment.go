package models

// EmailAttachment is the metadata of a file attached to an inbound email.
// The bytes live in file storage under FilePath.
type EmailAttachment struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	EmailID     uint   `gorm:"not null;index" json:"email_id"`
	Filename    string `gorm:"size:255" json:"filename"`
	ContentType string `gorm:"size:100" json:"content_type"`
	ContentID   string `gorm:"size:255" json:"content_id,omitempty"`
	IsInline    bool   `json:"is_inline"`
	FilePath    string `gorm:"size:500" json:"-"`
	SizeBytes   int64  `json:"size_bytes"`
}

// TableName returns the table name for EmailAttachment
func (EmailAttachment) TableName() string {
	return "email_attachments"
}
