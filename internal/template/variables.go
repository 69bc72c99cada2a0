package template

import (
	"time"
)

// AutoReplyData is the ticket context an auto-reply is rendered with
type AutoReplyData struct {
	CompanyName   string
	TicketNumber  string
	TicketPrefix  string
	Subject       string
	CustomerName  string
	CustomerEmail string
	SupportEmail  string
	AssigneeName  string
	Priority      string
	Status        string
	CreatedAt     time.Time
	CustomMessage string
}

// Variables builds the auto-reply variable bag
func (d AutoReplyData) Variables(now time.Time) Variables {
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return Variables{
		"companyName":   d.CompanyName,
		"ticketNumber":  d.TicketNumber,
		"ticketPrefix":  d.TicketPrefix,
		"subject":       d.Subject,
		"customerName":  d.CustomerName,
		"customerEmail": d.CustomerEmail,
		"supportEmail":  d.SupportEmail,
		"assigneeName":  d.AssigneeName,
		"priority":      d.Priority,
		"status":        d.Status,
		"createdAt":     FormatDate(createdAt, "PPp"),
		"currentDate":   FormatDate(now, "PP"),
		"currentTime":   FormatDate(now, "p"),
		"customMessage": d.CustomMessage,
	}
}

// NotificationData is the ticket context a notification is rendered with
type NotificationData struct {
	TicketNumber    string
	OriginalSubject string
	CustomerName    string
	CustomerEmail   string
	Priority        string
	Status          string
	CreatedAt       time.Time
	AssigneeName    string
	AssigneeEmail   string
	CompanyName     string
	SupportEmail    string
	CustomMessage   string
}

// Variables builds the notification variable bag. A missing customer name
// falls back to the email address and a missing assignee reads Unassigned.
func (d NotificationData) Variables() Variables {
	customerName := d.CustomerName
	if customerName == "" {
		customerName = d.CustomerEmail
	}
	assignee := d.AssigneeName
	if assignee == "" {
		assignee = "Unassigned"
	}
	return Variables{
		"ticketNumber":    d.TicketNumber,
		"originalSubject": d.OriginalSubject,
		"customerName":    customerName,
		"customerEmail":   d.CustomerEmail,
		"priority":        d.Priority,
		"status":          d.Status,
		"createdAt":       FormatDate(d.CreatedAt, "PP"),
		"assigneeName":    assignee,
		"assigneeEmail":   d.AssigneeEmail,
		"companyName":     d.CompanyName,
		"supportEmail":    d.SupportEmail,
		"customMessage":   d.CustomMessage,
	}
}

// SampleVariables is the fixed data set used for previews. It covers every
// variable of both template kinds.
func SampleVariables(companyName string, now time.Time) Variables {
	if companyName == "" {
		companyName = "Your Company"
	}
	return Variables{
		"companyName":     companyName,
		"ticketNumber":    "TCK-001",
		"ticketPrefix":    "TCK",
		"subject":         "Need help with account setup",
		"originalSubject": "Need help with account setup",
		"customerName":    "John Doe",
		"customerEmail":   "john.doe@example.com",
		"supportEmail":    "support@yourcompany.com",
		"assigneeName":    "Sarah Johnson",
		"assigneeEmail":   "sarah.johnson@yourcompany.com",
		"priority":        "Medium",
		"status":          "Open",
		"createdAt":       FormatDate(now, "PPp"),
		"currentDate":     FormatDate(now, "PP"),
		"currentTime":     FormatDate(now, "p"),
		"customMessage":   "Thanks for your patience while we look into this.",
	}
}
