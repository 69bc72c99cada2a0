package template

// Default template names
const (
	DefaultAutoReplyName    = "Default Auto-Reply"
	DefaultNotificationName = "Default Notification"
)

// DefaultAutoReply is created by the init-default action for auto-replies
var DefaultAutoReply = Content{
	Subject: "Re: {{subject}}",
	Text: `Thank you for contacting {{companyName}} support. Your ticket number is {{ticketNumber}}.

We have received your inquiry and created a support ticket. Our team will get back to you as soon as possible.

Ticket Details:
- Ticket Number: {{ticketNumber}}
- Subject: {{subject}}
- Created: {{createdAt}}
- Priority: {{priority}}

This is an automated response, please do not reply directly to this email.

Best regards,
{{companyName}} Support Team`,
	HTML: `
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333; border-bottom: 2px solid #007bff; padding-bottom: 10px;">
    Thank you for contacting {{companyName}} support
  </h2>

  <p>Your ticket number is <strong style="color: #007bff;">{{ticketNumber}}</strong></p>

  <p>We have received your inquiry and created a support ticket. Our team will get back to you as soon as possible.</p>

  <div style="background-color: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
    <h3 style="margin-top: 0; color: #495057;">Ticket Details:</h3>
    <ul style="margin-bottom: 0;">
      <li><strong>Ticket Number:</strong> {{ticketNumber}}</li>
      <li><strong>Subject:</strong> {{subject}}</li>
      <li><strong>Created:</strong> {{createdAt}}</li>
      <li><strong>Priority:</strong> {{priority}}</li>
    </ul>
  </div>

  <p style="color: #6c757d; font-style: italic; font-size: 14px;">
    This is an automated response, please do not reply directly to this email.
  </p>

  <hr style="border: none; border-top: 1px solid #e9ecef; margin: 20px 0;">

  <p style="margin-bottom: 0;">
    Best regards,<br>
    <strong>{{companyName}} Support Team</strong>
  </p>
</div>`,
}

// AutoReplyVariableDescriptions documents the auto-reply variables for the
// settings screen
var AutoReplyVariableDescriptions = map[string]interface{}{
	"companyName":   "The name of your company",
	"ticketNumber":  "The unique ticket number (e.g., TCK-001)",
	"ticketPrefix":  "The ticket prefix used by your company",
	"subject":       "The original subject line from the customer email",
	"customerName":  "The name of the customer (if available)",
	"customerEmail": "The email address of the customer",
	"supportEmail":  "Your support email address",
	"assigneeName":  "The name of the assigned agent (if any)",
	"priority":      "The priority level of the ticket",
	"status":        "The current status of the ticket",
	"createdAt":     "The date and time the ticket was created",
	"currentDate":   "The current date",
	"currentTime":   "The current time",
}

// DefaultNotification is created by the init-default action for notifications
var DefaultNotification = Content{
	Subject: "[{{ticketNumber}}] {{originalSubject}}",
	Text: `Hello {{customerName}},

We have received your message and created ticket #{{ticketNumber}} for your inquiry.

Original Subject: {{originalSubject}}
Priority: {{priority}}
Status: {{status}}
Created: {{createdAt}}

We will review your request and respond as soon as possible. You can reference this ticket number in any future communications regarding this matter.

Best regards,
{{companyName}} Support Team

---
This is an automated notification. Please do not reply to this email.`,
	HTML: `<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <h2 style="color: #2563eb;">Ticket Created: {{ticketNumber}}</h2>

  <p>Hello <strong>{{customerName}}</strong>,</p>

  <p>We have received your message and created ticket <strong>#{{ticketNumber}}</strong> for your inquiry.</p>

  <div style="background-color: #f8fafc; padding: 15px; border-left: 4px solid #2563eb; margin: 20px 0;">
    <p><strong>Original Subject:</strong> {{originalSubject}}</p>
    <p><strong>Priority:</strong> {{priority}}</p>
    <p><strong>Status:</strong> {{status}}</p>
    <p><strong>Created:</strong> {{createdAt}}</p>
  </div>

  <p>We will review your request and respond as soon as possible. You can reference this ticket number in any future communications regarding this matter.</p>

  <p>Best regards,<br>
  <strong>{{companyName}} Support Team</strong></p>

  <hr style="margin: 30px 0; border: none; border-top: 1px solid #e5e7eb;">
  <p style="font-size: 12px; color: #6b7280;">
    This is an automated notification. Please do not reply to this email.
  </p>
</body>
</html>`,
}

// NotificationVariableDescriptions documents the notification variables for
// the settings screen
var NotificationVariableDescriptions = map[string]interface{}{
	"ticketNumber":    "The ticket number (e.g., TCK-001)",
	"originalSubject": "The original email subject",
	"customerName":    "Customer name or email if name not available",
	"customerEmail":   "Customer email address",
	"priority":        "Ticket priority (low, medium, high, urgent)",
	"status":          "Ticket status (open, pending, in-progress, closed)",
	"createdAt":       "Ticket creation date",
	"assigneeName":    `Assigned agent name or "Unassigned"`,
	"assigneeEmail":   "Assigned agent email",
	"companyName":     "Company name",
	"supportEmail":    "Support email address",
	"customMessage":   "Custom message (when provided)",
}

// FallbackAutoReply is sent when a company has no usable auto-reply template
var FallbackAutoReply = Content{
	Subject: "Re: {{subject}}",
	Text: `Thank you for contacting {{companyName}} support. Your ticket number is # {{ticketNumber}}

We have received your inquiry and created a support ticket. Our team will get back to you as soon as possible.

This is an automated response, please do not reply directly to this email.`,
	HTML: `
<p>Thank you for contacting {{companyName}} support. Your ticket number is <strong># {{ticketNumber}}</strong></p>
<p>We have received your inquiry and created a support ticket. Our team will get back to you as soon as possible.</p>
<p><em>This is an automated response, please do not reply directly to this email.</em></p>
`,
}
