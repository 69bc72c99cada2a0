// Package validator checks operator input for mailbox and company
// administration and sanitizes values copied from inbound mail.
package validator

import (
	"errors"
	"net"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrInvalidHost     = errors.New("invalid host name")
	ErrInvalidPort     = errors.New("port must be between 1 and 65535")
	ErrInvalidProtocol = errors.New("protocol must be imap or pop3")
	ErrInvalidSlug     = errors.New("invalid company slug")
	ErrInvalidPrefix   = errors.New("ticket prefix must be 2-10 uppercase letters or digits")
	ErrInputTooLong    = errors.New("input exceeds maximum length")
	ErrEmptyInput      = errors.New("input cannot be empty")
)

var (
	// labels of 1-63 chars, alphanumeric at both ends
	hostRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*$`)

	slugRegex   = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	prefixRegex = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)
)

// ValidateEmail validates an address in RFC 5322 form. Display names are rejected.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	if email == "" {
		return ErrEmptyInput
	}
	if utf8.RuneCountInString(email) > 254 {
		return ErrInputTooLong
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateHost accepts a DNS name or a literal IP address.
func ValidateHost(host string) error {
	host = strings.TrimSpace(strings.ToLower(host))

	if host == "" {
		return ErrEmptyInput
	}
	if len(host) > 253 {
		return ErrInputTooLong
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	if !hostRegex.MatchString(host) {
		return ErrInvalidHost
	}
	return nil
}

// ValidatePort rejects ports outside 1-65535.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return ErrInvalidPort
	}
	return nil
}

// ValidateProtocol accepts imap and pop3. Empty means imap.
func ValidateProtocol(protocol string) error {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "imap", "pop3":
		return nil
	}
	return ErrInvalidProtocol
}

// ValidateSlug validates a company slug such as "acme-support".
func ValidateSlug(slug string) error {
	if slug == "" {
		return ErrEmptyInput
	}
	if len(slug) > 63 {
		return ErrInputTooLong
	}
	if !slugRegex.MatchString(slug) {
		return ErrInvalidSlug
	}
	return nil
}

// ValidateTicketPrefix validates a ticket number prefix. Empty is allowed.
func ValidateTicketPrefix(prefix string) error {
	if prefix == "" {
		return nil
	}
	if !prefixRegex.MatchString(prefix) {
		return ErrInvalidPrefix
	}
	return nil
}

// MailboxInput is the operator-supplied part of a mailbox connection.
type MailboxInput struct {
	Email        string
	Protocol     string
	InboundHost  string
	InboundPort  int
	OutboundHost string
	OutboundPort int
	Password     string
}

// ValidateMailbox returns the first problem found in in. Ports must
// already have their defaults applied.
func ValidateMailbox(in MailboxInput) error {
	if err := ValidateEmail(in.Email); err != nil {
		return fieldError("email", err)
	}
	if err := ValidateProtocol(in.Protocol); err != nil {
		return fieldError("protocol", err)
	}
	if err := ValidateHost(in.InboundHost); err != nil {
		return fieldError("inbound host", err)
	}
	if err := ValidatePort(in.InboundPort); err != nil {
		return fieldError("inbound port", err)
	}
	if err := ValidateHost(in.OutboundHost); err != nil {
		return fieldError("outbound host", err)
	}
	if err := ValidatePort(in.OutboundPort); err != nil {
		return fieldError("outbound port", err)
	}
	if in.Password == "" {
		return fieldError("password", ErrEmptyInput)
	}
	return nil
}

// FieldError names the input field that failed validation.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }
func (e *FieldError) Unwrap() error { return e.Err }

func fieldError(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ValidatePagination clamps limit to 1..MaxLimit and offset to >= 0.
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

func truncate(s string, max int) string {
	if max > 0 && utf8.RuneCountInString(s) > max {
		return string([]rune(s)[:max])
	}
	return s
}

// SanitizeFilename makes an attachment name from a sender safe to store
// and display. Path separators and ".." become underscores.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "..", "_")
	filename = strings.TrimSpace(stripControl(filename))
	filename = truncate(filename, 255)

	if filename == "" {
		return "unnamed"
	}
	return filename
}

// SanitizeString drops control characters, trims and truncates to maxLength runes.
// A maxLength of 0 means no limit.
func SanitizeString(input string, maxLength int) string {
	return truncate(strings.TrimSpace(stripControl(input)), maxLength)
}
