// Package mail talks to remote mail servers: inbound IMAP and POP3 sessions,
// outbound SMTP delivery, connection tests and MIME parsing.
package mail

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"
)

// NoSubject replaces an empty Subject header
const NoSubject = "(No subject)"

// ParsedEmail is the normalized form of a raw inbound message
type ParsedEmail struct {
	MessageID   string
	Subject     string
	FromEmail   string
	FromName    string
	To          []string
	Cc          []string
	Bcc         []string
	Text        string
	HTML        string
	InReplyTo   string
	References  []string
	Headers     map[string]interface{}
	Date        time.Time
	Raw         string
	Attachments []ParsedAttachment
}

// ParsedAttachment is one attachment or named inline part
type ParsedAttachment struct {
	Filename    string
	ContentType string
	ContentID   string
	Inline      bool
	Content     []byte
}

// Size returns the attachment size in bytes
func (a ParsedAttachment) Size() int64 {
	return int64(len(a.Content))
}

var messageIDPattern = regexp.MustCompile(`<([^>]+)>`)

// Parse parses a raw RFC 5322 message. A missing Message-ID is synthesized,
// a missing subject becomes NoSubject and a missing Date becomes now.
func Parse(raw []byte) (*ParsedEmail, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	parsed := &ParsedEmail{
		MessageID:  cleanMessageID(env.GetHeader("Message-ID")),
		Subject:    strings.TrimSpace(env.GetHeader("Subject")),
		Text:       env.Text,
		HTML:       env.HTML,
		InReplyTo:  cleanMessageID(env.GetHeader("In-Reply-To")),
		References: parseReferences(env.GetHeader("References")),
		Headers:    headerMap(env),
		Raw:        string(raw),
	}

	if parsed.MessageID == "" {
		parsed.MessageID = GenerateMessageID(time.Now())
	}
	if parsed.Subject == "" {
		parsed.Subject = NoSubject
	}

	if date, err := env.Date(); err == nil {
		parsed.Date = date
	} else {
		parsed.Date = time.Now()
	}

	parsed.FromName, parsed.FromEmail = parseFrom(env)
	parsed.To = addressList(env, "To")
	parsed.Cc = addressList(env, "Cc")
	parsed.Bcc = addressList(env, "Bcc")

	if parsed.Text == "" && parsed.HTML != "" {
		parsed.Text = PlainText(parsed.HTML)
	}

	for _, att := range env.Attachments {
		parsed.Attachments = append(parsed.Attachments, ParsedAttachment{
			Filename:    att.FileName,
			ContentType: att.ContentType,
			ContentID:   att.ContentID,
			Content:     att.Content,
		})
	}

	// Inline parts are kept only when they carry a file name
	for _, att := range env.Inlines {
		if att.FileName != "" {
			parsed.Attachments = append(parsed.Attachments, ParsedAttachment{
				Filename:    att.FileName,
				ContentType: att.ContentType,
				ContentID:   att.ContentID,
				Inline:      true,
				Content:     att.Content,
			})
		}
	}

	return parsed, nil
}

// GenerateMessageID synthesizes an id for a message without a Message-ID
// header. The timestamp and random suffix keep it unique.
func GenerateMessageID(now time.Time) string {
	return fmt.Sprintf("generated-%d-%s", now.UnixMilli(), uuid.New().String())
}

// cleanMessageID strips angle brackets and whitespace from a message id
func cleanMessageID(id string) string {
	id = strings.TrimSpace(id)
	if m := messageIDPattern.FindStringSubmatch(id); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.Trim(id, "<> \t")
}

// parseReferences extracts every <id> of a References header in order
func parseReferences(header string) []string {
	if strings.TrimSpace(header) == "" {
		return nil
	}

	var refs []string
	for _, m := range messageIDPattern.FindAllStringSubmatch(header, -1) {
		if id := strings.TrimSpace(m[1]); id != "" {
			refs = append(refs, id)
		}
	}
	if len(refs) == 0 {
		// Some clients omit the brackets
		refs = strings.Fields(header)
	}
	return refs
}

func parseFrom(env *enmime.Envelope) (name, email string) {
	if addrs, err := env.AddressList("From"); err == nil && len(addrs) > 0 {
		return addrs[0].Name, strings.ToLower(addrs[0].Address)
	}
	return parseFromHeader(env.GetHeader("From"))
}

// parseFromHeader extracts name and email from a From header that net/mail
// could not parse
func parseFromHeader(from string) (name, email string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", ""
	}

	open := strings.LastIndex(from, "<")
	if open < 0 {
		return "", strings.ToLower(strings.Trim(from, `"`))
	}

	email = strings.TrimSuffix(strings.TrimSpace(from[open+1:]), ">")
	name = strings.Trim(strings.TrimSpace(from[:open]), `"`)
	return strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email))
}

func addressList(env *enmime.Envelope, key string) []string {
	addrs, err := env.AddressList(key)
	if err != nil || len(addrs) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Address)
	}
	return out
}

func headerMap(env *enmime.Envelope) map[string]interface{} {
	headers := make(map[string]interface{})
	for _, key := range env.GetHeaderKeys() {
		headers[strings.ToLower(key)] = strings.Join(env.GetHeaderValues(key), ", ")
	}
	return headers
}
