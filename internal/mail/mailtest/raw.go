package mailtest

import (
	"fmt"
	"strings"
	"time"
)

// Raw describes a simple inbound message for tests
type Raw struct {
	From       string
	To         string
	Subject    string
	MessageID  string
	InReplyTo  string
	References []string
	Date       time.Time
	Text       string
	HTML       string
}

// Bytes renders the message as RFC 5322 text. HTML turns the body into
// multipart/alternative.
func (r Raw) Bytes() []byte {
	var b strings.Builder
	to := r.To
	if to == "" {
		to = "support@example.com"
	}

	fmt.Fprintf(&b, "From: %s\r\n", r.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	if r.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\r\n", r.Subject)
	}
	if r.MessageID != "" {
		fmt.Fprintf(&b, "Message-ID: <%s>\r\n", r.MessageID)
	}
	if r.InReplyTo != "" {
		fmt.Fprintf(&b, "In-Reply-To: <%s>\r\n", r.InReplyTo)
	}
	if len(r.References) > 0 {
		refs := make([]string, len(r.References))
		for i, ref := range r.References {
			refs[i] = "<" + ref + ">"
		}
		fmt.Fprintf(&b, "References: %s\r\n", strings.Join(refs, " "))
	}
	if !r.Date.IsZero() {
		fmt.Fprintf(&b, "Date: %s\r\n", r.Date.Format(time.RFC1123Z))
	}
	b.WriteString("MIME-Version: 1.0\r\n")

	if r.HTML == "" {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(r.Text)
		b.WriteString("\r\n")
		return []byte(b.String())
	}

	const boundary = "mailtest-boundary"
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", boundary, r.Text)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", boundary, r.HTML)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}
