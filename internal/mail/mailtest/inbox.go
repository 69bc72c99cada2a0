package mailtest

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/welldanyogia/helpdesk-mailsync/internal/mail"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
)

// Inbox is an in-memory maildrop implementing mail.InboundDialer. Messages
// stay unseen until acknowledged.
type Inbox struct {
	mu       sync.Mutex
	nextUID  int
	messages []*inboxMessage

	// DialErr, FetchErr and AckErr make the matching call fail
	DialErr  error
	FetchErr error
	AckErr   error

	dials  int
	closed int
}

type inboxMessage struct {
	uid  string
	raw  []byte
	seen bool
}

// NewInbox returns an empty maildrop
func NewInbox() *Inbox {
	return &Inbox{}
}

// Deliver adds an unseen message and returns its UID
func (i *Inbox) Deliver(raw []byte) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.nextUID++
	uid := strconv.Itoa(i.nextUID)
	i.messages = append(i.messages, &inboxMessage{uid: uid, raw: raw})
	return uid
}

// Unseen returns the number of messages not yet acknowledged
func (i *Inbox) Unseen() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	n := 0
	for _, m := range i.messages {
		if !m.seen {
			n++
		}
	}
	return n
}

// Seen reports whether uid was acknowledged
func (i *Inbox) Seen(uid string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, m := range i.messages {
		if m.uid == uid {
			return m.seen
		}
	}
	return false
}

// Dials returns how many sessions were opened
func (i *Inbox) Dials() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.dials
}

// Closed returns how many sessions were closed
func (i *Inbox) Closed() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}

// Dial implements mail.InboundDialer
func (i *Inbox) Dial(ctx context.Context, _ *models.Mailbox) (mail.InboundSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.DialErr != nil {
		return nil, i.DialErr
	}
	i.dials++
	return &inboxSession{inbox: i}, nil
}

// Dialers routes each mailbox id to its own Inbox
type Dialers map[uint]*Inbox

// Dial implements mail.InboundDialer
func (d Dialers) Dial(ctx context.Context, mailbox *models.Mailbox) (mail.InboundSession, error) {
	inbox, ok := d[mailbox.ID]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return inbox.Dial(ctx, mailbox)
}

type inboxSession struct {
	inbox *Inbox
}

func (s *inboxSession) FetchUnseen(ctx context.Context) ([]mail.RawMessage, error) {
	s.inbox.mu.Lock()
	defer s.inbox.mu.Unlock()
	if s.inbox.FetchErr != nil {
		return nil, s.inbox.FetchErr
	}

	var out []mail.RawMessage
	for _, m := range s.inbox.messages {
		if !m.seen {
			out = append(out, mail.RawMessage{UID: m.uid, Raw: m.raw})
		}
	}
	return out, nil
}

func (s *inboxSession) Acknowledge(ctx context.Context, uids []string) error {
	s.inbox.mu.Lock()
	defer s.inbox.mu.Unlock()
	if s.inbox.AckErr != nil {
		return s.inbox.AckErr
	}

	want := make(map[string]bool, len(uids))
	for _, uid := range uids {
		want[uid] = true
	}
	for _, m := range s.inbox.messages {
		if want[m.uid] {
			m.seen = true
		}
	}
	return nil
}

func (s *inboxSession) Close() error {
	s.inbox.mu.Lock()
	s.inbox.closed++
	s.inbox.mu.Unlock()
	return nil
}
