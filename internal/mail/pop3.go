package mail

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/knadh/go-pop3"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
)

// POP3Dialer opens POP3 maildrop sessions
type POP3Dialer struct {
	AuthTimeout time.Duration
}

// Dial implements InboundDialer
func (d *POP3Dialer) Dial(ctx context.Context, mailbox *models.Mailbox) (InboundSession, error) {
	return DialPOP3(ctx, InboundConfigFor(mailbox, d.AuthTimeout))
}

// POP3Session is an authenticated POP3 session. POP3 has no seen flag, so
// every message left in the maildrop is unseen and acknowledging a message
// deletes it. Deletions are committed when the session is closed.
type POP3Session struct {
	conn *pop3.Conn
	ids  map[string]int
}

// DialPOP3 connects and authenticates with USER/PASS
func DialPOP3(ctx context.Context, cfg InboundConfig) (*POP3Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := pop3.New(pop3.Opt{
		Host:        cfg.Host,
		Port:        cfg.Port,
		TLSEnabled:  cfg.TLS,
		DialTimeout: cfg.timeout(),
	})

	conn, err := client.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.addr(), err)
	}

	if err := conn.Auth(cfg.User, cfg.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("POP3 login failed: %w", err)
	}

	return &POP3Session{conn: conn, ids: make(map[string]int)}, nil
}

// FetchUnseen retrieves every message in the maildrop. Messages are keyed by
// their UIDL so acknowledgements survive across sessions; servers without
// UIDL fall back to the message number.
func (s *POP3Session) FetchUnseen(ctx context.Context) ([]RawMessage, error) {
	list, err := s.index()
	if err != nil {
		return nil, err
	}

	messages := make([]RawMessage, 0, len(list))
	for _, item := range list {
		if err := ctx.Err(); err != nil {
			return messages, err
		}
		buf, err := s.conn.RetrRaw(item.ID)
		if err != nil {
			return messages, fmt.Errorf("failed to retrieve message %d: %w", item.ID, err)
		}
		messages = append(messages, RawMessage{UID: item.UID, Raw: buf.Bytes()})
	}
	return messages, nil
}

// Acknowledge marks the given messages for deletion. UIDs not present in the
// current maildrop are ignored.
func (s *POP3Session) Acknowledge(ctx context.Context, uids []string) error {
	if len(uids) == 0 {
		return nil
	}
	if len(s.ids) == 0 {
		if _, err := s.index(); err != nil {
			return err
		}
	}

	ids := make([]int, 0, len(uids))
	for _, uid := range uids {
		if id, ok := s.ids[uid]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	if err := s.conn.Dele(ids...); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	for _, uid := range uids {
		delete(s.ids, uid)
	}
	return nil
}

// index lists the maildrop and records the UID to message number mapping
func (s *POP3Session) index() ([]pop3.MessageID, error) {
	list, err := s.conn.Uidl(0)
	if err != nil {
		list, err = s.conn.List(0)
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
	}

	for i := range list {
		if list[i].UID == "" {
			list[i].UID = strconv.Itoa(list[i].ID)
		}
		s.ids[list[i].UID] = list[i].ID
	}
	return list, nil
}

// Close sends QUIT, which commits pending deletions
func (s *POP3Session) Close() error {
	return s.conn.Quit()
}
