package mail

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
)

// IMAPDialer opens IMAP sessions on the INBOX folder
type IMAPDialer struct {
	AuthTimeout time.Duration
}

// Dial implements InboundDialer
func (d *IMAPDialer) Dial(ctx context.Context, mailbox *models.Mailbox) (InboundSession, error) {
	return DialIMAP(ctx, InboundConfigFor(mailbox, d.AuthTimeout))
}

// IMAPSession is an authenticated IMAP session with INBOX selected
type IMAPSession struct {
	conn   net.Conn
	client *imapclient.Client
}

// DialIMAP connects, logs in and selects INBOX. Connecting and logging in must
// finish within the auth timeout.
func DialIMAP(ctx context.Context, cfg InboundConfig) (*IMAPSession, error) {
	conn, err := dial(ctx, cfg.Host, cfg.Port, cfg.TLS, cfg.timeout())
	if err != nil {
		return nil, err
	}

	_ = conn.SetDeadline(time.Now().Add(cfg.timeout()))
	client := imapclient.New(conn, &imapclient.Options{})

	if err := client.Login(cfg.User, cfg.Password).Wait(); err != nil {
		client.Close()
		return nil, fmt.Errorf("IMAP login failed: %w", err)
	}

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})

	return &IMAPSession{conn: conn, client: client}, nil
}

// FetchUnseen returns the full body of every unseen message. BODY.PEEK is
// used so fetching does not set \Seen.
func (s *IMAPSession) FetchUnseen(ctx context.Context) ([]RawMessage, error) {
	s.applyDeadline(ctx)
	defer s.clearDeadline()

	search, err := s.client.UIDSearch(&imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("failed to search unseen messages: %w", err)
	}

	uids := search.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	section := &imap.FetchItemBodySection{Peek: true}
	buffers, err := s.client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	}).Collect()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	messages := make([]RawMessage, 0, len(buffers))
	for _, buf := range buffers {
		body := buf.FindBodySection(section)
		if body == nil {
			continue
		}
		messages = append(messages, RawMessage{
			UID: strconv.FormatUint(uint64(buf.UID), 10),
			Raw: body,
		})
	}
	return messages, nil
}

// Acknowledge sets \Seen on the given messages
func (s *IMAPSession) Acknowledge(ctx context.Context, uids []string) error {
	if len(uids) == 0 {
		return nil
	}

	var set imap.UIDSet
	for _, raw := range uids {
		uid, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid IMAP uid %q: %w", raw, err)
		}
		set.AddNum(imap.UID(uid))
	}

	s.applyDeadline(ctx)
	defer s.clearDeadline()

	err := s.client.Store(set, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil).Close()
	if err != nil {
		return fmt.Errorf("failed to mark messages seen: %w", err)
	}
	return nil
}

// Close logs out and closes the connection
func (s *IMAPSession) Close() error {
	_ = s.conn.SetDeadline(time.Now().Add(5 * time.Second))
	if err := s.client.Logout().Wait(); err != nil {
		s.client.Close()
		return err
	}
	return s.client.Close()
}

func (s *IMAPSession) applyDeadline(ctx context.Context) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetDeadline(deadline)
	}
}

func (s *IMAPSession) clearDeadline() {
	_ = s.conn.SetDeadline(time.Time{})
}
