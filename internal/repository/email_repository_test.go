package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"gorm.io/datatypes"
)

func TestEmailRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewEmailRepository(db)
	ctx := context.Background()
	fx := seedFixtures(t, db, "acme")

	html := "<p>Hello</p>"
	email := &models.Email{
		CompanyID:  fx.company.ID,
		MailboxID:  fx.mailbox.ID,
		MessageID:  "abc@customer.test",
		Subject:    "Printer on fire",
		FromEmail:  "jane@customer.test",
		ToEmail:    []string{"support@acme.test"},
		CcEmail:    []string{"boss@customer.test", "it@customer.test"},
		Body:       "Hello",
		BodyHTML:   &html,
		InReplyTo:  "root@customer.test",
		References: []string{"root@customer.test"},
		Headers:    datatypes.JSONMap{"subject": "Printer on fire"},
	}
	attachments := []models.EmailAttachment{
		{Filename: "log.txt", ContentType: "text/plain", FilePath: "ab/log.txt", SizeBytes: 12},
	}

	require.NoError(t, repo.CreateWithAttachments(ctx, email, attachments))
	assert.NotZero(t, email.ID)

	found, err := repo.GetByID(ctx, email.ID)
	require.NoError(t, err)
	assert.Equal(t, "Printer on fire", found.Subject)
	assert.Equal(t, []string{"boss@customer.test", "it@customer.test"}, []string(found.CcEmail))
	assert.Equal(t, []string{"root@customer.test"}, []string(found.References))
	require.NotNil(t, found.BodyHTML)
	assert.Equal(t, html, *found.BodyHTML)
	require.Len(t, found.Attachments, 1)
	assert.Equal(t, email.ID, found.Attachments[0].EmailID)

	byMsg, err := repo.GetByMessageID(ctx, fx.mailbox.ID, "abc@customer.test")
	require.NoError(t, err)
	assert.Equal(t, email.ID, byMsg.ID)
}

func TestEmailRepository_DuplicateMessageIDInMailbox(t *testing.T) {
	db := newTestDB(t)
	repo := NewEmailRepository(db)
	fx := seedFixtures(t, db, "acme")

	first := seedEmail(t, db, fx)

	dup := *first
	dup.ID = 0
	err := repo.Create(context.Background(), &dup)
	assert.ErrorIs(t, err, ErrDuplicateEntry)
}

func TestEmailRepository_GetByMessageID_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewEmailRepository(db)
	fx := seedFixtures(t, db, "acme")

	_, err := repo.GetByMessageID(context.Background(), fx.mailbox.ID, "missing@nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmailRepository_ListByCompany(t *testing.T) {
	db := newTestDB(t)
	repo := NewEmailRepository(db)
	tickets := NewTicketRepository(db)
	ctx := context.Background()
	fx := seedFixtures(t, db, "acme")
	other := seedFixtures(t, db, "globex")

	older := seedEmail(t, db, fx)
	newer := seedEmail(t, db, fx)
	seedEmail(t, db, other)

	ticket := &models.Ticket{CompanyID: fx.company.ID, Subject: older.Subject, CreatorID: fx.owner.ID}
	require.NoError(t, tickets.CreateFromEmail(ctx, ticket, "TCK", older.ID))

	items, total, err := repo.ListByCompany(ctx, fx.company.ID, EmailFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, newer.ID, items[0].ID)
	assert.Nil(t, items[0].TicketID)
	require.NotNil(t, items[1].TicketID)
	assert.Equal(t, ticket.ID, *items[1].TicketID)

	unprocessed := false
	items, total, err = repo.ListByCompany(ctx, fx.company.ID, EmailFilter{Processed: &unprocessed})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, newer.ID, items[0].ID)

	items, total, err = repo.ListByCompany(ctx, fx.company.ID, EmailFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, older.ID, items[0].ID)
}
