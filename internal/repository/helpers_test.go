package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/helpdesk-mailsync/internal/database"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory SQLite database with the full schema. A single
// connection keeps every query on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// fixtures creates a company with its owner and one active mailbox
type fixtures struct {
	owner   *models.User
	company *models.Company
	mailbox *models.Mailbox
}

func seedFixtures(t *testing.T, db *gorm.DB, slug string) fixtures {
	t.Helper()
	ctx := context.Background()

	owner := &models.User{Username: slug + "-owner", Name: "Owner", Email: "owner@" + slug + ".test"}
	require.NoError(t, NewUserRepository(db).Create(ctx, owner))

	company := &models.Company{
		Name:               "Company " + slug,
		Slug:               slug,
		OwnerID:            owner.ID,
		AutoRepliesEnabled: true,
	}
	require.NoError(t, NewCompanyRepository(db).Create(ctx, company))

	mailbox := &models.Mailbox{
		CompanyID:    company.ID,
		Name:         "Support",
		Email:        "support@" + slug + ".test",
		Protocol:     models.ProtocolIMAP,
		InboundHost:  "imap." + slug + ".test",
		InboundPort:  993,
		OutboundHost: "smtp." + slug + ".test",
		OutboundPort: 465,
		IsActive:     true,
	}
	require.NoError(t, NewMailboxRepository(db).Create(ctx, mailbox))

	return fixtures{owner: owner, company: company, mailbox: mailbox}
}

var emailSeq int

func seedEmail(t *testing.T, db *gorm.DB, f fixtures, mutate ...func(*models.Email)) *models.Email {
	t.Helper()
	emailSeq++
	email := &models.Email{
		CompanyID:  f.company.ID,
		MailboxID:  f.mailbox.ID,
		MessageID:  fmt.Sprintf("msg-%d@customer.test", emailSeq),
		Subject:    fmt.Sprintf("Question %d", emailSeq),
		FromEmail:  "customer@customer.test",
		FromName:   "Customer",
		ToEmail:    []string{f.mailbox.Email},
		Body:       "Hello",
		ReceivedAt: time.Now().Add(time.Duration(emailSeq) * time.Second),
	}
	for _, m := range mutate {
		m(email)
	}
	require.NoError(t, NewEmailRepository(db).Create(context.Background(), email))
	return email
}
