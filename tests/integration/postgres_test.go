//go:build integration

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/welldanyogia/helpdesk-mailsync/internal/database"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// postgresDB is a migrated database in a throwaway container
type postgresDB struct {
	container testcontainers.Container
	db        *gorm.DB
	dsn       string
}

// startPostgres starts PostgreSQL, migrates it and terminates the container
// when the test ends
func startPostgres(t *testing.T) *postgresDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "mailsync_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=mailsync_test sslmode=disable",
		host, port.Port())

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	return &postgresDB{container: container, db: db, dsn: dsn}
}

// reset empties every table between tests
func (p *postgresDB) reset(t *testing.T) {
	t.Helper()
	require.NoError(t, p.db.Exec(`TRUNCATE TABLE ticket_comments, ticket_emails, ticket_counters, tickets,
		email_attachments, emails, message_templates, mailboxes, companies, users RESTART IDENTITY CASCADE`).Error)
}

// seed stores an owner, a company with both deliveries enabled and an
// active mailbox whose outbound side points at smtpHost:smtpPort
func (p *postgresDB) seed(t *testing.T, smtpHost string, smtpPort int) (*models.Company, *models.Mailbox) {
	t.Helper()
	owner := &models.User{Username: "acme-owner", Name: "Olivia Owner", Email: "owner@acme.test"}
	require.NoError(t, p.db.Create(owner).Error)

	company := &models.Company{
		Name:                 "Acme",
		Slug:                 "acme",
		OwnerID:              owner.ID,
		TicketIDPrefix:       "AAR",
		AutoRepliesEnabled:   true,
		NotificationsEnabled: true,
	}
	require.NoError(t, p.db.Create(company).Error)

	mailbox := &models.Mailbox{
		CompanyID:    company.ID,
		Name:         "Support",
		Email:        "support@acme.test",
		Protocol:     models.ProtocolIMAP,
		InboundHost:  "imap.acme.test",
		InboundPort:  993,
		OutboundHost: smtpHost,
		OutboundPort: smtpPort,
		IsActive:     true,
	}
	require.NoError(t, p.db.Create(mailbox).Error)
	return company, mailbox
}
