package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"gorm.io/gorm"
)

// MailboxRepositoryTestSuite is the test suite for MailboxRepository
type MailboxRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo MailboxRepository
	fx   fixtures
}

// SetupTest runs before each test with a fresh database
func (s *MailboxRepositoryTestSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.repo = NewMailboxRepository(s.db)
	s.fx = seedFixtures(s.T(), s.db, "acme")
}

// TestMailboxRepositoryTestSuite runs the test suite
func TestMailboxRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(MailboxRepositoryTestSuite))
}

// ==================== Create Tests ====================

func (s *MailboxRepositoryTestSuite) TestCreate_DefaultsStatusToActive() {
	mailbox := &models.Mailbox{
		CompanyID: s.fx.company.ID,
		Email:     "billing@acme.test",
		Protocol:  models.ProtocolPOP3,
		IsActive:  true,
	}

	err := s.repo.Create(context.Background(), mailbox)

	require.NoError(s.T(), err)
	assert.NotZero(s.T(), mailbox.ID)
	assert.Equal(s.T(), models.MailboxStatusActive, mailbox.Status)
}

// ==================== GetByID Tests ====================

func (s *MailboxRepositoryTestSuite) TestGetByID_Found() {
	found, err := s.repo.GetByID(context.Background(), s.fx.mailbox.ID)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.fx.mailbox.Email, found.Email)
	assert.Equal(s.T(), 993, found.InboundPort)
}

func (s *MailboxRepositoryTestSuite) TestGetByID_NotFound() {
	found, err := s.repo.GetByID(context.Background(), 9999)

	assert.Nil(s.T(), found)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

// ==================== Listing Tests ====================

func (s *MailboxRepositoryTestSuite) TestListActive_SkipsInactive() {
	ctx := context.Background()
	inactive := &models.Mailbox{CompanyID: s.fx.company.ID, Email: "old@acme.test", Protocol: models.ProtocolIMAP}
	require.NoError(s.T(), s.repo.Create(ctx, inactive))
	require.NoError(s.T(), s.repo.SetActive(ctx, inactive.ID, false))

	other := seedFixtures(s.T(), s.db, "globex")

	active, err := s.repo.ListActive(ctx)

	require.NoError(s.T(), err)
	require.Len(s.T(), active, 2)
	assert.Equal(s.T(), s.fx.mailbox.ID, active[0].ID)
	assert.Equal(s.T(), other.mailbox.ID, active[1].ID)
}

func (s *MailboxRepositoryTestSuite) TestListByCompany_ScopesToCompany() {
	seedFixtures(s.T(), s.db, "globex")

	mailboxes, err := s.repo.ListByCompany(context.Background(), s.fx.company.ID)

	require.NoError(s.T(), err)
	require.Len(s.T(), mailboxes, 1)
	assert.Equal(s.T(), s.fx.mailbox.ID, mailboxes[0].ID)
}

func (s *MailboxRepositoryTestSuite) TestFirstActiveByCompany() {
	ctx := context.Background()

	found, err := s.repo.FirstActiveByCompany(ctx, s.fx.company.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.fx.mailbox.ID, found.ID)

	require.NoError(s.T(), s.repo.SetActive(ctx, s.fx.mailbox.ID, false))
	_, err = s.repo.FirstActiveByCompany(ctx, s.fx.company.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

// ==================== Status Tests ====================

func (s *MailboxRepositoryTestSuite) TestMarkErrorThenSynced() {
	ctx := context.Background()

	require.NoError(s.T(), s.repo.MarkError(ctx, s.fx.mailbox.ID, "authentication failed"))
	found, err := s.repo.GetByID(ctx, s.fx.mailbox.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.MailboxStatusError, found.Status)
	require.NotNil(s.T(), found.LastError)
	assert.Equal(s.T(), "authentication failed", *found.LastError)

	at := time.Now().Truncate(time.Second)
	require.NoError(s.T(), s.repo.MarkSynced(ctx, s.fx.mailbox.ID, at))
	found, err = s.repo.GetByID(ctx, s.fx.mailbox.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.MailboxStatusActive, found.Status)
	assert.Nil(s.T(), found.LastError)
	require.NotNil(s.T(), found.LastSyncAt)
	assert.WithinDuration(s.T(), at, *found.LastSyncAt, time.Second)
}

func (s *MailboxRepositoryTestSuite) TestSetActive_UpdatesStatus() {
	ctx := context.Background()

	require.NoError(s.T(), s.repo.SetActive(ctx, s.fx.mailbox.ID, false))
	found, err := s.repo.GetByID(ctx, s.fx.mailbox.ID)
	require.NoError(s.T(), err)
	assert.False(s.T(), found.IsActive)
	assert.Equal(s.T(), models.MailboxStatusInactive, found.Status)
}

func (s *MailboxRepositoryTestSuite) TestMarkSynced_NotFound() {
	err := s.repo.MarkSynced(context.Background(), 9999, time.Now())
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

// ==================== Delete Tests ====================

func (s *MailboxRepositoryTestSuite) TestDelete() {
	ctx := context.Background()

	require.NoError(s.T(), s.repo.Delete(ctx, s.fx.mailbox.ID))

	_, err := s.repo.GetByID(ctx, s.fx.mailbox.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
	assert.ErrorIs(s.T(), s.repo.Delete(ctx, s.fx.mailbox.ID), ErrNotFound)
}
