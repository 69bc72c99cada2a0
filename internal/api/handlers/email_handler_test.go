package handlers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"github.com/welldanyogia/helpdesk-mailsync/internal/repository"
	"github.com/welldanyogia/helpdesk-mailsync/internal/services"
	"github.com/welldanyogia/helpdesk-mailsync/tests/mocks"
)

// EmailHandlerTestSuite is the test suite for EmailHandler
type EmailHandlerTestSuite struct {
	suite.Suite
	echo        *echo.Echo
	handler     *EmailHandler
	companies   *mocks.MockCompanyRepository
	emails      *mocks.MockEmailRepository
	attachments *mocks.MockAttachmentRepository
	files       *mocks.MockFileStorage
	tickets     *mocks.MockTicketService
	acme        *models.Company
}

func (s *EmailHandlerTestSuite) SetupTest() {
	s.echo = echo.New()
	s.companies = new(mocks.MockCompanyRepository)
	s.emails = new(mocks.MockEmailRepository)
	s.attachments = new(mocks.MockAttachmentRepository)
	s.files = new(mocks.MockFileStorage)
	s.tickets = new(mocks.MockTicketService)
	s.handler = NewEmailHandler(s.companies, s.emails, s.attachments, s.files, s.tickets)
	s.acme = &models.Company{ID: 1, Name: "Acme", Slug: "acme"}
}

func (s *EmailHandlerTestSuite) TearDownTest() {
	s.companies.AssertExpectations(s.T())
	s.emails.AssertExpectations(s.T())
	s.attachments.AssertExpectations(s.T())
	s.files.AssertExpectations(s.T())
	s.tickets.AssertExpectations(s.T())
}

func TestEmailHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(EmailHandlerTestSuite))
}

func (s *EmailHandlerTestSuite) expectEmail(id, companyID uint) {
	s.companies.On("GetBySlug", mock.Anything, "acme").Return(s.acme, nil)
	s.emails.On("GetByID", mock.Anything, id).Return(&models.Email{
		ID:        id,
		CompanyID: companyID,
		Subject:   "Cannot log in",
		FromEmail: "jane@customer.test",
	}, nil)
}

func (s *EmailHandlerTestSuite) TestList_FiltersAndPaginates() {
	processed := false
	s.companies.On("GetBySlug", mock.Anything, "acme").Return(s.acme, nil)
	s.emails.On("ListByCompany", mock.Anything, uint(1), repository.EmailFilter{Processed: &processed, Limit: 5, Offset: 10}).
		Return([]models.EmailListItem{{ID: 3, Subject: "Cannot log in", ReceivedAt: time.Now()}}, int64(11), nil)

	c, rec := newContext(s.echo, http.MethodGet, "/api/companies/acme/emails?processed=false&limit=5&offset=10", "", map[string]string{"slug": "acme"})
	s.Require().NoError(s.handler.List(c))

	s.Equal(http.StatusOK, rec.Code)
	resp := decodeAPI(s.T(), rec)
	s.Equal(map[string]interface{}{"total": float64(11), "limit": float64(5), "offset": float64(10)}, resp["meta"])
}

func (s *EmailHandlerTestSuite) TestList_DefaultsAndBadFilter() {
	s.companies.On("GetBySlug", mock.Anything, "acme").Return(s.acme, nil)
	s.emails.On("ListByCompany", mock.Anything, uint(1), repository.EmailFilter{Limit: 100}).
		Return([]models.EmailListItem{}, int64(0), nil)

	c, rec := newContext(s.echo, http.MethodGet, "/api/companies/acme/emails?limit=1000", "", map[string]string{"slug": "acme"})
	s.Require().NoError(s.handler.List(c))
	s.Equal(http.StatusOK, rec.Code)

	c, rec = newContext(s.echo, http.MethodGet, "/api/companies/acme/emails?processed=maybe", "", map[string]string{"slug": "acme"})
	s.Require().NoError(s.handler.List(c))
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *EmailHandlerTestSuite) TestList_UnknownCompany() {
	s.companies.On("GetBySlug", mock.Anything, "nope").Return(nil, apperrors.ErrNotFound)

	c, rec := newContext(s.echo, http.MethodGet, "/api/companies/nope/emails", "", map[string]string{"slug": "nope"})
	s.Require().NoError(s.handler.List(c))
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal(apperrors.ErrCompanyNotFound.Error(), decodeErr(s.T(), rec).Error)
}

func (s *EmailHandlerTestSuite) TestGet_ScopedToCompany() {
	s.expectEmail(3, 2)

	c, rec := newContext(s.echo, http.MethodGet, "/api/companies/acme/emails/3", "", map[string]string{"slug": "acme", "id": "3"})
	s.Require().NoError(s.handler.Get(c))
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *EmailHandlerTestSuite) TestConvertToTicket() {
	s.tickets.On("ConvertEmail", mock.Anything, "acme", uint(3)).Return(&services.ConvertResult{
		Ticket:        &models.Ticket{ID: 9, TicketNumber: "TCK-0001"},
		AutoReplySent: true,
	}, nil).Once()
	s.tickets.On("ConvertEmail", mock.Anything, "acme", uint(3)).Return(nil, apperrors.ErrEmailAlreadyProcessed).Once()

	c, rec := newContext(s.echo, http.MethodPost, "/api/companies/acme/emails/3/convert-to-ticket", "", map[string]string{"slug": "acme", "id": "3"})
	s.Require().NoError(s.handler.ConvertToTicket(c))
	s.Equal(http.StatusCreated, rec.Code)
	s.Contains(rec.Body.String(), `"auto_reply_sent":true`)

	c, rec = newContext(s.echo, http.MethodPost, "/api/companies/acme/emails/3/convert-to-ticket", "", map[string]string{"slug": "acme", "id": "3"})
	s.Require().NoError(s.handler.ConvertToTicket(c))
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal(apperrors.CodeAlreadyProcessed, decodeErr(s.T(), rec).Code)
}

func (s *EmailHandlerTestSuite) TestReply() {
	s.tickets.On("ReplyToEmail", mock.Anything, "acme", uint(3), "Your password was reset.", uint(5)).
		Return(&services.ReplyResult{
			Ticket:  &models.Ticket{ID: 9},
			Comment: &models.TicketComment{ID: 1, Content: "Custom reply sent to customer:\n\nYour password was reset."},
		}, nil)

	c, rec := newContext(s.echo, http.MethodPost, "/api/companies/acme/emails/3/reply",
		`{"message":"Your password was reset.","user_id":5}`, map[string]string{"slug": "acme", "id": "3"})
	s.Require().NoError(s.handler.Reply(c))

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("reply sent", decodeAPI(s.T(), rec)["message"])
}

func (s *EmailHandlerTestSuite) TestReply_Errors() {
	s.tickets.On("ReplyToEmail", mock.Anything, "acme", uint(3), "", uint(0)).Return(nil, apperrors.ErrInvalidInput)
	s.tickets.On("ReplyToEmail", mock.Anything, "acme", uint(4), "Hi", uint(0)).Return(nil, services.ErrReplyNotSent)
	s.tickets.On("ReplyToEmail", mock.Anything, "acme", uint(5), "Hi", uint(0)).Return(nil, apperrors.ErrMailboxInactive)

	tests := []struct {
		id     string
		body   string
		status int
	}{
		{"3", `{"message":""}`, http.StatusBadRequest},
		{"4", `{"message":"Hi"}`, http.StatusBadGateway},
		{"5", `{"message":"Hi"}`, http.StatusBadRequest},
		{"x", `{"message":"Hi"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		c, rec := newContext(s.echo, http.MethodPost, "/reply", tt.body, map[string]string{"slug": "acme", "id": tt.id})
		s.Require().NoError(s.handler.Reply(c))
		s.Equal(tt.status, rec.Code, "email %s", tt.id)
	}
}

func (s *EmailHandlerTestSuite) TestListAttachments() {
	s.expectEmail(3, 1)
	s.attachments.On("ListByEmail", mock.Anything, uint(3)).
		Return([]models.EmailAttachment{{ID: 1, EmailID: 3, Filename: "invoice.txt"}}, nil)

	c, rec := newContext(s.echo, http.MethodGet, "/api/companies/acme/emails/3/attachments", "", map[string]string{"slug": "acme", "id": "3"})
	s.Require().NoError(s.handler.ListAttachments(c))

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "invoice.txt")
}

func (s *EmailHandlerTestSuite) TestDownloadAttachment() {
	s.expectEmail(3, 1)
	s.attachments.On("GetForEmail", mock.Anything, uint(3), uint(8)).Return(&models.EmailAttachment{
		ID:          8,
		EmailID:     3,
		Filename:    "invoice.txt",
		ContentType: "text/plain",
		FilePath:    "2026/03/abc.txt",
		SizeBytes:   12,
	}, nil)
	s.files.Holding("2026/03/abc.txt", "invoice body")

	c, rec := newContext(s.echo, http.MethodGet, "/download", "", map[string]string{"slug": "acme", "id": "3", "attachment_id": "8"})
	s.Require().NoError(s.handler.DownloadAttachment(c))

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("invoice body", rec.Body.String())
	s.Equal("text/plain", rec.Header().Get(echo.HeaderContentType))
	s.Equal(`attachment; filename="invoice.txt"`, rec.Header().Get(echo.HeaderContentDisposition))
}

func (s *EmailHandlerTestSuite) TestDownloadAttachment_OtherEmail() {
	s.expectEmail(3, 1)
	s.attachments.On("GetForEmail", mock.Anything, uint(3), uint(8)).Return(nil, repository.ErrNotFound)

	c, rec := newContext(s.echo, http.MethodGet, "/download", "", map[string]string{"slug": "acme", "id": "3", "attachment_id": "8"})
	s.Require().NoError(s.handler.DownloadAttachment(c))
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *EmailHandlerTestSuite) TestDownloadAttachment_StorageErrors() {
	s.expectEmail(3, 1)
	s.attachments.On("GetForEmail", mock.Anything, uint(3), uint(8)).Return(&models.EmailAttachment{ID: 8, EmailID: 3, FilePath: "gone.txt"}, nil)
	s.attachments.On("GetForEmail", mock.Anything, uint(3), uint(9)).Return(&models.EmailAttachment{ID: 9, EmailID: 3, FilePath: "broken.txt"}, nil)
	s.files.Missing("gone.txt", nil)
	s.files.Missing("broken.txt", errors.New("permission denied"))

	c, rec := newContext(s.echo, http.MethodGet, "/download", "", map[string]string{"slug": "acme", "id": "3", "attachment_id": "8"})
	s.Require().NoError(s.handler.DownloadAttachment(c))
	s.Equal(http.StatusNotFound, rec.Code)

	c, rec = newContext(s.echo, http.MethodGet, "/download", "", map[string]string{"slug": "acme", "id": "3", "attachment_id": "9"})
	s.Require().NoError(s.handler.DownloadAttachment(c))
	s.Equal(http.StatusInternalServerError, rec.Code)
}
