package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	apperrors "github.com/welldanyogia/helpdesk-mailsync/internal/errors"
	"github.com/welldanyogia/helpdesk-mailsync/internal/logger"
	"github.com/welldanyogia/helpdesk-mailsync/internal/mail"
	"github.com/welldanyogia/helpdesk-mailsync/internal/models"
	"github.com/welldanyogia/helpdesk-mailsync/internal/repository"
	"github.com/welldanyogia/helpdesk-mailsync/internal/validator"
)

// Default ports applied when a connect request leaves them empty
const (
	DefaultSMTPPort = 465
	DefaultIMAPPort = 993
	DefaultPOP3Port = 995
)

// MailboxTester checks that a mailbox's servers accept its credentials
type MailboxTester interface {
	Test(ctx context.Context, mailbox *models.Mailbox) mail.MailboxTestResult
}

// ConnectMailboxInput is an operator's request to connect a mailbox. Empty
// users default to the mailbox address and nil TLS flags default to true.
type ConnectMailboxInput struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Protocol     string `json:"protocol"`
	InboundHost  string `json:"inbound_host"`
	InboundPort  int    `json:"inbound_port"`
	InboundUser  string `json:"inbound_user"`
	InboundPass  string `json:"inbound_pass"`
	InboundTLS   *bool  `json:"inbound_tls"`
	OutboundHost string `json:"outbound_host"`
	OutboundPort int    `json:"outbound_port"`
	OutboundUser string `json:"outbound_user"`
	OutboundPass string `json:"outbound_pass"`
	OutboundTLS  *bool  `json:"outbound_tls"`
}

// ConnectError carries the connection test result that rejected a mailbox
type ConnectError struct {
	Result mail.MailboxTestResult
}

func (e *ConnectError) Error() string {
	var parts []string
	if !e.Result.Inbound.Success {
		parts = append(parts, "inbound: "+e.Result.Inbound.Error)
	}
	if !e.Result.Outbound.Success {
		parts = append(parts, "outbound: "+e.Result.Outbound.Error)
	}
	return "mailbox connection test failed: " + strings.Join(parts, "; ")
}

func (e *ConnectError) Unwrap() error { return apperrors.ErrConnectionFailed }

// MailboxService manages the mailboxes of a company
type MailboxService struct {
	companies repository.CompanyRepository
	mailboxes repository.MailboxRepository
	tester    MailboxTester
	audit     *logger.AuditLogger
}

// NewMailboxService creates a new MailboxService
func NewMailboxService(
	companies repository.CompanyRepository,
	mailboxes repository.MailboxRepository,
	tester MailboxTester,
	audit *logger.AuditLogger,
	log *slog.Logger,
) *MailboxService {
	if audit == nil {
		audit = logger.NewAuditLogger(log)
	}
	return &MailboxService{
		companies: companies,
		mailboxes: mailboxes,
		tester:    tester,
		audit:     audit,
	}
}

func (s *MailboxService) company(ctx context.Context, slug string) (*models.Company, error) {
	company, err := s.companies.GetBySlug(ctx, slug)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrCompanyNotFound
		}
		return nil, err
	}
	return company, nil
}

// BuildMailbox applies defaults to in and validates the result
func BuildMailbox(companyID uint, in ConnectMailboxInput) (*models.Mailbox, error) {
	protocol := strings.ToLower(strings.TrimSpace(in.Protocol))
	if protocol == "" {
		protocol = models.ProtocolIMAP
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	mb := &models.Mailbox{
		CompanyID:    companyID,
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Protocol:     protocol,
		InboundHost:  strings.TrimSpace(in.InboundHost),
		InboundPort:  in.InboundPort,
		InboundUser:  in.InboundUser,
		InboundPass:  in.InboundPass,
		InboundTLS:   in.InboundTLS == nil || *in.InboundTLS,
		OutboundHost: strings.TrimSpace(in.OutboundHost),
		OutboundPort: in.OutboundPort,
		OutboundUser: in.OutboundUser,
		OutboundPass: in.OutboundPass,
		OutboundTLS:  in.OutboundTLS == nil || *in.OutboundTLS,
		IsActive:     true,
		Status:       models.MailboxStatusActive,
	}

	if mb.InboundPort == 0 {
		mb.InboundPort = DefaultIMAPPort
		if protocol == models.ProtocolPOP3 {
			mb.InboundPort = DefaultPOP3Port
		}
	}
	if mb.OutboundPort == 0 {
		mb.OutboundPort = DefaultSMTPPort
	}
	if mb.InboundUser == "" {
		mb.InboundUser = email
	}
	if mb.OutboundUser == "" {
		mb.OutboundUser = mb.InboundUser
	}
	if mb.OutboundPass == "" {
		mb.OutboundPass = mb.InboundPass
	}
	if mb.Name == "" {
		mb.Name = email
	}

	err := validator.ValidateMailbox(validator.MailboxInput{
		Email:        mb.Email,
		Protocol:     mb.Protocol,
		InboundHost:  mb.InboundHost,
		InboundPort:  mb.InboundPort,
		OutboundHost: mb.OutboundHost,
		OutboundPort: mb.OutboundPort,
		Password:     mb.InboundPass,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return mb, nil
}

// Connect tests a mailbox's inbound and outbound servers and stores it only
// when both accept the credentials
func (s *MailboxService) Connect(ctx context.Context, companySlug string, in ConnectMailboxInput) (*models.Mailbox, error) {
	company, err := s.company(ctx, companySlug)
	if err != nil {
		return nil, err
	}

	mb, err := BuildMailbox(company.ID, in)
	if err != nil {
		return nil, err
	}

	if res := s.test(ctx, mb); !res.OK() {
		return nil, &ConnectError{Result: res}
	}

	if err := s.mailboxes.Create(ctx, mb); err != nil {
		return nil, err
	}

	s.audit.MailboxConnected(company.ID, mb.ID, mb.Email, mb.InboundHost)
	return mb, nil
}

// Test runs the connection test for unsaved settings
func (s *MailboxService) Test(ctx context.Context, in ConnectMailboxInput) (mail.MailboxTestResult, error) {
	mb, err := BuildMailbox(0, in)
	if err != nil {
		return mail.MailboxTestResult{}, err
	}
	return s.test(ctx, mb), nil
}

func (s *MailboxService) test(ctx context.Context, mb *models.Mailbox) mail.MailboxTestResult {
	res := s.tester.Test(ctx, mb)
	if !res.Inbound.Success {
		s.audit.ConnectionTestFailed(mb.Protocol, mb.InboundHost, mb.InboundUser, res.Inbound.Error)
	}
	if !res.Outbound.Success {
		s.audit.ConnectionTestFailed("smtp", mb.OutboundHost, mb.OutboundUser, res.Outbound.Error)
	}
	return res
}

// List returns the mailboxes of a company
func (s *MailboxService) List(ctx context.Context, companySlug string) ([]models.Mailbox, error) {
	company, err := s.company(ctx, companySlug)
	if err != nil {
		return nil, err
	}
	return s.mailboxes.ListByCompany(ctx, company.ID)
}

// Get returns a mailbox by id
func (s *MailboxService) Get(ctx context.Context, id uint) (*models.Mailbox, error) {
	mb, err := s.mailboxes.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrMailboxNotFound
		}
		return nil, err
	}
	return mb, nil
}

// SetActive enables or disables syncing of a mailbox
func (s *MailboxService) SetActive(ctx context.Context, id uint, active bool) (*models.Mailbox, error) {
	if err := s.mailboxes.SetActive(ctx, id, active); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ErrMailboxNotFound
		}
		return nil, err
	}
	s.audit.Event("mailbox_status_changed", map[string]string{
		"mailbox_id": strconv.FormatUint(uint64(id), 10),
		"active":     strconv.FormatBool(active),
	})
	return s.Get(ctx, id)
}

// Delete removes a mailbox and its stored emails
func (s *MailboxService) Delete(ctx context.Context, id uint) error {
	mb, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.mailboxes.Delete(ctx, id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.ErrMailboxNotFound
		}
		return err
	}
	s.audit.MailboxRemoved(mb.CompanyID, mb.ID)
	return nil
}
