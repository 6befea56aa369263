package service

import (
	"context"
	"fmt"
	"time"

	"shopledger/internal/certificate"
	"shopledger/internal/event"
	"shopledger/internal/identifier"
	"shopledger/internal/metrics"
	"shopledger/internal/model"
	"shopledger/internal/repository"

	"github.com/rs/zerolog"
)

// certificateService implements CertificateService.
type certificateService struct {
	certs        repository.CertificateRepository
	validator    certificate.Validator
	ids          *identifier.Generator
	mail         event.Publisher
	validityDays int
	now          func() time.Time
	logger       zerolog.Logger
}

// NewCertificateService creates a new certificate service.
func NewCertificateService(
	certs repository.CertificateRepository,
	validator certificate.Validator,
	ids *identifier.Generator,
	mail event.Publisher,
	validityDays int,
	logger zerolog.Logger,
) CertificateService {
	return &certificateService{
		certs:        certs,
		validator:    validator,
		ids:          ids,
		mail:         mail,
		validityDays: validityDays,
		now:          time.Now,
		logger:       logger.With().Str("service", "certificate").Logger(),
	}
}

// Issue creates a new gift certificate with a freshly allocated code.
func (s *certificateService) Issue(ctx context.Context, req *model.CertificateRequest) (*model.GiftCertificate, error) {
	if req == nil {
		return nil, fmt.Errorf("certificate request is nil")
	}
	if !req.InitialValue.IsPositive() {
		s.logger.Warn().Str("value", req.InitialValue.String()).Msg("invalid certificate value")
		return nil, model.ErrInvalidAmount
	}

	existing, err := s.certs.ListCodes(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list certificate codes")
		return nil, err
	}

	days := s.validityDays
	if req.ExpiresInDays > 0 {
		days = req.ExpiresInDays
	}

	now := s.now()
	cert := &model.GiftCertificate{
		Code:             s.ids.NextCertificateCode(existing),
		InitialValue:     req.InitialValue,
		RemainingBalance: req.InitialValue,
		RecipientName:    req.RecipientName,
		RecipientEmail:   req.RecipientEmail,
		SenderName:       req.SenderName,
		Message:          req.Message,
		DateIssued:       now,
		DateExpires:      now.AddDate(0, 0, days),
	}

	if err := s.certs.Create(ctx, cert); err != nil {
		s.logger.Error().Err(err).Str("code", cert.Code).Msg("failed to create certificate")
		return nil, err
	}

	metrics.CertificatesIssuedTotal.Inc()
	s.logger.Info().
		Str("code", cert.Code).
		Str("value", cert.InitialValue.String()).
		Time("expires", cert.DateExpires).
		Msg("certificate issued")

	s.sendIssuanceMail(ctx, cert)

	return cert, nil
}

// Validate checks a certificate code without reserving any balance.
func (s *certificateService) Validate(ctx context.Context, req *model.ValidateRequest) (*model.ValidationResult, error) {
	if req == nil || req.Code == "" {
		return nil, fmt.Errorf("certificate code is required")
	}
	return s.validator.Validate(ctx, req.Code, req.Amount)
}

// GetByCode retrieves a certificate by its case-insensitive code.
func (s *certificateService) GetByCode(ctx context.Context, code string) (*model.GiftCertificate, error) {
	return s.certs.GetByCode(ctx, code)
}

// sendIssuanceMail notifies the recipient. Mail trouble never unwinds
// the issued certificate.
func (s *certificateService) sendIssuanceMail(ctx context.Context, cert *model.GiftCertificate) {
	if cert.RecipientEmail == "" {
		return
	}
	evt := event.MailEvent{
		To:      cert.RecipientEmail,
		Subject: "You have received a gift certificate",
		TemplateData: map[string]any{
			"code":      cert.Code,
			"value":     cert.InitialValue.String(),
			"sender":    cert.SenderName,
			"message":   cert.Message,
			"expiresAt": cert.DateExpires.Format("2006-01-02"),
		},
	}
	if err := s.mail.PublishMail(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("code", cert.Code).Msg("failed to publish issuance mail")
	}
}
