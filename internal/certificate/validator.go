package certificate

import (
	"context"
	"errors"
	"strings"
	"time"

	"shopledger/internal/model"
	"shopledger/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// validator implements Validator against the certificate store.
type validator struct {
	certs  repository.CertificateRepository
	now    func() time.Time
	logger zerolog.Logger
}

// NewValidator creates a store-backed certificate validator.
func NewValidator(certs repository.CertificateRepository, logger zerolog.Logger) Validator {
	return &validator{
		certs:  certs,
		now:    time.Now,
		logger: logger.With().Str("component", "certificate-validator").Logger(),
	}
}

// Validate checks the code against the store without mutating anything.
func (v *validator) Validate(ctx context.Context, code string, requested decimal.Decimal) (*model.ValidationResult, error) {
	trimmed := strings.TrimSpace(code)

	cert, err := v.certs.GetByCode(ctx, trimmed)
	if err != nil {
		if errors.Is(err, model.ErrCertificateNotFound) {
			v.logger.Debug().Str("code", trimmed).Msg("certificate not found")
			return &model.ValidationResult{
				Code:   strings.ToUpper(trimmed),
				Reason: model.ReasonNotFound,
			}, nil
		}
		return nil, err
	}

	if v.now().After(cert.DateExpires) {
		v.logger.Debug().
			Str("code", cert.Code).
			Time("expired", cert.DateExpires).
			Msg("certificate expired")
		return &model.ValidationResult{
			Code:   cert.Code,
			Reason: model.ReasonExpired,
		}, nil
	}

	if !cert.RemainingBalance.IsPositive() {
		v.logger.Debug().Str("code", cert.Code).Msg("certificate exhausted")
		return &model.ValidationResult{
			Code:   cert.Code,
			Reason: model.ReasonExhausted,
		}, nil
	}

	v.logger.Debug().
		Str("code", cert.Code).
		Str("available", cert.RemainingBalance.String()).
		Str("requested", requested.String()).
		Msg("certificate valid")

	return &model.ValidationResult{
		Valid:            true,
		Code:             cert.Code,
		AvailableBalance: cert.RemainingBalance,
	}, nil
}
