package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// GiftCertificate is a prepaid, balance-bearing credit instrument.
// Everything except RemainingBalance is immutable after issuance, and
// RemainingBalance only moves through settlement. Certificates are never
// deleted; expired or exhausted ones simply stop validating.
type GiftCertificate struct {
	Code             string          `json:"code"`
	InitialValue     decimal.Decimal `json:"initialValue"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
	RecipientName    string          `json:"recipientName,omitempty"`
	RecipientEmail   string          `json:"recipientEmail,omitempty"`
	SenderName       string          `json:"senderName,omitempty"`
	Message          string          `json:"message,omitempty"`
	DateIssued       time.Time       `json:"dateIssued"`
	DateExpires      time.Time       `json:"dateExpires"`
}

// Redeemable reports whether the certificate can still be applied to an
// order at the given instant.
func (c *GiftCertificate) Redeemable(now time.Time) bool {
	return !now.After(c.DateExpires) && c.RemainingBalance.IsPositive()
}

// CertificateRequest is the payload for issuing a new gift certificate.
type CertificateRequest struct {
	InitialValue   decimal.Decimal `json:"initialValue"`
	RecipientName  string          `json:"recipientName,omitempty"`
	RecipientEmail string          `json:"recipientEmail,omitempty"`
	SenderName     string          `json:"senderName,omitempty"`
	Message        string          `json:"message,omitempty"`

	// ExpiresInDays overrides the default validity window when positive.
	ExpiresInDays int `json:"expiresInDays,omitempty"`
}

// ValidateRequest is the payload for checking a certificate code.
// Amount is informational only; validation never reserves balance.
type ValidateRequest struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount,omitempty"`
}

// ValidationResult is the structured outcome of a certificate check.
// Business-rule failures are reported here, never as errors, so a batch
// of codes can partially succeed.
type ValidationResult struct {
	Valid            bool            `json:"valid"`
	Code             string          `json:"code"`
	Reason           string          `json:"reason,omitempty"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
}

// Allocation is the amount of one certificate applied to an order before
// anything is made durable.
type Allocation struct {
	Code          string          `json:"code"`
	AppliedAmount decimal.Decimal `json:"appliedAmount"`
}

// AllocationError reports a code that could not contribute to an order.
type AllocationError struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// AllocationResult is the outcome of allocating a batch of codes against
// an order total.
type AllocationResult struct {
	Allocations []Allocation      `json:"allocations"`
	Errors      []AllocationError `json:"errors,omitempty"`

	// Remaining is the part of the order total not covered by
	// certificates, owed by other payment means.
	Remaining decimal.Decimal `json:"remaining"`
}

// Applied converts the allocations into the shape stored on the order.
func (r *AllocationResult) Applied() []AppliedCertificate {
	if len(r.Allocations) == 0 {
		return nil
	}
	applied := make([]AppliedCertificate, len(r.Allocations))
	for i, a := range r.Allocations {
		applied[i] = AppliedCertificate{Code: a.Code, AppliedAmount: a.AppliedAmount}
	}
	return applied
}

// SettlementEntry records the durable outcome for one certificate.
type SettlementEntry struct {
	Code             string          `json:"code"`
	Requested        decimal.Decimal `json:"requested"`
	Applied          decimal.Decimal `json:"applied"`
	RemainingBalance decimal.Decimal `json:"remainingBalance"`
	Shortfall        bool            `json:"shortfall,omitempty"`
}

// SettlementResult is the recorded outcome of settling an order's
// applied certificates. It is persisted on the order so a repeated
// settlement returns the prior result instead of decrementing again.
type SettlementResult struct {
	SettlementID string            `json:"settlementId"`
	OrderID      string            `json:"orderId"`
	Entries      []SettlementEntry `json:"entries"`

	// NeedsReconciliation is set when any certificate could not cover
	// its allocated amount and the shortfall was flagged for manual
	// follow-up.
	NeedsReconciliation bool      `json:"needsReconciliation"`
	SettledAt           time.Time `json:"settledAt"`

	// AlreadySettled is set on results returned for a repeated
	// settlement call. It is never persisted.
	AlreadySettled bool `json:"alreadySettled,omitempty"`
}
