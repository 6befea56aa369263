package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON         = "INVALID_JSON"
	ErrCodeMissingField        = "MISSING_FIELD"
	ErrCodeInvalidQuantity     = "INVALID_QUANTITY"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeInvalidStatus       = "INVALID_STATUS"
	ErrCodeEmptyPatch          = "EMPTY_PATCH"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeCertificateNotFound = "CERTIFICATE_NOT_FOUND"
	ErrCodeConflictingFinalize = "CONFLICTING_FINALIZE"
	ErrCodeVersionMismatch     = "VERSION_MISMATCH"
	ErrCodeOrderCancelled      = "ORDER_CANCELLED"
	ErrCodeStoreUnavailable    = "STORE_UNAVAILABLE"
	ErrCodeUnauthorised        = "UNAUTHORIZED"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// Reasons reported in structured validation and allocation results.
// These are user-correctable outcomes, not errors: a batch of codes can
// partially succeed around them.
const (
	ReasonNotFound          = "NotFound"
	ReasonExpired           = "Expired"
	ReasonExhausted         = "Exhausted"
	ReasonDuplicateCode     = "DuplicateCode"
	ReasonOrderFullyCovered = "OrderFullyCovered"
)

// DomainError is a business-logic error with a stable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors. Merge-writer and settlement raise these as hard
// errors since they indicate caller misuse or store trouble, unlike the
// structured reasons above.
var (
	ErrOrderNotFound       = NewDomainError(ErrCodeOrderNotFound, "Order does not exist")
	ErrCertificateNotFound = NewDomainError(ErrCodeCertificateNotFound, "Gift certificate does not exist")
	ErrConflictingFinalize = NewDomainError(ErrCodeConflictingFinalize, "Items and totals are frozen on a completed or cancelled order")
	ErrVersionMismatch     = NewDomainError(ErrCodeVersionMismatch, "Order was modified concurrently, re-read and retry")
	ErrOrderCancelled      = NewDomainError(ErrCodeOrderCancelled, "Cancelled orders cannot be settled")
	ErrStoreUnavailable    = NewDomainError(ErrCodeStoreUnavailable, "Persistent store is unavailable, retry with backoff")
	ErrEmptyPatch          = NewDomainError(ErrCodeEmptyPatch, "Partial update must contain at least one field")
	ErrInvalidStatus       = NewDomainError(ErrCodeInvalidStatus, "Unknown order status")
	ErrInvalidQuantity     = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidAmount       = NewDomainError(ErrCodeInvalidAmount, "Amount must be greater than zero")
)
