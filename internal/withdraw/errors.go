package withdraw

import (
	"fmt"
	"net/http"
)

// Kind identifies which pipeline stage rejected a withdrawal.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindAuth         Kind = "auth"
	KindRateLimit    Kind = "rate_limit"
	KindDailyCap     Kind = "daily_cap"
	KindCreditAging  Kind = "credit_aging"
	KindFraudBlock   Kind = "fraud_block"
	KindInsufficient Kind = "insufficient_balance"
	KindPayout       Kind = "payout"
	KindPersistence  Kind = "persistence"
	// KindUnavailable is returned by fail-closed checks when their backing
	// aggregate cannot be read.
	KindUnavailable Kind = "unavailable"
)

// Error is a stage-specific pipeline rejection. Every failure carries exactly
// one human-readable message for the client.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

func errf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps a rejection kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindAuth:
		return http.StatusUnauthorized
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindPersistence:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
