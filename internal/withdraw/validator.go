package withdraw

import (
	"math"
	"strings"

	"github.com/chisomo-dev/coachpay/internal/config"
)

// Request is the client payload for POST /withdrawals.
type Request struct {
	CreditsAmount  float64        `json:"credits_amount"`
	PaymentMethod  string         `json:"payment_method"`
	PaymentDetails PaymentDetails `json:"payment_details"`
	Notes          string         `json:"notes,omitempty"`
}

type PaymentDetails struct {
	Mobile string `json:"mobile"`
}

// ValidateRequest bounds-checks the payload and normalizes the mobile number
// to the 9-digit subscriber form. It is pure and must run before any
// side-effecting stage. Returns the whole-credit amount and cleaned mobile.
func ValidateRequest(cfg config.WithdrawalConfig, req Request) (int64, string, error) {
	amt := req.CreditsAmount
	if math.IsNaN(amt) || math.IsInf(amt, 0) || amt <= 0 {
		return 0, "", errf(KindValidation, "credits_amount must be a positive number")
	}
	if amt != math.Trunc(amt) {
		return 0, "", errf(KindValidation, "credits_amount must be a whole number of credits")
	}
	credits := int64(amt)
	if credits < cfg.MinWithdrawal {
		return 0, "", errf(KindValidation, "minimum withdrawal is %d credits", cfg.MinWithdrawal)
	}
	if credits > cfg.MaxWithdrawal {
		return 0, "", errf(KindValidation, "maximum withdrawal is %d credits", cfg.MaxWithdrawal)
	}

	if req.PaymentMethod != "mobile_money" {
		return 0, "", errf(KindValidation, "unsupported payment method: only mobile_money is available")
	}

	mobile, err := normalizeMobile(req.PaymentDetails.Mobile)
	if err != nil {
		return 0, "", err
	}
	return credits, mobile, nil
}

// normalizeMobile strips the Malawi country prefix and separators, leaving
// the 9-digit subscriber number (e.g. "0991234567" -> "991234567").
func normalizeMobile(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	switch {
	case strings.HasPrefix(cleaned, "265") && len(cleaned) == 12:
		cleaned = cleaned[3:]
	case strings.HasPrefix(cleaned, "0") && len(cleaned) == 10:
		cleaned = cleaned[1:]
	}

	if len(cleaned) != 9 {
		return "", errf(KindValidation, "mobile number must have 9 digits after the country prefix")
	}
	if cleaned[0] != '9' && cleaned[0] != '8' {
		return "", errf(KindValidation, "mobile number does not match a supported mobile money network")
	}
	return cleaned, nil
}
