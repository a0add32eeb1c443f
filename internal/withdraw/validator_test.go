package withdraw

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/chisomo-dev/coachpay/internal/config"
)

func testWithdrawalConfig() config.WithdrawalConfig {
	return config.WithdrawalConfig{
		MinWithdrawal:     10,
		MaxWithdrawal:     10000,
		DailyLimit:        50000,
		CreditAgingDays:   3,
		RateLimitPerHour:  5,
		HighRiskThreshold: 50,
		BlockThreshold:    75,
		ExchangeRate:      decimal.NewFromInt(100),
	}
}

func validRequest() Request {
	return Request{
		CreditsAmount: 100,
		PaymentMethod: "mobile_money",
		PaymentDetails: PaymentDetails{
			Mobile: "0991234567",
		},
	}
}

func TestValidateRequest(t *testing.T) {
	cfg := testWithdrawalConfig()

	t.Run("accepts a valid request", func(t *testing.T) {
		credits, mobile, err := ValidateRequest(cfg, validRequest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if credits != 100 {
			t.Errorf("credits = %d, want 100", credits)
		}
		if mobile != "991234567" {
			t.Errorf("mobile = %q, want 991234567", mobile)
		}
	})

	t.Run("rejects non-numeric amounts", func(t *testing.T) {
		for name, amt := range map[string]float64{
			"NaN":      math.NaN(),
			"Inf":      math.Inf(1),
			"negative": -50,
			"zero":     0,
		} {
			req := validRequest()
			req.CreditsAmount = amt
			if _, _, err := ValidateRequest(cfg, req); err == nil {
				t.Errorf("%s: expected validation error", name)
			}
		}
	})

	t.Run("rejects fractional credits", func(t *testing.T) {
		req := validRequest()
		req.CreditsAmount = 100.5
		_, _, err := ValidateRequest(cfg, req)
		assertKind(t, err, KindValidation)
	})

	t.Run("rejects below minimum", func(t *testing.T) {
		req := validRequest()
		req.CreditsAmount = 9
		_, _, err := ValidateRequest(cfg, req)
		assertKind(t, err, KindValidation)
	})

	t.Run("accepts exactly the minimum and maximum", func(t *testing.T) {
		for _, amt := range []float64{10, 10000} {
			req := validRequest()
			req.CreditsAmount = amt
			if _, _, err := ValidateRequest(cfg, req); err != nil {
				t.Errorf("amount %v: unexpected error: %v", amt, err)
			}
		}
	})

	t.Run("rejects above maximum", func(t *testing.T) {
		req := validRequest()
		req.CreditsAmount = 10001
		_, _, err := ValidateRequest(cfg, req)
		assertKind(t, err, KindValidation)
	})

	t.Run("rejects unsupported payment methods", func(t *testing.T) {
		req := validRequest()
		req.PaymentMethod = "bank_transfer"
		_, _, err := ValidateRequest(cfg, req)
		assertKind(t, err, KindValidation)
	})
}

func TestNormalizeMobile(t *testing.T) {
	valid := map[string]string{
		"991234567":        "991234567",
		"0991234567":       "991234567",
		"265991234567":     "991234567",
		"+265 99 123 4567": "991234567",
		"0881234567":       "881234567",
		"088-123-4567":     "881234567",
	}
	for raw, want := range valid {
		got, err := normalizeMobile(raw)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", raw, err)
			continue
		}
		if got != want {
			t.Errorf("%q: got %q, want %q", raw, got, want)
		}
	}

	invalid := []string{
		"",
		"12345",
		"991234",
		"1234567890",
		"791234567",  // unsupported prefix
		"2659912345", // truncated country form
	}
	for _, raw := range invalid {
		if _, err := normalizeMobile(raw); err == nil {
			t.Errorf("%q: expected error", raw)
		}
	}
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	pe, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type %T, want *Error", err)
	}
	if pe.Kind != want {
		t.Fatalf("error kind = %s, want %s", pe.Kind, want)
	}
}
