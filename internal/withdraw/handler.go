package withdraw

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/chisomo-dev/coachpay/internal/db"
)

// Handler exposes the withdrawal pipeline over HTTP.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /withdrawals
func (h *Handler) Create(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized or invalid user"})
	}

	var req Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	res, err := h.svc.Withdraw(c.Request().Context(), uid, req)
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			return c.JSON(pe.HTTPStatus(), echo.Map{"error": pe.Message})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "withdrawal failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":               true,
		"withdrawal_request_id": res.WithdrawalID,
		"credits_amount":        res.Credits,
		"amount_mwk":            res.AmountMWK,
		"payout_ref":            res.PayoutRef,
		"payout_trans_id":       res.PayoutTransID,
		"new_balance":           res.NewBalance,
		"message":               "Withdrawal completed successfully",
	})
}

// historyRow is one withdrawal in the listing response.
type historyRow struct {
	ID            string     `json:"id"`
	CreditsAmount int64      `json:"credits_amount"`
	AmountMWK     int64      `json:"amount_mwk"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method"`
	FraudScore    int        `json:"fraud_score"`
	CreatedAt     time.Time  `json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

// List handles GET /withdrawals — the caller's own history
func (h *Handler) List(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized or invalid user"})
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT id, credits_amount, amount_mwk, status, payment_method, fraud_score, created_at, processed_at
		 FROM withdrawal_requests
		 WHERE coach_id = $1
		 ORDER BY created_at DESC`,
		uid,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch withdrawals"})
	}
	defer rows.Close()

	var out []historyRow
	for rows.Next() {
		var r historyRow
		if err := rows.Scan(&r.ID, &r.CreditsAmount, &r.AmountMWK, &r.Status, &r.PaymentMethod,
			&r.FraudScore, &r.CreatedAt, &r.ProcessedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "scan error"})
		}
		out = append(out, r)
	}
	return c.JSON(http.StatusOK, echo.Map{"withdrawals": out})
}
