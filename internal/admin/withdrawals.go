package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/chisomo-dev/coachpay/internal/db"
	"github.com/labstack/echo/v4"
)

type AdminWithdrawal struct {
	ID            string     `json:"id"`
	CoachID       string     `json:"coach_id"`
	CreditsAmount int64      `json:"credits_amount"`
	AmountMWK     int64      `json:"amount_mwk"`
	Status        string     `json:"status"`
	FraudScore    int        `json:"fraud_score"`
	FraudReasons  []string   `json:"fraud_reasons,omitempty"`
	PayoutRef     *string    `json:"payout_ref,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

// GET /admin/withdrawals?status=processing
func ListWithdrawals(c echo.Context) error {
	query := `SELECT id, coach_id, credits_amount, amount_mwk, status, fraud_score, fraud_reasons, payout_ref, created_at, processed_at
	          FROM withdrawal_requests`
	var args []any
	if status := c.QueryParam("status"); status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT 200`

	rows, err := db.Conn.Query(context.Background(), query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch withdrawals"})
	}
	defer rows.Close()

	var out []AdminWithdrawal
	for rows.Next() {
		var w AdminWithdrawal
		if err := rows.Scan(&w.ID, &w.CoachID, &w.CreditsAmount, &w.AmountMWK, &w.Status,
			&w.FraudScore, &w.FraudReasons, &w.PayoutRef, &w.CreatedAt, &w.ProcessedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read withdrawal record"})
		}
		out = append(out, w)
	}
	return c.JSON(http.StatusOK, echo.Map{"withdrawals": out})
}
