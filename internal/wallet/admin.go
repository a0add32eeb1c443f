package wallet

import (
	"context"
	"net/http"

	"github.com/chisomo-dev/coachpay/internal/db"
	"github.com/labstack/echo/v4"
)

// AdminGetAllTransactions returns the full credit ledger for admin monitoring
func AdminGetAllTransactions(c echo.Context) error {
	rows, err := db.Conn.Query(
		context.Background(),
		`SELECT id, user_id, type, amount, status, reference, created_at
		 FROM credit_transactions
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch transactions"})
	}
	defer rows.Close()

	var txs []CreditTransaction
	for rows.Next() {
		var t CreditTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.Reference, &t.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read transaction record"})
		}
		txs = append(txs, t)
	}

	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}

// AdminGetUserTransactions returns one user's ledger (admin view)
func AdminGetUserTransactions(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user ID is required"})
	}

	rows, err := db.Conn.Query(
		context.Background(),
		`SELECT id, user_id, type, amount, status, reference, created_at
		 FROM credit_transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch user transactions"})
	}
	defer rows.Close()

	var txs []CreditTransaction
	for rows.Next() {
		var t CreditTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Status, &t.Reference, &t.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read transaction record"})
		}
		txs = append(txs, t)
	}

	return c.JSON(http.StatusOK, echo.Map{"transactions": txs})
}
