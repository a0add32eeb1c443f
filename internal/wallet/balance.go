package wallet

import (
	"context"
	"net/http"

	"github.com/chisomo-dev/coachpay/internal/db"
	"github.com/labstack/echo/v4"
)

// Balance returns the authenticated user's wallet balance
func Balance(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var balance, totalEarned int64
	err := db.Conn.QueryRow(context.Background(),
		`SELECT balance, total_earned FROM wallets WHERE coach_id=$1`, userID).
		Scan(&balance, &totalEarned)

	if err != nil {
		// No wallet yet: nothing earned, nothing to show but zeros
		return c.JSON(http.StatusOK, echo.Map{
			"coach_id":     userID,
			"balance":      0,
			"total_earned": 0,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"coach_id":     userID,
		"balance":      balance,
		"total_earned": totalEarned,
	})
}
