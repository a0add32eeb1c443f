package admin

import (
	"context"
	"net/http"

	"github.com/chisomo-dev/coachpay/internal/db"
	"github.com/labstack/echo/v4"
)

// GET /admin/stats
func Stats(c echo.Context) error {
	ctx := context.Background()

	var users, courses, enrollments, wallets, withdrawals int

	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&users)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM courses`).Scan(&courses)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM enrollments`).Scan(&enrollments)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM wallets`).Scan(&wallets)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM withdrawal_requests`).Scan(&withdrawals)

	return c.JSON(http.StatusOK, echo.Map{
		"users":       users,
		"courses":     courses,
		"enrollments": enrollments,
		"wallets":     wallets,
		"withdrawals": withdrawals,
	})
}
