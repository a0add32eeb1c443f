package user

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/chisomo-dev/coachpay/internal/db"
)

// GET /coach/:id/profile
func GetPublicProfile(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing user id"})
	}

	var (
		id        string
		name      string
		bio       string
		avatarURL string
		role      string
		createdAt time.Time
	)

	query := `
		SELECT id, name, COALESCE(bio, ''), COALESCE(avatar_url, ''), role, created_at
		FROM users
		WHERE id = $1
	`

	err := db.Conn.QueryRow(context.Background(), query, userID).Scan(
		&id, &name, &bio, &avatarURL, &role, &createdAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch user"})
	}

	// Coaches also expose how many active courses they run
	var courseCount int
	_ = db.Conn.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM courses WHERE coach_id = $1 AND status = 'active'`, userID).
		Scan(&courseCount)

	return c.JSON(http.StatusOK, echo.Map{
		"id":             id,
		"name":           name,
		"bio":            bio,
		"avatar_url":     avatarURL,
		"role":           role,
		"active_courses": courseCount,
		"created_at":     createdAt.Format(time.RFC3339),
	})
}
