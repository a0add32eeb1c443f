package credits

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/chisomo-dev/coachpay/internal/db"
)

// Enroll moves credits from learner to coach for one course, atomically:
// learner debit, coach credit, enrollment row and both ledger entries commit
// together. The same balance-guarded update the withdrawal reserve uses
// protects against concurrent overspend.
func Enroll(c echo.Context) error {
	learnerID, ok := c.Get("user_id").(string)
	if !ok || learnerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	courseID := c.Param("id")
	if courseID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid course id"})
	}

	ctx := context.Background()

	var coachID string
	var price int64
	var status string
	err := db.Conn.QueryRow(ctx,
		`SELECT coach_id, price_credits, status FROM courses WHERE id = $1`,
		courseID,
	).Scan(&coachID, &price, &status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "course not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch course"})
	}
	if status != "active" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "course is not open for enrollment"})
	}
	if coachID == learnerID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "you cannot enroll in your own course"})
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "transaction start failed"})
	}
	defer tx.Rollback(ctx)

	// Debit learner, guarded by balance in SQL
	ct, err := tx.Exec(ctx,
		`UPDATE wallets SET balance = balance - $1 WHERE coach_id = $2 AND balance >= $1`,
		price, learnerID,
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to debit wallet"})
	}
	if ct.RowsAffected() == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "insufficient balance"})
	}

	// Credit coach; first earning event creates the wallet
	_, err = tx.Exec(ctx,
		`INSERT INTO wallets (coach_id, balance, total_earned, created_at)
		 VALUES ($1, $2, $2, $3)
		 ON CONFLICT (coach_id) DO UPDATE
		 SET balance = wallets.balance + $2, total_earned = wallets.total_earned + $2`,
		coachID, price, time.Now(),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to credit coach wallet"})
	}

	enrollmentID := uuid.New().String()
	_, err = tx.Exec(ctx,
		`INSERT INTO enrollments (id, course_id, learner_id, credits_paid, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		enrollmentID, courseID, learnerID, price, time.Now(),
	)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "already enrolled in this course"})
	}

	// Ledger entries for both sides
	_, err = tx.Exec(ctx,
		`INSERT INTO credit_transactions (id, user_id, type, amount, status, reference, created_at)
		 VALUES ($1, $2, 'spend', $3, 'completed', $4, $5)`,
		uuid.New().String(), learnerID, price, enrollmentID, time.Now(),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record spend"})
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO credit_transactions (id, user_id, type, amount, status, reference, created_at)
		 VALUES ($1, $2, 'earn', $3, 'completed', $4, $5)`,
		uuid.New().String(), coachID, price, enrollmentID, time.Now(),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record earning"})
	}

	if err = tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"enrollment_id": enrollmentID,
		"credits_paid":  price,
		"message":       "Enrolled successfully. Credits transferred to the coach.",
	})
}
