package credits

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/chisomo-dev/coachpay/internal/db"
)

type PurchaseRequest struct {
	Credits int64 `json:"credits" validate:"required,min=1"`
}

type PurchaseResponse struct {
	PurchaseID string `json:"purchase_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// PurchaseInit creates a pending credit purchase
func PurchaseInit(c echo.Context) error {
	req := new(PurchaseRequest)
	if err := c.Bind(req); err != nil || req.Credits <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	purchaseID := uuid.New().String()
	_, err := db.Conn.Exec(context.Background(),
		`INSERT INTO credit_transactions (id, user_id, type, amount, status, created_at)
		 VALUES ($1, $2, 'purchase', $3, 'pending', $4)`,
		purchaseID, uid, req.Credits, time.Now(),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create purchase"})
	}

	paymentURL := os.Getenv("CHECKOUT_URL")
	if paymentURL == "" {
		paymentURL = "https://pay.coachpay.dev/checkout/" + purchaseID
	}

	return c.JSON(http.StatusOK, PurchaseResponse{
		PurchaseID: purchaseID,
		Status:     "pending",
		Message:    "Purchase initialized. Complete payment at " + paymentURL,
	})
}

// ConfirmPurchase marks a pending purchase paid and credits the wallet
func ConfirmPurchase(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	purchaseID := c.Param("id")
	if purchaseID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "purchase id required"})
	}

	ctx := context.Background()

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not start transaction"})
	}
	defer tx.Rollback(ctx)

	var credits int64
	err = tx.QueryRow(ctx,
		`UPDATE credit_transactions SET status = 'completed'
		 WHERE id = $1 AND user_id = $2 AND type = 'purchase' AND status = 'pending'
		 RETURNING amount`,
		purchaseID, uid,
	).Scan(&credits)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "pending purchase not found"})
	}

	// Lazy wallet creation: first credit event creates the row
	_, err = tx.Exec(ctx,
		`INSERT INTO wallets (coach_id, balance, total_earned, created_at)
		 VALUES ($1, $2, $2, $3)
		 ON CONFLICT (coach_id) DO UPDATE
		 SET balance = wallets.balance + $2, total_earned = wallets.total_earned + $2`,
		uid, credits, time.Now(),
	)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not credit wallet"})
	}

	if err := tx.Commit(ctx); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not finalize purchase"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"purchase_id": purchaseID,
		"credits":     credits,
		"message":     "Credits added to wallet",
	})
}
