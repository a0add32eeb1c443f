package wallet

import "time"

type Wallet struct {
	CoachID     string    `json:"coach_id"`
	Balance     int64     `json:"balance"`
	TotalEarned int64     `json:"total_earned"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreditTransaction is one immutable ledger entry
type CreditTransaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Reference *string   `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
