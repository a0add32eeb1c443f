package withdraw

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store against Postgres. The reserve, complete and
// refund operations each run as a single transaction.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) WalletBalance(ctx context.Context, coachID string) (int64, error) {
	var balance int64
	err := s.pool.QueryRow(ctx,
		`SELECT balance FROM wallets WHERE coach_id = $1`, coachID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		// No wallet yet means nothing has been earned.
		return 0, nil
	}
	return balance, err
}

func (s *PGStore) CountRecentRequests(ctx context.Context, coachID string, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM withdrawal_requests WHERE coach_id = $1 AND created_at > $2`,
		coachID, since).Scan(&count)
	return count, err
}

func (s *PGStore) SumRecentWithdrawals(ctx context.Context, coachID string, since time.Time) (int64, error) {
	var sum int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(credits_amount), 0)
		 FROM withdrawal_requests
		 WHERE coach_id = $1 AND created_at > $2 AND status IN ('completed', 'processing')`,
		coachID, since).Scan(&sum)
	return sum, err
}

// AgedCredits returns credits credited before the cutoff minus every debit
// ever made. Refunds re-enter as fresh inflows and age from their own
// created_at. The caller clamps the result.
func (s *PGStore) AgedCredits(ctx context.Context, coachID string, cutoff time.Time) (int64, error) {
	var aged int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE
			WHEN type IN ('purchase', 'earn', 'refund') AND status = 'completed' AND created_at <= $2 THEN amount
			WHEN type IN ('spend', 'withdrawal') THEN -amount
			ELSE 0
		END), 0)
		FROM credit_transactions
		WHERE user_id = $1`,
		coachID, cutoff).Scan(&aged)
	return aged, err
}

func (s *PGStore) AccountCreatedAt(ctx context.Context, coachID string) (time.Time, error) {
	var createdAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT created_at FROM users WHERE id = $1`, coachID).Scan(&createdAt)
	return createdAt, err
}

func (s *PGStore) HasRecentPurchase(ctx context.Context, coachID string, since time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM credit_transactions
			WHERE user_id = $1 AND type = 'purchase' AND status = 'completed' AND created_at > $2
		)`, coachID, since).Scan(&exists)
	return exists, err
}

func (s *PGStore) HasCompletedWithdrawal(ctx context.Context, coachID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM withdrawal_requests
			WHERE coach_id = $1 AND status = 'completed'
		)`, coachID).Scan(&exists)
	return exists, err
}

// Reserve debits the wallet and creates the processing request row in one
// transaction, re-checking balance sufficiency and the daily cap at commit
// time. The upfront checks are advisory; this is the correctness boundary.
func (s *PGStore) Reserve(ctx context.Context, p ReserveParams) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	// The debit locks the wallet row, serializing concurrent reservations
	// for the same coach so the cap re-check below sees committed rows.
	ct, err := tx.Exec(ctx,
		`UPDATE wallets SET balance = balance - $1 WHERE coach_id = $2 AND balance >= $1`,
		p.Credits, p.CoachID)
	if err != nil {
		return "", err
	}
	if ct.RowsAffected() == 0 {
		return "", errf(KindInsufficient, "insufficient balance")
	}

	var sum int64
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(credits_amount), 0)
		 FROM withdrawal_requests
		 WHERE coach_id = $1 AND created_at > now() - interval '24 hours'
		   AND status IN ('completed', 'processing')`,
		p.CoachID).Scan(&sum)
	if err != nil {
		return "", err
	}
	if sum+p.Credits > p.DailyLimit {
		return "", errf(KindDailyCap, "daily withdrawal limit of %d credits exceeded (%d already requested today)",
			p.DailyLimit, sum)
	}

	withdrawalID := uuid.New().String()
	_, err = tx.Exec(ctx,
		`INSERT INTO withdrawal_requests
			(id, coach_id, credits_amount, amount_mwk, status, payment_method, payment_mobile, fraud_score, fraud_reasons, created_at)
		 VALUES ($1, $2, $3, $4, 'processing', $5, $6, $7, $8, $9)`,
		withdrawalID, p.CoachID, p.Credits, p.AmountMWK, p.Method, p.Mobile, p.FraudScore, p.FraudReasons, time.Now())
	if err != nil {
		return "", err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO credit_transactions (id, user_id, type, amount, status, reference, created_at)
		 VALUES ($1, $2, 'withdrawal', $3, 'pending', $4, $5)`,
		uuid.New().String(), p.CoachID, p.Credits, withdrawalID, time.Now())
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return withdrawalID, nil
}

// Complete moves a processing request to completed with the payout
// references and returns the new balance, all in one transaction. Terminal
// rows are never touched.
func (s *PGStore) Complete(ctx context.Context, withdrawalID, payoutRef, payoutTransID string) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var coachID string
	err = tx.QueryRow(ctx,
		`UPDATE withdrawal_requests
		 SET status = 'completed', payout_ref = $2, payout_trans_id = $3, processed_at = now()
		 WHERE id = $1 AND status = 'processing'
		 RETURNING coach_id`,
		withdrawalID, payoutRef, payoutTransID).Scan(&coachID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errf(KindPersistence, "withdrawal is not in processing state")
	}
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE credit_transactions SET status = 'completed'
		 WHERE reference = $1 AND type = 'withdrawal'`, withdrawalID)
	if err != nil {
		return 0, err
	}

	var newBalance int64
	err = tx.QueryRow(ctx,
		`SELECT balance FROM wallets WHERE coach_id = $1`, coachID).Scan(&newBalance)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Refund compensates a failed payout: the request flips to failed and the
// reserved credits return to the wallet. Idempotent by withdrawal id — a
// request already in a terminal state is left untouched.
func (s *PGStore) Refund(ctx context.Context, withdrawalID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var coachID string
	var credits int64
	err = tx.QueryRow(ctx,
		`UPDATE withdrawal_requests
		 SET status = 'failed', processed_at = now()
		 WHERE id = $1 AND status = 'processing'
		 RETURNING coach_id, credits_amount`,
		withdrawalID).Scan(&coachID, &credits)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE wallets SET balance = balance + $1 WHERE coach_id = $2`,
		credits, coachID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE credit_transactions SET status = 'failed'
		 WHERE reference = $1 AND type = 'withdrawal'`, withdrawalID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO credit_transactions (id, user_id, type, amount, status, reference, created_at)
		 VALUES ($1, $2, 'refund', $3, 'completed', $4, $5)`,
		uuid.New().String(), coachID, credits, withdrawalID, time.Now())
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}
