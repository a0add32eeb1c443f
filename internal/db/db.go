package db

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres
func Init() {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_NAME"),
	)

	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	// Ensure users table carries role and is_active for moderation
	ensureUsersColumns()

	// Ensure wallets table exists (one per earning account, lazy-created rows)
	ensureWalletsTable()

	// Ensure the credit ledger exists before anything moves money
	ensureCreditTransactionsTable()

	// Ensure withdrawal_requests matches the pipeline
	ensureWithdrawalRequestsTable()

	// Ensure courses and enrollments for the earn/spend flows
	ensureCoursesTables()
}

// ensureUsersColumns creates users if missing and adds is_active for moderation
func ensureUsersColumns() {
	ctx := context.Background()

	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT UNIQUE NOT NULL,
            password TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'learner',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		log.Printf("failed to ensure users table: %v", err)
		return
	}

	// Profile columns used by the coach profile endpoints
	if _, err := Conn.Exec(ctx, `ALTER TABLE users ADD COLUMN IF NOT EXISTS bio TEXT`); err != nil {
		log.Printf("failed to add bio column: %v", err)
	}
	if _, err := Conn.Exec(ctx, `ALTER TABLE users ADD COLUMN IF NOT EXISTS avatar_url TEXT`); err != nil {
		log.Printf("failed to add avatar_url column: %v", err)
	}

	var exists bool
	err = Conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM information_schema.columns
            WHERE table_schema = 'public' AND table_name = 'users' AND column_name = 'is_active'
        )`).Scan(&exists)
	if err != nil {
		log.Printf("schema check failed: %v", err)
		return
	}
	if exists {
		return
	}
	_, err = Conn.Exec(ctx, `ALTER TABLE users ADD COLUMN IF NOT EXISTS is_active BOOLEAN DEFAULT TRUE`)
	if err != nil {
		log.Printf("failed to add is_active column: %v", err)
		return
	}
	_, err = Conn.Exec(ctx, `UPDATE users SET is_active = TRUE WHERE is_active IS NULL`)
	if err != nil {
		log.Printf("failed to backfill is_active: %v", err)
		return
	}
	log.Printf("users.is_active column ensured")
}

// ensureWalletsTable creates wallets keyed by the owning account
func ensureWalletsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS wallets (
            coach_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
            balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
            total_earned BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		log.Printf("failed to ensure wallets table: %v", err)
	}
}

// ensureCreditTransactionsTable creates the immutable credit ledger
func ensureCreditTransactionsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS credit_transactions (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            type TEXT NOT NULL CHECK (type IN ('purchase', 'earn', 'spend', 'withdrawal', 'refund')),
            amount BIGINT NOT NULL,
            status TEXT NOT NULL DEFAULT 'completed',
            reference UUID NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_credit_tx_user_created ON credit_transactions(user_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_credit_tx_reference ON credit_transactions(reference) WHERE reference IS NOT NULL;
    `)
	if err != nil {
		log.Printf("failed to ensure credit_transactions table: %v", err)
	}
}

// ensureWithdrawalRequestsTable creates withdrawal_requests if not present
func ensureWithdrawalRequestsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS withdrawal_requests (
            id UUID PRIMARY KEY,
            coach_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            credits_amount BIGINT NOT NULL CHECK (credits_amount > 0),
            amount_mwk BIGINT NOT NULL,
            status TEXT NOT NULL DEFAULT 'processing' CHECK (status IN ('processing', 'completed', 'failed')),
            payment_method TEXT NOT NULL,
            payment_mobile TEXT NOT NULL,
            fraud_score INTEGER NOT NULL DEFAULT 0,
            fraud_reasons TEXT[] NULL,
            payout_ref TEXT NULL,
            payout_trans_id TEXT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            processed_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE INDEX IF NOT EXISTS idx_withdrawals_coach_created ON withdrawal_requests(coach_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawal_requests(status);
    `)
	if err != nil {
		log.Printf("failed to ensure withdrawal_requests table: %v", err)
	}
}

// ensureCoursesTables creates courses and enrollments if not present
func ensureCoursesTables() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS courses (
            id UUID PRIMARY KEY,
            coach_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            title TEXT NOT NULL,
            description TEXT,
            price_credits BIGINT NOT NULL CHECK (price_credits >= 0),
            status TEXT NOT NULL DEFAULT 'active',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_courses_coach ON courses(coach_id);
    `)
	if err != nil {
		log.Printf("failed to ensure courses table: %v", err)
	}

	_, err = Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS enrollments (
            id UUID PRIMARY KEY,
            course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
            learner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            credits_paid BIGINT NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (course_id, learner_id)
        );
        CREATE INDEX IF NOT EXISTS idx_enrollments_learner ON enrollments(learner_id);
    `)
	if err != nil {
		log.Printf("failed to ensure enrollments table: %v", err)
	}
}
