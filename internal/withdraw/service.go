package withdraw

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chisomo-dev/coachpay/internal/config"
)

// Store is the persistence surface the pipeline needs. The advisory
// pre-checks read aggregates; Reserve/Complete/Refund are the atomic
// correctness boundary.
type Store interface {
	WalletBalance(ctx context.Context, coachID string) (int64, error)
	CountRecentRequests(ctx context.Context, coachID string, since time.Time) (int, error)
	SumRecentWithdrawals(ctx context.Context, coachID string, since time.Time) (int64, error)
	AgedCredits(ctx context.Context, coachID string, cutoff time.Time) (int64, error)
	AccountCreatedAt(ctx context.Context, coachID string) (time.Time, error)
	HasRecentPurchase(ctx context.Context, coachID string, since time.Time) (bool, error)
	HasCompletedWithdrawal(ctx context.Context, coachID string) (bool, error)

	Reserve(ctx context.Context, p ReserveParams) (string, error)
	Complete(ctx context.Context, withdrawalID, payoutRef, payoutTransID string) (int64, error)
	Refund(ctx context.Context, withdrawalID string) error
}

// ReserveParams describes the atomic debit + request-row insert.
type ReserveParams struct {
	CoachID      string
	Credits      int64
	AmountMWK    int64
	Method       string
	Mobile       string
	FraudScore   int
	FraudReasons []string
	// DailyLimit is re-checked inside the reserve transaction.
	DailyLimit int64
}

// Payouts executes the external mobile-money payout.
type Payouts interface {
	Execute(ctx context.Context, mobile string, amountMWK int64, chargeID string) (*PayoutResult, error)
}

// Notifier is the fire-and-forget alert sink. Implementations must never
// block or fail the withdrawal.
type Notifier interface {
	RateLimitHit(coachID string, count int)
	HighValueTransaction(coachID string, credits int64)
	FraudFlag(coachID string, score int, reasons []string)
}

// Service runs the withdrawal pipeline. One instance serves all requests;
// it keeps no per-request state.
type Service struct {
	cfg    config.WithdrawalConfig
	store  Store
	payout Payouts
	alerts Notifier
	now    func() time.Time
	log    *zap.Logger
}

func NewService(cfg config.WithdrawalConfig, store Store, payout Payouts, alerts Notifier, logger *zap.Logger) *Service {
	return &Service{
		cfg:    cfg,
		store:  store,
		payout: payout,
		alerts: alerts,
		now:    time.Now,
		log:    logger,
	}
}

// Result is the success payload of a completed withdrawal.
type Result struct {
	WithdrawalID  string
	Credits       int64
	AmountMWK     int64
	PayoutRef     string
	PayoutTransID string
	NewBalance    int64
}

// Withdraw runs the full pipeline for one request:
// validate -> rate-limit -> daily-cap -> aging -> fraud -> reserve ->
// payout -> complete, with a compensating refund if the payout fails.
func (s *Service) Withdraw(ctx context.Context, coachID string, req Request) (*Result, error) {
	credits, mobile, err := ValidateRequest(s.cfg, req)
	if err != nil {
		return nil, err
	}

	if err := s.checkRateLimit(ctx, coachID); err != nil {
		return nil, err
	}
	if err := s.checkDailyCap(ctx, coachID, credits); err != nil {
		return nil, err
	}

	balance, err := s.store.WalletBalance(ctx, coachID)
	if err != nil {
		return nil, errf(KindPersistence, "could not read wallet balance")
	}

	if err := s.checkCreditAging(ctx, coachID, credits, balance); err != nil {
		return nil, err
	}

	fraud := s.scoreFraud(ctx, coachID, credits)
	if fraud.Score >= s.cfg.HighRiskThreshold {
		s.alerts.FraudFlag(coachID, fraud.Score, fraud.Reasons)
	}
	if fraud.Score >= s.cfg.BlockThreshold {
		s.log.Warn("withdrawal blocked by fraud score",
			zap.String("coach_id", coachID),
			zap.Int("score", fraud.Score),
			zap.Strings("reasons", fraud.Reasons))
		return nil, errf(KindFraudBlock, "withdrawal blocked, please contact support")
	}

	// Advisory only; the reserve transaction enforces this again at commit.
	if credits > balance {
		return nil, errf(KindInsufficient, "insufficient balance: %d credits available", balance)
	}

	amountMWK := creditsToMWK(credits, s.cfg.ExchangeRate)

	withdrawalID, err := s.store.Reserve(ctx, ReserveParams{
		CoachID:      coachID,
		Credits:      credits,
		AmountMWK:    amountMWK,
		Method:       req.PaymentMethod,
		Mobile:       mobile,
		FraudScore:   fraud.Score,
		FraudReasons: fraud.Reasons,
		DailyLimit:   s.cfg.DailyLimit,
	})
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			return nil, pe
		}
		s.log.Error("withdrawal reserve failed", zap.String("coach_id", coachID), zap.Error(err))
		return nil, errf(KindPersistence, "could not create withdrawal request")
	}

	payoutRes, err := s.payout.Execute(ctx, mobile, amountMWK, withdrawalID)
	if err != nil {
		// Compensate before surfacing the original error; a refund failure
		// is logged but must not mask the payout failure.
		if rErr := s.store.Refund(ctx, withdrawalID); rErr != nil {
			s.log.Error("compensating refund failed",
				zap.String("withdrawal_id", withdrawalID), zap.Error(rErr))
		}
		return nil, errf(KindPayout, "payout failed: %v", err)
	}

	newBalance, err := s.store.Complete(ctx, withdrawalID, payoutRes.Ref, payoutRes.TransID)
	if err != nil {
		// The payout went out; never refund here. The request stays
		// processing until reconciliation resolves it.
		s.log.Error("withdrawal finalize failed after payout",
			zap.String("withdrawal_id", withdrawalID), zap.Error(err))
		return nil, errf(KindPersistence, "could not finalize withdrawal")
	}

	s.alerts.HighValueTransaction(coachID, credits)

	return &Result{
		WithdrawalID:  withdrawalID,
		Credits:       credits,
		AmountMWK:     amountMWK,
		PayoutRef:     payoutRes.Ref,
		PayoutTransID: payoutRes.TransID,
		NewBalance:    newBalance,
	}, nil
}

// creditsToMWK converts a whole-credit amount to MWK at the configured rate.
func creditsToMWK(credits int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(credits).Mul(rate).Round(0).IntPart()
}
