package withdraw

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chisomo-dev/coachpay/internal/config"
)

type fakeStore struct {
	balance    int64
	balanceErr error

	recentCount    int
	recentCountErr error

	recentSum    int64
	recentSumErr error

	aged    int64
	agedErr error

	createdAt    time.Time
	createdAtErr error

	recentPurchase    bool
	recentPurchaseErr error

	priorWithdrawal    bool
	priorWithdrawalErr error

	reserveID    string
	reserveErr   error
	reserveCalls []ReserveParams

	completeBalance int64
	completeErr     error
	completeCalls   int

	refundErr   error
	refundCalls []string
}

func (f *fakeStore) WalletBalance(ctx context.Context, coachID string) (int64, error) {
	return f.balance, f.balanceErr
}

func (f *fakeStore) CountRecentRequests(ctx context.Context, coachID string, since time.Time) (int, error) {
	return f.recentCount, f.recentCountErr
}

func (f *fakeStore) SumRecentWithdrawals(ctx context.Context, coachID string, since time.Time) (int64, error) {
	return f.recentSum, f.recentSumErr
}

func (f *fakeStore) AgedCredits(ctx context.Context, coachID string, cutoff time.Time) (int64, error) {
	return f.aged, f.agedErr
}

func (f *fakeStore) AccountCreatedAt(ctx context.Context, coachID string) (time.Time, error) {
	return f.createdAt, f.createdAtErr
}

func (f *fakeStore) HasRecentPurchase(ctx context.Context, coachID string, since time.Time) (bool, error) {
	return f.recentPurchase, f.recentPurchaseErr
}

func (f *fakeStore) HasCompletedWithdrawal(ctx context.Context, coachID string) (bool, error) {
	return f.priorWithdrawal, f.priorWithdrawalErr
}

func (f *fakeStore) Reserve(ctx context.Context, p ReserveParams) (string, error) {
	f.reserveCalls = append(f.reserveCalls, p)
	if f.reserveErr != nil {
		return "", f.reserveErr
	}
	return f.reserveID, nil
}

func (f *fakeStore) Complete(ctx context.Context, withdrawalID, payoutRef, payoutTransID string) (int64, error) {
	f.completeCalls++
	return f.completeBalance, f.completeErr
}

func (f *fakeStore) Refund(ctx context.Context, withdrawalID string) error {
	f.refundCalls = append(f.refundCalls, withdrawalID)
	return f.refundErr
}

type fakePayouts struct {
	result *PayoutResult
	err    error
	calls  int
}

func (f *fakePayouts) Execute(ctx context.Context, mobile string, amountMWK int64, chargeID string) (*PayoutResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeNotifier struct {
	rateLimitHits int
	highValue     []int64
	fraudScores   []int
}

func (f *fakeNotifier) RateLimitHit(coachID string, count int) { f.rateLimitHits++ }

func (f *fakeNotifier) HighValueTransaction(coachID string, credits int64) {
	f.highValue = append(f.highValue, credits)
}

func (f *fakeNotifier) FraudFlag(coachID string, score int, reasons []string) {
	f.fraudScores = append(f.fraudScores, score)
}

// healthyStore returns a store on which the standard request passes every
// check: settled balance, no recent activity, a year-old account.
func healthyStore(now time.Time) *fakeStore {
	return &fakeStore{
		balance:         5000,
		aged:            5000,
		createdAt:       now.AddDate(-1, 0, 0),
		priorWithdrawal: true,
		reserveID:       "wr-1",
		completeBalance: 4900,
	}
}

func newTestService(cfg config.WithdrawalConfig, store Store, payouts Payouts, alerts Notifier, now time.Time) *Service {
	s := NewService(cfg, store, payouts, alerts, zap.NewNop())
	s.now = func() time.Time { return now }
	return s
}

const testCoachID = "6b1e9c5a-0000-0000-0000-000000000001"

func TestWithdrawSuccess(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := healthyStore(now)
	payouts := &fakePayouts{result: &PayoutResult{Ref: "ref-9", TransID: "trans-9"}}
	alerts := &fakeNotifier{}
	svc := newTestService(testWithdrawalConfig(), store, payouts, alerts, now)

	res, err := svc.Withdraw(context.Background(), testCoachID, validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.WithdrawalID != "wr-1" {
		t.Errorf("withdrawal id = %q, want wr-1", res.WithdrawalID)
	}
	if res.Credits != 100 {
		t.Errorf("credits = %d, want 100", res.Credits)
	}
	if res.AmountMWK != 10000 {
		t.Errorf("amount mwk = %d, want 10000", res.AmountMWK)
	}
	if res.PayoutRef != "ref-9" || res.PayoutTransID != "trans-9" {
		t.Errorf("payout refs = %q/%q", res.PayoutRef, res.PayoutTransID)
	}
	if res.NewBalance != 4900 {
		t.Errorf("new balance = %d, want 4900", res.NewBalance)
	}

	if len(store.reserveCalls) != 1 {
		t.Fatalf("reserve calls = %d, want 1", len(store.reserveCalls))
	}
	p := store.reserveCalls[0]
	if p.Credits != 100 || p.AmountMWK != 10000 || p.Mobile != "991234567" {
		t.Errorf("reserve params = %+v", p)
	}
	if store.completeCalls != 1 {
		t.Errorf("complete calls = %d, want 1", store.completeCalls)
	}
	if len(store.refundCalls) != 0 {
		t.Errorf("refund calls = %v, want none", store.refundCalls)
	}
	if len(alerts.highValue) != 1 || alerts.highValue[0] != 100 {
		t.Errorf("high value alerts = %v", alerts.highValue)
	}
}

func TestWithdrawRateLimit(t *testing.T) {
	now := time.Now()

	t.Run("rejects at the hourly cap", func(t *testing.T) {
		store := healthyStore(now)
		store.recentCount = 5
		payouts := &fakePayouts{}
		alerts := &fakeNotifier{}
		svc := newTestService(testWithdrawalConfig(), store, payouts, alerts, now)

		_, err := svc.Withdraw(context.Background(), testCoachID, validRequest())
		assertKind(t, err, KindRateLimit)
		if alerts.rateLimitHits != 1 {
			t.Errorf("rate limit alerts = %d, want 1", alerts.rateLimitHits)
		}
		if len(store.reserveCalls) != 0 {
			t.Error("reserve must not run after a rate limit rejection")
		}
	})

	t.Run("allows below the cap", func(t *testing.T) {
		store := healthyStore(now)
		store.recentCount = 4
		payouts := &fakePayouts{result: &PayoutResult{Ref: "r", TransID: "t"}}
		svc := newTestService(testWithdrawalConfig(), store, payouts, &fakeNotifier{}, now)

		if _, err := svc.Withdraw(context.Background(), testCoachID, validRequest()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("fails open when the count cannot be read", func(t *testing.T) {
		store := healthyStore(now)
		store.recentCountErr = errors.New("connection reset")
		payouts := &fakePayouts{result: &PayoutResult{Ref: "r", TransID: "t"}}
		svc := newTestService(testWithdrawalConfig(), store, payouts, &fakeNotifier{}, now)

		if _, err := svc.Withdraw(context.Background(), testCoachID, validRequest()); err != nil {
			t.Fatalf("rate limiter should fail open, got: %v", err)
		}
	})
}

func TestWithdrawDailyCap(t *testing.T) {
	now := time.Now()

	t.Run("rejects when the 24h sum would exceed the limit", func(t *testing.T) {
		store := healthyStore(now)
		store.recentSum = 49950 // 49950 + 100 > 50000
		svc := newTestService(testWithdrawalConfig(), store, &fakePayouts{}, &fakeNotifier{}, now)

		_, err := svc.Withdraw(context.Background(), testCoachID, validRequest())
		assertKind(t, err, KindDailyCap)
	})

	t.Run("allows hitting the limit exactly", func(t *testing.T) {
		store := healthyStore(now)
		store.recentSum = 49900 // 49900 + 100 == 50000
		payouts := &fakePayouts{result: &PayoutResult{Ref: "r", TransID: "t"}}
		svc := newTestService(testWithdrawalConfig(), store, payouts, &fakeNotifier{}, now)

		if _, err := svc.Withdraw(context.Background(), testCoachID, validRequest()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("fails closed when the sum cannot be read", func(t *testing.T) {
		store := healthyStore(now)
		store.recentSumErr = errors.New("connection reset")
		svc := newTestService(testWithdrawalConfig(), store, &fakePayouts{}, &fakeNotifier{}, now)

		_, err := svc.Withdraw(context.Background(), testCoachID, validRequest())
		assertKind(t, err, KindUnavailable)
	})
}

func TestWithdrawCreditAging(t *testing.T) {
	now := time.Now()

	t.Run("rejects when too few credits have aged", func(t *testing.T) {
		store := healthyStore(now)
		store.aged = 50
		svc := newTestService(testWithdrawalConfig(), store, &fakePayouts{}, &fakeNotifier{}, now)

		_, err := svc.Withdraw(context.Background(), testCoachID, validRequest())
		assertKind(t, err, KindCreditAging)
	})

	t.Run("clamps the aged aggregate to the balance", func(t *testing.T) {
		store := healthyStore(now)
		store.balance = 50
		store.aged = 5000 // stale aggregate above the live balance
		svc := newTestService(testWithdrawalConfig(), store, &fakePayouts{}, &fakeNotifier{}, now)

		_, err := svc.Withdraw(context.Background(), testCoachID, validRequest())
		assertKind(t, err, KindCreditAging)
	})

	t.Run("fails closed when the aggregate cannot be read", func(t *testing.T) {
		store := healthyStore(now)
		store.agedErr = errors.New("connection reset")
		svc := newTestService(testWithdrawalConfig(), store, &fakePayouts{}, &fakeNotifier{}, now)

		_, err := svc.Withdraw(context.Background(), testCoachID, validRequest())
		assertKind(t, err, KindUnavailable)
	})
}

func TestWithdrawFraudHandling(t *testing.T) {
	now := time.Now()

	t.Run("high risk score alerts but proceeds", func(t *testing.T) {
		store := healthyStore(now)
		// account two days old (+20) plus a purchase in the last hour (+30)
		store.createdAt = now.AddDate(0, 0, -2)
		store.recentPurchase = true
		payouts := &fakePayouts{result: &PayoutResult{Ref: "r", TransID: "t"}}
		alerts := &fakeNotifier{}
		svc := newTestService(testWithdrawalConfig(), store, payouts, alerts, now)

		if _, err := svc.Withdraw(context.Background(), testCoachID, validRequest()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(alerts.fraudScores) != 1 || alerts.fraudScores[0] != 50 {
			t.Errorf("fraud alerts = %v, want [50]", alerts.fraudScores)
		}
		if len(store.reserveCalls) != 1 || store.reserveCalls[0].FraudScore != 50 {
			t.Errorf("reserve fraud score not recorded: %+v", store.reserveCalls)
		}
	})

	t.Run("blocking score rejects before any money moves", func(t *testing.T) {
		cfg := testWithdrawalConfig()
		cfg.BlockThreshold = 60
		store := healthyStore(now)
		store.balance = 8000
		store.aged = 8000
		// new account (+20), rapid purchase (+30), first withdrawal over 5000 (+20)
		store.createdAt = now.AddDate(0, 0, -2)
		store.recentPurchase = true
		store.priorWithdrawal = false
		payouts := &fakePayouts{}
		alerts := &fakeNotifier{}
		svc := newTestService(cfg, store, payouts, alerts, now)

		req := validRequest()
		req.CreditsAmount = 6000
		_, err := svc.Withdraw(context.Background(), testCoachID, req)
		assertKind(t, err, KindFraudBlock)
		if err.Error() != "withdrawal blocked, please contact support" {
			t.Errorf("message = %q", err.Error())
		}
		if len(alerts.fraudScores) != 1 || alerts.fraudScores[0] != 70 {
			t.Errorf("fraud alerts = %v, want [70]", alerts.fraudScores)
		}
		if len(store.reserveCalls) != 0 || payouts.calls != 0 {
			t.Error("blocked withdrawal must not reserve or pay out")
		}
	})
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	now := time.Now()
	store := healthyStore(now)
	store.balance = 50
	store.aged = 50
	svc := newTestService(testWithdrawalConfig(), store, &fakePayouts{}, &fakeNotifier{}, now)

	_, err := svc.Withdraw(context.Background(), testCoachID, validRequest())
	// aging clamps to the balance, so the shortfall surfaces as an aging rejection
	assertKind(t, err, KindCreditAging)
}

func TestWithdrawReserveConflict(t *testing.T) {
	now := time.Now()
	store := healthyStore(now)
	store.reserveErr = errf(KindInsufficient, "insufficient balance: 0 credits available")
	payouts := &fakePayouts{}
	svc := newTestService(testWithdrawalConfig(), store, payouts, &fakeNotifier{}, now)

	_, err := svc.Withdraw(context.Background(), testCoachID, validRequest())
	assertKind(t, err, KindInsufficient)
	if payouts.calls != 0 {
		t.Error("payout must not run when the reserve fails")
	}
}

func TestWithdrawPayoutFailureRefunds(t *testing.T) {
	now := time.Now()
	store := healthyStore(now)
	payouts := &fakePayouts{err: errors.New("provider timeout")}
	svc := newTestService(testWithdrawalConfig(), store, payouts, &fakeNotifier{}, now)

	_, err := svc.Withdraw(context.Background(), testCoachID, validRequest())
	assertKind(t, err, KindPayout)

	if len(store.refundCalls) != 1 || store.refundCalls[0] != "wr-1" {
		t.Fatalf("refund calls = %v, want [wr-1]", store.refundCalls)
	}
	if store.completeCalls != 0 {
		t.Error("complete must not run after a failed payout")
	}
}

func TestWithdrawRefundFailureDoesNotMaskPayoutError(t *testing.T) {
	now := time.Now()
	store := healthyStore(now)
	store.refundErr = errors.New("deadlock")
	payouts := &fakePayouts{err: errors.New("provider timeout")}
	svc := newTestService(testWithdrawalConfig(), store, payouts, &fakeNotifier{}, now)

	_, err := svc.Withdraw(context.Background(), testCoachID, validRequest())
	assertKind(t, err, KindPayout)
}

func TestWithdrawCompleteFailureNeverRefunds(t *testing.T) {
	now := time.Now()
	store := healthyStore(now)
	store.completeErr = errors.New("deadlock")
	payouts := &fakePayouts{result: &PayoutResult{Ref: "r", TransID: "t"}}
	svc := newTestService(testWithdrawalConfig(), store, payouts, &fakeNotifier{}, now)

	_, err := svc.Withdraw(context.Background(), testCoachID, validRequest())
	assertKind(t, err, KindPersistence)

	// The payout already went out; refunding here would double-pay.
	if len(store.refundCalls) != 0 {
		t.Fatalf("refund calls = %v, want none", store.refundCalls)
	}
}

func TestCreditsToMWK(t *testing.T) {
	rate := testWithdrawalConfig().ExchangeRate
	if got := creditsToMWK(100, rate); got != 10000 {
		t.Errorf("creditsToMWK(100) = %d, want 10000", got)
	}
	if got := creditsToMWK(1, rate); got != 100 {
		t.Errorf("creditsToMWK(1) = %d, want 100", got)
	}
}
