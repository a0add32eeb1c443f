package withdraw

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Failure policy per check, deliberately asymmetric: the rate limiter fails
// OPEN (a read hiccup must not block every withdrawal), while the daily cap
// and credit aging fail CLOSED (they guard money movement).
const (
	rateLimitFailOpen   = true
	dailyCapFailOpen    = false
	creditAgingFailOpen = false
)

const unavailableMsg = "withdrawals are temporarily unavailable, please try again shortly"

// checkRateLimit counts this coach's requests in the trailing hour,
// regardless of status. Runs before any resource is reserved.
func (s *Service) checkRateLimit(ctx context.Context, coachID string) error {
	count, err := s.store.CountRecentRequests(ctx, coachID, s.now().Add(-time.Hour))
	if err != nil {
		if rateLimitFailOpen {
			s.log.Warn("rate limit check failed open", zap.String("coach_id", coachID), zap.Error(err))
			return nil
		}
		return errf(KindUnavailable, unavailableMsg)
	}
	if count >= s.cfg.RateLimitPerHour {
		s.alerts.RateLimitHit(coachID, count)
		return errf(KindRateLimit, "too many withdrawal requests, please wait before trying again")
	}
	return nil
}

// checkDailyCap sums completed/processing withdrawals in the trailing 24h.
func (s *Service) checkDailyCap(ctx context.Context, coachID string, credits int64) error {
	sum, err := s.store.SumRecentWithdrawals(ctx, coachID, s.now().Add(-24*time.Hour))
	if err != nil {
		if dailyCapFailOpen {
			return nil
		}
		s.log.Error("daily cap check failed closed", zap.String("coach_id", coachID), zap.Error(err))
		return errf(KindUnavailable, unavailableMsg)
	}
	if sum+credits > s.cfg.DailyLimit {
		return errf(KindDailyCap, "daily withdrawal limit of %d credits exceeded (%d already requested today)",
			s.cfg.DailyLimit, sum)
	}
	return nil
}

// checkCreditAging verifies the requested amount is covered by credits whose
// originating transactions are at least CreditAgingDays old. The aggregate is
// clamped to [0, balance] against clock skew and data anomalies.
func (s *Service) checkCreditAging(ctx context.Context, coachID string, credits, balance int64) error {
	cutoff := s.now().AddDate(0, 0, -s.cfg.CreditAgingDays)
	aged, err := s.store.AgedCredits(ctx, coachID, cutoff)
	if err != nil {
		if creditAgingFailOpen {
			return nil
		}
		s.log.Error("credit aging check failed closed", zap.String("coach_id", coachID), zap.Error(err))
		return errf(KindUnavailable, unavailableMsg)
	}
	if aged < 0 {
		aged = 0
	}
	if aged > balance {
		aged = balance
	}
	if credits > aged {
		return errf(KindCreditAging,
			"only %d credits are old enough to withdraw; %d credits were earned too recently",
			aged, balance-aged)
	}
	return nil
}
