package withdraw

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Heuristic point values. Independent signals sum into a 0-100 score.
const (
	newAccountPoints     = 20
	rapidPatternPoints   = 30
	largeAmountPoints    = 25
	firstLargePoints     = 20
	newAccountMaxAgeDays = 7
	rapidPurchaseWindow  = time.Hour
	firstLargeMinCredits = 5000
)

// FraudResult is the score plus the human-readable reasons stored on the
// withdrawal request.
type FraudResult struct {
	Score   int
	Reasons []string
}

// scoreFraud sums the heuristic signals for one withdrawal attempt. Signals
// whose backing read fails are skipped with a warning; scoring is advisory
// except for the block threshold, and a read outage must not reject on its
// own.
func (s *Service) scoreFraud(ctx context.Context, coachID string, credits int64) FraudResult {
	var res FraudResult

	createdAt, err := s.store.AccountCreatedAt(ctx, coachID)
	if err != nil {
		s.log.Warn("fraud signal skipped: account age", zap.Error(err))
	} else if s.now().Sub(createdAt) < newAccountMaxAgeDays*24*time.Hour {
		res.Score += newAccountPoints
		res.Reasons = append(res.Reasons, "account is less than 7 days old")
	}

	recent, err := s.store.HasRecentPurchase(ctx, coachID, s.now().Add(-rapidPurchaseWindow))
	if err != nil {
		s.log.Warn("fraud signal skipped: rapid purchase", zap.Error(err))
	} else if recent {
		res.Score += rapidPatternPoints
		res.Reasons = append(res.Reasons, "credits purchased within the last hour")
	}

	// Unreachable while the validator caps credits at MaxWithdrawal; it only
	// fires if the cap is raised without revisiting this scorer, which is
	// exactly when it should. Do not remove.
	if credits > s.cfg.MaxWithdrawal {
		res.Score += largeAmountPoints
		res.Reasons = append(res.Reasons, fmt.Sprintf("amount exceeds %d credits", s.cfg.MaxWithdrawal))
	}

	if credits > firstLargeMinCredits {
		prior, err := s.store.HasCompletedWithdrawal(ctx, coachID)
		if err != nil {
			s.log.Warn("fraud signal skipped: withdrawal history", zap.Error(err))
		} else if !prior {
			res.Score += firstLargePoints
			res.Reasons = append(res.Reasons, "first withdrawal over 5000 credits")
		}
	}

	if res.Score > 100 {
		res.Score = 100
	}
	return res
}
