package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Sink enqueues alert events for asynchronous delivery. Every method is
// best-effort: failures are logged and swallowed so an alerting outage can
// never fail a withdrawal.
type Sink struct {
	dedup   *Deduper
	largeTx int64
	blockAt int
	log     *zap.Logger
}

// RateLimitHit reports a coach tripping the hourly withdrawal rate limit.
func (s *Sink) RateLimitHit(coachID string, count int) {
	s.emit(TaskRateLimitAlert, Event{
		Kind:     "rate_limit",
		Severity: SeverityWarning,
		CoachID:  coachID,
		Message:  fmt.Sprintf("withdrawal rate limit hit (%d requests in the last hour)", count),
		SentAt:   time.Now(),
	})
}

// HighValueTransaction reports a completed withdrawal at or above the
// configured threshold. Smaller amounts are ignored here so callers don't
// need to know the threshold.
func (s *Sink) HighValueTransaction(coachID string, credits int64) {
	if credits < s.largeTx {
		return
	}
	s.emit(TaskHighValueAlert, Event{
		Kind:     "high_value",
		Severity: SeverityInfo,
		CoachID:  coachID,
		Message:  fmt.Sprintf("high-value withdrawal of %d credits completed", credits),
		Credits:  credits,
		SentAt:   time.Now(),
	})
}

// FraudFlag reports a high-risk fraud score. Scores at or above the block
// threshold are critical and bypass deduplication.
func (s *Sink) FraudFlag(coachID string, score int, reasons []string) {
	sev := SeverityWarning
	if score >= s.blockAt {
		sev = SeverityCritical
	}
	s.emit(TaskFraudAlert, Event{
		Kind:     "fraud",
		Severity: sev,
		CoachID:  coachID,
		Message:  fmt.Sprintf("fraud score %d on withdrawal attempt", score),
		Score:    score,
		Reasons:  reasons,
		SentAt:   time.Now(),
	})
}

func (s *Sink) emit(task string, ev Event) {
	key := fmt.Sprintf("%s:%s:%s", ev.Kind, ev.CoachID, ev.Message)
	if !s.dedup.Allow(context.Background(), key, ev.Severity) {
		return
	}

	b, _ := json.Marshal(ev)
	if _, err := ensureClient().Enqueue(asynq.NewTask(task, b), asynq.Queue("alerts")); err != nil {
		s.log.Warn("alert enqueue failed", zap.String("task", task), zap.Error(err))
	}
}
