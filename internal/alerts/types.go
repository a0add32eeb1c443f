package alerts

import "time"

// Task type constants
const (
	TaskRateLimitAlert = "alert:rate_limit"
	TaskHighValueAlert = "alert:high_value"
	TaskFraudAlert     = "alert:fraud"
)

// Severity levels. Critical alerts bypass deduplication.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is the structured payload carried by every alert task.
type Event struct {
	Kind     string   `json:"kind"`
	Severity Severity `json:"severity"`
	CoachID  string   `json:"coach_id"`
	Message  string   `json:"message"`
	// Score and Reasons are set on fraud events only.
	Score   int      `json:"score,omitempty"`
	Reasons []string `json:"reasons,omitempty"`
	// Credits is set on high-value events only.
	Credits int64     `json:"credits,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}
