package core

import "time"

// Status is the outcome class of one engine run.
type Status string

const (
	StatusOK     Status = "ok"
	StatusDenied Status = "denied"
	StatusFailed Status = "failed"
)

// Execution is the audit record of one finished engine run.
// It is written to the execution log, never to the slot collection.
type Execution struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	Slot       string    `json:"slot"`
	UserID     string    `json:"user_id"`
	Origin     Origin    `json:"origin"`
	Status     Status    `json:"status"`
	Code       Code      `json:"code,omitempty"`
	Message    string    `json:"message,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// StatusOf classifies a run error.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case IsDenied(err):
		return StatusDenied
	default:
		return StatusFailed
	}
}
