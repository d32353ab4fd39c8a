package model

import "time"

// Phase of a single quiz-taking pass.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseSubmitted  Phase = "submitted"
)

// AttemptRecord is the server's view of one attempt at a quiz.
type AttemptRecord struct {
	ID          uint       `json:"id"`
	QuizID      uint       `json:"quiz_id"`
	UserID      uint       `json:"user_id"`
	Score       *float64   `json:"score,omitempty"`
	TotalMarks  float64    `json:"total_marks"`
	Completed   bool       `json:"completed"`
	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// AttemptResult is the scored outcome of a submission. Scoring policy is
// entirely server-side; the client treats these numbers as opaque.
type AttemptResult struct {
	Score      float64 `json:"score"`
	TotalMarks float64 `json:"total_marks"`
}
