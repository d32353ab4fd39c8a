package model

import "time"

type Course struct {
	ID         uint   `json:"id"`
	Code       string `json:"code"`
	Title      string `json:"title"`
	Instructor string `json:"instructor,omitempty"`
}

type Notification struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// InterviewTurn is one exchange in the practice-interview chat.
type InterviewTurn struct {
	Role    string `json:"role"` // "user" or "interviewer"
	Content string `json:"content"`
}
