package dto

import "time"

// QuizSummaryDTO is used for listing quizzes available to a student.
type QuizSummaryDTO struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Duration      int       `json:"duration"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}

type QuestionDTO struct {
	ID      uint    `json:"id"`
	QuizID  uint    `json:"quiz_id"`
	Text    string  `json:"text"`
	OptionA string  `json:"option_a"`
	OptionB string  `json:"option_b"`
	OptionC string  `json:"option_c"`
	OptionD string  `json:"option_d"`
	Marks   float64 `json:"marks"`
	Order   int     `json:"order"`
}

type AttemptDTO struct {
	ID          uint       `json:"id"`
	QuizID      uint       `json:"quiz_id"`
	UserID      uint       `json:"user_id"`
	Score       *float64   `json:"score,omitempty"`
	TotalMarks  float64    `json:"total_marks"`
	Completed   bool       `json:"completed"`
	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// QuizDetailDTO is the full quiz payload, including the caller's existing
// attempt when the server has one on record.
type QuizDetailDTO struct {
	ID              uint          `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	Duration        int           `json:"duration"`
	NegativeMarking bool          `json:"negative_marking"`
	TotalMarks      float64       `json:"total_marks"`
	Questions       []QuestionDTO `json:"questions,omitempty"`
	Attempt         *AttemptDTO   `json:"attempt,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

type CreateAttemptRequestDTO struct {
	QuizID uint `json:"quizId" binding:"required"`
}

type SubmitRequestDTO struct {
	QuizID  uint            `json:"quizId" binding:"required"`
	Answers map[uint]string `json:"answers"`
}

type SubmitResponseDTO struct {
	Score      float64 `json:"score"`
	TotalMarks float64 `json:"totalMarks"`
}

// ImportQuestionDTO is one question in an imported quiz file.
type ImportQuestionDTO struct {
	Text    string  `json:"text" validate:"required"`
	OptionA string  `json:"option_a" validate:"required"`
	OptionB string  `json:"option_b" validate:"required"`
	OptionC string  `json:"option_c" validate:"required"`
	OptionD string  `json:"option_d" validate:"required"`
	Correct string  `json:"correct" validate:"required,oneof=A B C D"`
	Marks   float64 `json:"marks" validate:"gte=0"`
}

// ImportQuizDTO is the quiz-authoring JSON format accepted by Import and by
// POST /api/quiz.
type ImportQuizDTO struct {
	Title           string              `json:"title" validate:"required" binding:"required"`
	Description     string              `json:"description"`
	Duration        int                 `json:"duration" validate:"required,min=1" binding:"required,min=1"`
	NegativeMarking bool                `json:"negative_marking"`
	Questions       []ImportQuestionDTO `json:"questions" validate:"required,min=1,dive" binding:"required,min=1,dive"`
}
