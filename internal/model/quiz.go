package model

import "time"

type Quiz struct {
	ID              uint       `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Duration        int        `json:"duration"` // minutes
	NegativeMarking bool       `json:"negative_marking"`
	TotalMarks      float64    `json:"total_marks"`
	Questions       []Question `json:"questions,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// QuestionByID returns the question with the given id, or nil.
func (q *Quiz) QuestionByID(id uint) *Question {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i]
		}
	}
	return nil
}
