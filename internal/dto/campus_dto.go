package dto

import "time"

type CourseDTO struct {
	ID         uint   `json:"id"`
	Code       string `json:"code"`
	Title      string `json:"title"`
	Instructor string `json:"instructor,omitempty"`
}

type NotificationDTO struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type InterviewTurnDTO struct {
	Role    string `json:"role" binding:"required,oneof=user interviewer"`
	Content string `json:"content" binding:"required"`
}

type InterviewRequestDTO struct {
	Message string             `json:"message" binding:"required"`
	History []InterviewTurnDTO `json:"history" binding:"omitempty,dive"`
}

type InterviewResponseDTO struct {
	Reply string `json:"reply"`
}
