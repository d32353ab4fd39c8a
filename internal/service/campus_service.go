package service

import (
	"context"
	"fmt"

	"github.com/ntkhang/classline/internal/client"
	"github.com/ntkhang/classline/internal/dto"
	"github.com/rs/zerolog/log"
)

// CampusService is the data layer behind the course and notification screens.
type CampusService interface {
	Courses(ctx context.Context) ([]dto.CourseDTO, error)
	Notifications(ctx context.Context) ([]dto.NotificationDTO, error)
	MarkNotificationRead(ctx context.Context, id uint) error
}

type campusService struct {
	api *client.Client
}

func NewCampusService(api *client.Client) CampusService {
	return &campusService{api: api}
}

func (s *campusService) Courses(ctx context.Context) ([]dto.CourseDTO, error) {
	var courses []dto.CourseDTO
	if err := s.api.Get(ctx, "/api/courses", &courses); err != nil {
		log.Error().Err(err).Msg("Failed to list courses")
		return nil, err
	}
	return courses, nil
}

func (s *campusService) Notifications(ctx context.Context) ([]dto.NotificationDTO, error) {
	var notes []dto.NotificationDTO
	if err := s.api.Get(ctx, "/api/notifications", &notes); err != nil {
		log.Error().Err(err).Msg("Failed to list notifications")
		return nil, err
	}
	return notes, nil
}

func (s *campusService) MarkNotificationRead(ctx context.Context, id uint) error {
	if err := s.api.Put(ctx, fmt.Sprintf("/api/notifications/%d/read", id), nil, nil); err != nil {
		log.Error().Err(err).Uint("notificationID", id).Msg("Failed to mark notification read")
		return err
	}
	return nil
}
