package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
	"github.com/ntkhang/classline/internal/apierr"
	"github.com/ntkhang/classline/internal/client"
	"github.com/ntkhang/classline/internal/dto"
	"github.com/ntkhang/classline/internal/model"
	"github.com/rs/zerolog/log"
)

// QuizService is the catalog side of quizzes: listing, fetching and the
// admin quiz-import flow. Attempt state lives in AttemptController.
type QuizService interface {
	List(ctx context.Context) ([]dto.QuizSummaryDTO, error)
	Get(ctx context.Context, id uint) (*model.Quiz, error)
	// Import parses and validates a quiz authoring file, then creates it
	// server-side. Malformed input yields a ValidationError with field
	// details before any network call.
	Import(ctx context.Context, r io.Reader) (*model.Quiz, error)
}

type quizService struct {
	api      *client.Client
	validate *validator.Validate
}

func NewQuizService(api *client.Client) QuizService {
	return &quizService{api: api, validate: validator.New()}
}

func (s *quizService) List(ctx context.Context) ([]dto.QuizSummaryDTO, error) {
	var quizzes []dto.QuizSummaryDTO
	if err := s.api.Get(ctx, "/api/quiz", &quizzes); err != nil {
		log.Error().Err(err).Msg("Failed to list quizzes")
		return nil, err
	}
	return quizzes, nil
}

func (s *quizService) Get(ctx context.Context, id uint) (*model.Quiz, error) {
	var d dto.QuizDetailDTO
	if err := s.api.Get(ctx, fmt.Sprintf("/api/quiz/%d", id), &d); err != nil {
		log.Error().Err(err).Uint("quizID", id).Msg("Failed to fetch quiz")
		return nil, err
	}
	var quiz model.Quiz
	if err := copier.Copy(&quiz, &d); err != nil {
		return nil, fmt.Errorf("mapping quiz payload: %w", err)
	}
	sort.SliceStable(quiz.Questions, func(i, j int) bool {
		return quiz.Questions[i].Order < quiz.Questions[j].Order
	})
	return &quiz, nil
}

func (s *quizService) Import(ctx context.Context, r io.Reader) (*model.Quiz, error) {
	var in dto.ImportQuizDTO
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return nil, &apierr.ValidationError{Message: "malformed quiz file: " + err.Error()}
	}

	if err := s.validate.Struct(&in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]apierr.FieldError, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, apierr.FieldError{Field: fe.Namespace(), Message: fe.Tag()})
			}
			return nil, &apierr.ValidationError{Message: "invalid quiz file", Fields: fields}
		}
		return nil, fmt.Errorf("validating quiz file: %w", err)
	}

	var created dto.QuizDetailDTO
	if err := s.api.Post(ctx, "/api/quiz", in, &created); err != nil {
		log.Error().Err(err).Str("title", in.Title).Msg("Failed to create imported quiz")
		return nil, err
	}
	var quiz model.Quiz
	if err := copier.Copy(&quiz, &created); err != nil {
		return nil, fmt.Errorf("mapping created quiz: %w", err)
	}
	log.Info().Uint("quizID", quiz.ID).Str("title", quiz.Title).Int("questions", len(quiz.Questions)).Msg("Quiz imported")
	return &quiz, nil
}
