package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/ntkhang/classline/config"
	"github.com/ntkhang/classline/internal/client"
	"github.com/ntkhang/classline/internal/dto"
	"github.com/ntkhang/classline/internal/model"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// InterviewService answers one turn of the practice-interview chat.
type InterviewService interface {
	Ask(ctx context.Context, history []model.InterviewTurn, message string) (string, error)
}

// NewInterviewService returns the backend-powered chat, or a local
// Gemini-powered one when an API key is configured.
func NewInterviewService(cfg *config.Config, api *client.Client) (InterviewService, error) {
	if cfg.GeminiApiKey == "" {
		return &remoteInterviewService{api: api}, nil
	}
	return NewOfflineInterviewer(cfg)
}

type remoteInterviewService struct {
	api *client.Client
}

func (s *remoteInterviewService) Ask(ctx context.Context, history []model.InterviewTurn, message string) (string, error) {
	req := dto.InterviewRequestDTO{Message: message}
	for _, turn := range history {
		req.History = append(req.History, dto.InterviewTurnDTO{Role: turn.Role, Content: turn.Content})
	}
	var resp dto.InterviewResponseDTO
	if err := s.api.Post(ctx, "/api/interview", req, &resp); err != nil {
		log.Error().Err(err).Msg("Interview request failed")
		return "", err
	}
	return resp.Reply, nil
}

type geminiInterviewService struct {
	model *genai.GenerativeModel
}

// NewOfflineInterviewer runs the interview chat directly against Gemini,
// useful when practicing without a backend.
func NewOfflineInterviewer(cfg *config.Config) (InterviewService, error) {
	ctx := context.Background()
	gc, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	m := gc.GenerativeModel("gemini-1.5-flash")
	log.Info().Msg("Interview chat running in offline Gemini mode")
	return &geminiInterviewService{model: m}, nil
}

func (s *geminiInterviewService) Ask(ctx context.Context, history []model.InterviewTurn, message string) (string, error) {
	var b strings.Builder
	b.WriteString("You are a technical interviewer for a student placement drive. ")
	b.WriteString("Ask one concise follow-up question or give short feedback on the candidate's last answer.\n\n")
	for _, turn := range history {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}
	fmt.Fprintf(&b, "user: %s\n", message)

	resp, err := s.model.GenerateContent(ctx, genai.Text(b.String()))
	if err != nil {
		log.Error().Err(err).Msg("Gemini interview call failed")
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	var reply strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			reply.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(reply.String()), nil
}
