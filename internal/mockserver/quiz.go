package mockserver

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ntkhang/classline/internal/dto"
	"github.com/rs/zerolog/log"
)

func quizSummary(q *quizRecord) dto.QuizSummaryDTO {
	return dto.QuizSummaryDTO{
		ID:            q.ID,
		Title:         q.Title,
		Description:   q.Description,
		Duration:      q.Duration,
		QuestionCount: len(q.Questions),
		CreatedAt:     q.CreatedAt,
	}
}

// quizDetail renders the quiz without correct answers; those never leave the
// server.
func quizDetail(q *quizRecord, attempt *attemptRecord) dto.QuizDetailDTO {
	d := dto.QuizDetailDTO{
		ID:              q.ID,
		Title:           q.Title,
		Description:     q.Description,
		Duration:        q.Duration,
		NegativeMarking: q.NegativeMarking,
		TotalMarks:      q.totalMarks(),
		CreatedAt:       q.CreatedAt,
	}
	for _, question := range q.Questions {
		d.Questions = append(d.Questions, dto.QuestionDTO{
			ID:      question.ID,
			QuizID:  question.QuizID,
			Text:    question.Text,
			OptionA: question.OptionA,
			OptionB: question.OptionB,
			OptionC: question.OptionC,
			OptionD: question.OptionD,
			Marks:   question.Marks,
			Order:   question.Order,
		})
	}
	if attempt != nil {
		d.Attempt = &dto.AttemptDTO{
			ID:          attempt.ID,
			QuizID:      attempt.QuizID,
			UserID:      attempt.UserID,
			Score:       attempt.Score,
			TotalMarks:  q.totalMarks(),
			Completed:   attempt.Completed,
			StartedAt:   attempt.StartedAt,
			SubmittedAt: attempt.SubmittedAt,
		}
	}
	return d
}

func (s *Server) handleListQuizzes(ctx *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summaries := make([]dto.QuizSummaryDTO, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		summaries = append(summaries, quizSummary(q))
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	ctx.JSON(http.StatusOK, summaries)
}

func (s *Server) handleGetQuiz(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid quiz ID"})
		return
	}
	u := currentUser(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.quizzes[uint(id)]
	if q == nil {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Quiz not found"})
		return
	}
	var attempt *attemptRecord
	if attemptID, ok := s.attemptIndex[[2]uint{u.ID, q.ID}]; ok {
		attempt = s.attempts[attemptID]
	}
	ctx.JSON(http.StatusOK, quizDetail(q, attempt))
}

func (s *Server) handleCreateQuiz(ctx *gin.Context) {
	var req dto.ImportQuizDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid quiz payload", Details: []string{err.Error()}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.addQuiz(&req)
	log.Info().Uint("quizID", q.ID).Str("title", q.Title).Msg("Quiz created")
	ctx.JSON(http.StatusCreated, quizDetail(q, nil))
}

func (s *Server) handleCreateAttempt(ctx *gin.Context) {
	var req dto.CreateAttemptRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	u := currentUser(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.quizzes[req.QuizID]
	if q == nil {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Quiz not found"})
		return
	}
	if attemptID, ok := s.attemptIndex[[2]uint{u.ID, req.QuizID}]; ok {
		existing := s.attempts[attemptID]
		if existing.Completed {
			ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "Quiz already attempted"})
			return
		}
		// Starting again resumes the open attempt.
		ctx.JSON(http.StatusOK, attemptDTO(existing, q))
		return
	}

	s.nextAttemptID++
	attempt := &attemptRecord{
		ID:        s.nextAttemptID,
		QuizID:    req.QuizID,
		UserID:    u.ID,
		StartedAt: time.Now(),
	}
	s.attempts[attempt.ID] = attempt
	s.attemptIndex[[2]uint{u.ID, req.QuizID}] = attempt.ID
	ctx.JSON(http.StatusCreated, attemptDTO(attempt, q))
}

func attemptDTO(a *attemptRecord, q *quizRecord) dto.AttemptDTO {
	return dto.AttemptDTO{
		ID:          a.ID,
		QuizID:      a.QuizID,
		UserID:      a.UserID,
		Score:       a.Score,
		TotalMarks:  q.totalMarks(),
		Completed:   a.Completed,
		StartedAt:   a.StartedAt,
		SubmittedAt: a.SubmittedAt,
	}
}

// handleSubmit scores the attempt. Correct answers earn the question's marks;
// with negative marking a wrong answer costs a quarter of them; unanswered
// questions score zero. The final score is floored at zero.
func (s *Server) handleSubmit(ctx *gin.Context) {
	var req dto.SubmitRequestDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}
	u := currentUser(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.quizzes[req.QuizID]
	if q == nil {
		ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Message: "Quiz not found"})
		return
	}
	attemptID, ok := s.attemptIndex[[2]uint{u.ID, req.QuizID}]
	if !ok {
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "Attempt not started"})
		return
	}
	attempt := s.attempts[attemptID]
	if attempt.Completed {
		ctx.JSON(http.StatusConflict, dto.ErrorResponse{Message: "Attempt already submitted"})
		return
	}

	var score float64
	for _, question := range q.Questions {
		answer, answered := req.Answers[question.ID]
		if !answered {
			continue
		}
		if answer == question.Correct {
			score += question.Marks
		} else if q.NegativeMarking {
			score -= question.Marks * 0.25
		}
	}
	if score < 0 {
		score = 0
	}

	now := time.Now()
	attempt.Score = &score
	attempt.Completed = true
	attempt.SubmittedAt = &now
	log.Info().Uint("quizID", q.ID).Uint("userID", u.ID).Float64("score", score).Msg("Attempt scored")
	ctx.JSON(http.StatusOK, dto.SubmitResponseDTO{Score: score, TotalMarks: q.totalMarks()})
}
