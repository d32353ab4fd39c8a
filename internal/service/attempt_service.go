package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/ntkhang/classline/internal/apierr"
	"github.com/ntkhang/classline/internal/client"
	"github.com/ntkhang/classline/internal/dto"
	"github.com/ntkhang/classline/internal/model"
	"github.com/rs/zerolog/log"
)

var (
	ErrAttemptNotLoaded = errors.New("no quiz loaded")
	ErrAlreadyStarted   = errors.New("attempt already started")
	ErrAttemptFinished  = errors.New("attempt already submitted")
	ErrNotInProgress    = errors.New("attempt is not in progress")
	ErrSubmitInFlight   = errors.New("a submission is already in flight")
)

// SubmitOutcome is delivered on Finished when the countdown auto-submits.
type SubmitOutcome struct {
	Result *model.AttemptResult
	Err    error
}

// AttemptController drives one timed quiz attempt from load to scored result.
// Invariants: answer keys are always a subset of the loaded question ids;
// remaining seconds only decrease while the attempt is in progress; the
// transition out of in-progress happens at most once, so a timeout firing
// simultaneously with a manual submit produces exactly one server request.
type AttemptController struct {
	api  *client.Client
	tick time.Duration // overridable in tests

	mu         sync.Mutex
	quiz       *model.Quiz
	phase      model.Phase
	answers    map[uint]string
	current    int
	remaining  int
	submitting bool
	result     *model.AttemptResult
	timerStop  chan struct{}
	finished   chan SubmitOutcome
}

func NewAttemptController(api *client.Client) *AttemptController {
	return &AttemptController{
		api:      api,
		tick:     time.Second,
		phase:    model.PhaseNotStarted,
		answers:  make(map[uint]string),
		finished: make(chan SubmitOutcome, 1),
	}
}

// Load fetches the quiz and resets attempt state. If the server reports a
// finished attempt the controller enters the submitted phase directly with
// the stored result, so reloading a finished quiz never re-prompts.
func (c *AttemptController) Load(ctx context.Context, quizID uint) (*model.Quiz, error) {
	var d dto.QuizDetailDTO
	if err := c.api.Get(ctx, fmt.Sprintf("/api/quiz/%d", quizID), &d); err != nil {
		log.Error().Err(err).Uint("quizID", quizID).Msg("Failed to load quiz")
		return nil, err
	}

	var quiz model.Quiz
	if err := copier.Copy(&quiz, &d); err != nil {
		return nil, fmt.Errorf("mapping quiz payload: %w", err)
	}
	sort.SliceStable(quiz.Questions, func(i, j int) bool {
		return quiz.Questions[i].Order < quiz.Questions[j].Order
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	c.quiz = &quiz
	c.answers = make(map[uint]string)
	c.current = 0
	c.remaining = 0
	c.result = nil
	c.phase = model.PhaseNotStarted
	if d.Attempt != nil && d.Attempt.Completed {
		c.phase = model.PhaseSubmitted
		res := model.AttemptResult{TotalMarks: d.Attempt.TotalMarks}
		if d.Attempt.Score != nil {
			res.Score = *d.Attempt.Score
		}
		c.result = &res
		log.Info().Uint("quizID", quizID).Float64("score", res.Score).Msg("Quiz already attempted, resuming finished state")
	}
	return &quiz, nil
}

// Start records the attempt server-side and arms the countdown. On failure
// the attempt stays not-started and the error is surfaced.
func (c *AttemptController) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.quiz == nil {
		c.mu.Unlock()
		return ErrAttemptNotLoaded
	}
	switch c.phase {
	case model.PhaseInProgress:
		c.mu.Unlock()
		return ErrAlreadyStarted
	case model.PhaseSubmitted:
		c.mu.Unlock()
		return ErrAttemptFinished
	}
	quizID := c.quiz.ID
	duration := c.quiz.Duration
	c.mu.Unlock()

	var attempt dto.AttemptDTO
	if err := c.api.Post(ctx, "/api/quiz-attempt", dto.CreateAttemptRequestDTO{QuizID: quizID}, &attempt); err != nil {
		log.Warn().Err(err).Uint("quizID", quizID).Msg("Failed to start attempt")
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != model.PhaseNotStarted {
		return ErrAlreadyStarted
	}
	c.phase = model.PhaseInProgress
	c.remaining = duration * 60
	if c.remaining > 0 {
		stop := make(chan struct{})
		c.timerStop = stop
		go c.runTimer(stop)
	}
	log.Info().Uint("quizID", quizID).Int("seconds", c.remaining).Msg("Attempt started")
	return nil
}

// runTimer is the single ticking process for the attempt. It stops on the
// stop channel, on any phase change, and after triggering the auto-submit.
func (c *AttemptController) runTimer(stop chan struct{}) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.phase != model.PhaseInProgress {
				c.mu.Unlock()
				return
			}
			c.remaining--
			if c.remaining > 0 {
				c.mu.Unlock()
				continue
			}
			c.remaining = 0
			c.mu.Unlock()
			c.autoSubmit()
			return
		}
	}
}

func (c *AttemptController) autoSubmit() {
	log.Info().Msg("Time up, submitting attempt")
	res, err := c.submit(context.Background(), true)
	if errors.Is(err, ErrSubmitInFlight) || errors.Is(err, ErrNotInProgress) || errors.Is(err, ErrAttemptFinished) {
		// A manual submission won the race; nothing to report.
		return
	}
	select {
	case c.finished <- SubmitOutcome{Result: res, Err: err}:
	default:
	}
}

// Finished delivers the outcome of a timeout-triggered submission, including
// its failure. A failed auto-submit never re-arms the timer.
func (c *AttemptController) Finished() <-chan SubmitOutcome {
	return c.finished
}

// SelectAnswer upserts the selected option for a question. Last write wins;
// re-selecting the same option is a no-op.
func (c *AttemptController) SelectAnswer(questionID uint, option string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quiz == nil {
		return ErrAttemptNotLoaded
	}
	if c.phase != model.PhaseInProgress {
		return ErrNotInProgress
	}
	if !model.ValidOption(option) {
		return &apierr.ValidationError{Message: "invalid option", Fields: []apierr.FieldError{{Field: "option", Message: "must be one of A, B, C, D"}}}
	}
	if c.quiz.QuestionByID(questionID) == nil {
		return &apierr.ValidationError{Message: "unknown question", Fields: []apierr.FieldError{{Field: "question_id", Message: "not part of this quiz"}}}
	}
	c.answers[questionID] = option
	return nil
}

// Navigate clamps the requested index into the question range and moves
// there. Answering the current question first is not required.
func (c *AttemptController) Navigate(index int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quiz == nil || len(c.quiz.Questions) == 0 {
		c.current = 0
		return 0
	}
	if index < 0 {
		index = 0
	}
	if max := len(c.quiz.Questions) - 1; index > max {
		index = max
	}
	c.current = index
	return c.current
}

// Submit posts the attempt. Valid only while in progress; the transition out
// of in-progress happens at most once. On failure the attempt stays in
// progress and the caller decides whether to retry; there is no automatic
// retry against the scoring endpoint.
func (c *AttemptController) Submit(ctx context.Context) (*model.AttemptResult, error) {
	return c.submit(ctx, false)
}

func (c *AttemptController) submit(ctx context.Context, auto bool) (*model.AttemptResult, error) {
	c.mu.Lock()
	if c.quiz == nil {
		c.mu.Unlock()
		return nil, ErrAttemptNotLoaded
	}
	if c.phase == model.PhaseSubmitted {
		c.mu.Unlock()
		return nil, ErrAttemptFinished
	}
	if c.phase != model.PhaseInProgress {
		c.mu.Unlock()
		return nil, ErrNotInProgress
	}
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	c.submitting = true
	req := dto.SubmitRequestDTO{QuizID: c.quiz.ID, Answers: make(map[uint]string, len(c.answers))}
	for id, opt := range c.answers {
		req.Answers[id] = opt
	}
	c.mu.Unlock()

	var resp dto.SubmitResponseDTO
	err := c.api.Post(ctx, "/api/quiz-submit", req, &resp)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if err != nil {
		log.Warn().Err(err).Uint("quizID", req.QuizID).Bool("auto", auto).Msg("Quiz submission failed")
		return nil, err
	}
	c.phase = model.PhaseSubmitted
	c.result = &model.AttemptResult{Score: resp.Score, TotalMarks: resp.TotalMarks}
	c.stopTimerLocked()
	log.Info().Uint("quizID", req.QuizID).Float64("score", resp.Score).Float64("total", resp.TotalMarks).Bool("auto", auto).Msg("Attempt submitted")
	return c.result, nil
}

// Close releases the timer. Call when the hosting screen is torn down so a
// stray tick cannot mutate state after disposal.
func (c *AttemptController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
}

func (c *AttemptController) stopTimerLocked() {
	if c.timerStop != nil {
		close(c.timerStop)
		c.timerStop = nil
	}
}

func (c *AttemptController) Phase() model.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *AttemptController) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *AttemptController) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// CurrentQuestion returns the question at the cursor, or nil when no quiz is
// loaded or it has no questions.
func (c *AttemptController) CurrentQuestion() *model.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quiz == nil || len(c.quiz.Questions) == 0 {
		return nil
	}
	q := c.quiz.Questions[c.current]
	return &q
}

// Answers returns a copy of the selections made so far.
func (c *AttemptController) Answers() map[uint]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[uint]string, len(c.answers))
	for id, opt := range c.answers {
		out[id] = opt
	}
	return out
}

func (c *AttemptController) Result() *model.AttemptResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

func (c *AttemptController) Quiz() *model.Quiz {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quiz
}
