// Package mockserver is an in-memory stand-in for the real LMS backend. It
// implements every endpoint the client consumes and is used by the
// integration tests and the cmd/mockserver dev binary. Refresh tokens rotate
// on use, like the production server, so token races are observable here.
package mockserver

import (
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ntkhang/classline/config"
	"github.com/ntkhang/classline/internal/dto"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/crypto/bcrypt"
)

type userRecord struct {
	ID        uint
	Email     string
	Name      string
	Role      string
	IsActive  bool
	CreatedAt time.Time
	PassHash  []byte
}

type quizRecord struct {
	ID              uint
	Title           string
	Description     string
	Duration        int
	NegativeMarking bool
	Questions       []questionRecord
	CreatedAt       time.Time
}

type questionRecord struct {
	ID      uint
	QuizID  uint
	Text    string
	OptionA string
	OptionB string
	OptionC string
	OptionD string
	Correct string
	Marks   float64
	Order   int
}

func (q *quizRecord) totalMarks() float64 {
	var total float64
	for _, question := range q.Questions {
		total += question.Marks
	}
	return total
}

type attemptRecord struct {
	ID          uint
	QuizID      uint
	UserID      uint
	Score       *float64
	Completed   bool
	StartedAt   time.Time
	SubmittedAt *time.Time
}

type Server struct {
	cfg *config.Config

	mu             sync.Mutex
	usersByEmail   map[string]*userRecord
	usersByID      map[uint]*userRecord
	nextUserID     uint
	refreshTokens  map[string]uint // refresh token -> user id; rotated on use
	quizzes        map[uint]*quizRecord
	nextQuizID     uint
	nextQuestionID uint
	attempts       map[uint]*attemptRecord
	attemptIndex   map[[2]uint]uint // {userID, quizID} -> attempt id
	nextAttemptID  uint
	courses        []dto.CourseDTO
	notifications  map[uint]*dto.NotificationDTO
}

func NewServer(cfg *config.Config) (*Server, error) {
	s := &Server{
		cfg:           cfg,
		usersByEmail:  make(map[string]*userRecord),
		usersByID:     make(map[uint]*userRecord),
		refreshTokens: make(map[string]uint),
		quizzes:       make(map[uint]*quizRecord),
		attempts:      make(map[uint]*attemptRecord),
		attemptIndex:  make(map[[2]uint]uint),
		notifications: make(map[uint]*dto.NotificationDTO),
	}
	if err := s.seed(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) seed() error {
	if _, err := s.addUser("student@classline.dev", "student123", "Sam Student", "student"); err != nil {
		return err
	}
	if _, err := s.addUser("admin@classline.dev", "admin123", "Ada Admin", "admin"); err != nil {
		return err
	}

	s.addQuiz(&dto.ImportQuizDTO{
		Title:           "Go Basics",
		Description:     "Syntax, types and control flow",
		Duration:        10,
		NegativeMarking: true,
		Questions: []dto.ImportQuestionDTO{
			{Text: "Which keyword declares a variable with inferred type?", OptionA: "var", OptionB: ":=", OptionC: "let", OptionD: "def", Correct: "B", Marks: 2},
			{Text: "What is the zero value of a pointer?", OptionA: "0", OptionB: "\"\"", OptionC: "nil", OptionD: "undefined", Correct: "C", Marks: 2},
			{Text: "Which builtin grows a slice?", OptionA: "append", OptionB: "push", OptionC: "add", OptionD: "grow", Correct: "A", Marks: 2},
		},
	})

	s.courses = []dto.CourseDTO{
		{ID: 1, Code: "CS301", Title: "Operating Systems", Instructor: "Dr. Rao"},
		{ID: 2, Code: "CS302", Title: "Databases", Instructor: "Dr. Iyer"},
	}
	for i, title := range []string{"Welcome to the new semester", "Quiz 'Go Basics' is open"} {
		id := uint(i + 1)
		s.notifications[id] = &dto.NotificationDTO{ID: id, Title: title, CreatedAt: time.Now()}
	}
	return nil
}

func (s *Server) addUser(email, password, name, role string) (*userRecord, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	s.nextUserID++
	rec := &userRecord{
		ID:        s.nextUserID,
		Email:     email,
		Name:      name,
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now(),
		PassHash:  hash,
	}
	s.usersByEmail[email] = rec
	s.usersByID[rec.ID] = rec
	return rec, nil
}

// addQuiz assumes s.mu is held (or the server is not yet serving).
func (s *Server) addQuiz(in *dto.ImportQuizDTO) *quizRecord {
	s.nextQuizID++
	quiz := &quizRecord{
		ID:              s.nextQuizID,
		Title:           in.Title,
		Description:     in.Description,
		Duration:        in.Duration,
		NegativeMarking: in.NegativeMarking,
		CreatedAt:       time.Now(),
	}
	for i, q := range in.Questions {
		s.nextQuestionID++
		quiz.Questions = append(quiz.Questions, questionRecord{
			ID:      s.nextQuestionID,
			QuizID:  quiz.ID,
			Text:    q.Text,
			OptionA: q.OptionA,
			OptionB: q.OptionB,
			OptionC: q.OptionC,
			OptionD: q.OptionD,
			Correct: q.Correct,
			Marks:   q.Marks,
			Order:   i + 1,
		})
	}
	s.quizzes[quiz.ID] = quiz
	return quiz
}

// NewEngine builds the gin engine with logging, recovery, CORS and the
// swagger UI, mirroring the production middleware stack.
func NewEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// Register mounts every API route on the engine.
func (s *Server) Register(r *gin.Engine) {
	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/login", s.handleLogin)
		auth.POST("/secure-admin-auth", s.handleAdminLogin)
		auth.POST("/register", s.handleRegister)
		auth.POST("/refresh", s.handleRefresh)
		auth.GET("/me", s.requireAuth, s.handleMe)

		api.GET("/quiz", s.requireAuth, s.handleListQuizzes)
		api.GET("/quiz/:id", s.requireAuth, s.handleGetQuiz)
		api.POST("/quiz", s.requireAuth, s.requireAdmin, s.handleCreateQuiz)
		api.POST("/quiz-attempt", s.requireAuth, s.handleCreateAttempt)
		api.POST("/quiz-submit", s.requireAuth, s.handleSubmit)

		api.GET("/courses", s.requireAuth, s.handleCourses)
		api.GET("/notifications", s.requireAuth, s.handleNotifications)
		api.PUT("/notifications/:id/read", s.requireAuth, s.handleNotificationRead)

		api.POST("/interview", s.requireAuth, s.handleInterview)
	}
}
