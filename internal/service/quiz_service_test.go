package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ntkhang/classline/internal/apierr"
	"github.com/ntkhang/classline/internal/client"
	"github.com/ntkhang/classline/internal/dto"
)

const validQuizFile = `{
	"title": "Concurrency Patterns",
	"description": "Channels and friends",
	"duration": 15,
	"negative_marking": true,
	"questions": [
		{"text": "q1", "option_a": "a", "option_b": "b", "option_c": "c", "option_d": "d", "correct": "B", "marks": 2},
		{"text": "q2", "option_a": "a", "option_b": "b", "option_c": "c", "option_d": "d", "correct": "D", "marks": 3}
	]
}`

func newQuizServiceFixture(t *testing.T) (QuizService, *atomic.Int32) {
	t.Helper()
	var createCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/quiz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeJSON(w, http.StatusOK, []dto.QuizSummaryDTO{
				{ID: 1, Title: "Go Basics", Duration: 10, QuestionCount: 3},
				{ID: 2, Title: "Concurrency Patterns", Duration: 15, QuestionCount: 2},
			})
			return
		}
		createCalls.Add(1)
		var in dto.ImportQuizDTO
		json.NewDecoder(r.Body).Decode(&in)
		detail := dto.QuizDetailDTO{ID: 9, Title: in.Title, Description: in.Description, Duration: in.Duration, NegativeMarking: in.NegativeMarking}
		for i, q := range in.Questions {
			detail.Questions = append(detail.Questions, dto.QuestionDTO{
				ID: uint(20 + i), QuizID: 9, Text: q.Text, Marks: q.Marks, Order: i + 1,
			})
			detail.TotalMarks += q.Marks
		}
		writeJSON(w, http.StatusCreated, detail)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewQuizService(client.New(testConfig(srv.URL), nil)), &createCalls
}

func TestListQuizzes(t *testing.T) {
	svc, _ := newQuizServiceFixture(t)
	quizzes, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(quizzes) != 2 || quizzes[0].Title != "Go Basics" {
		t.Fatalf("unexpected catalog %+v", quizzes)
	}
}

func TestImportRejectsMalformedJSON(t *testing.T) {
	svc, createCalls := newQuizServiceFixture(t)
	for _, input := range []string{
		"not json at all",
		`{"title": "x", "unknown_field": 1}`,
		`{"title": "x", "duration": "ten"}`,
	} {
		if _, err := svc.Import(context.Background(), strings.NewReader(input)); !apierr.IsValidation(err) {
			t.Errorf("input %q: expected validation error, got %v", input, err)
		}
	}
	if n := createCalls.Load(); n != 0 {
		t.Fatalf("malformed files must not reach the server, got %d calls", n)
	}
}

func TestImportReportsFieldErrors(t *testing.T) {
	svc, createCalls := newQuizServiceFixture(t)
	file := `{
		"title": "",
		"duration": 0,
		"questions": [
			{"text": "q1", "option_a": "a", "option_b": "b", "option_c": "c", "option_d": "d", "correct": "E", "marks": 2}
		]
	}`
	_, err := svc.Import(context.Background(), strings.NewReader(file))
	var verr *apierr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Fields) != 3 {
		t.Fatalf("expected title, duration and correct-option violations, got %+v", verr.Fields)
	}
	if n := createCalls.Load(); n != 0 {
		t.Fatalf("invalid files must not reach the server, got %d calls", n)
	}
}

func TestImportCreatesQuiz(t *testing.T) {
	svc, createCalls := newQuizServiceFixture(t)
	quiz, err := svc.Import(context.Background(), strings.NewReader(validQuizFile))
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if quiz.ID != 9 || quiz.Title != "Concurrency Patterns" {
		t.Fatalf("unexpected created quiz %+v", quiz)
	}
	if !quiz.NegativeMarking || quiz.TotalMarks != 5 {
		t.Fatalf("quiz settings lost in mapping: %+v", quiz)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected both questions, got %d", len(quiz.Questions))
	}
	if n := createCalls.Load(); n != 1 {
		t.Fatalf("expected one create call, got %d", n)
	}
}

func TestGetOrdersQuestions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/quiz/5", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.QuizDetailDTO{
			ID: 5, Title: "Shuffled", Duration: 5,
			Questions: []dto.QuestionDTO{
				{ID: 3, Text: "third", Order: 3},
				{ID: 1, Text: "first", Order: 1},
				{ID: 2, Text: "second", Order: 2},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := NewQuizService(client.New(testConfig(srv.URL), nil))
	quiz, err := svc.Get(context.Background(), 5)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	for i, want := range []string{"first", "second", "third"} {
		if quiz.Questions[i].Text != want {
			t.Fatalf("question %d = %q, want %q", i, quiz.Questions[i].Text, want)
		}
	}
}
