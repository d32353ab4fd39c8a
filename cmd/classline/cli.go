package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ntkhang/classline/config"
	"github.com/ntkhang/classline/internal/apierr"
	"github.com/ntkhang/classline/internal/client"
	"github.com/ntkhang/classline/internal/model"
	"github.com/ntkhang/classline/internal/service"
	"github.com/rs/zerolog/log"
)

type cliApp struct {
	cfg       *config.Config
	api       *client.Client
	sessions  service.SessionService
	quizzes   service.QuizService
	campus    service.CampusService
	interview service.InterviewService
	in        *bufio.Scanner
}

func newCLIApp(
	cfg *config.Config,
	api *client.Client,
	sessions service.SessionService,
	quizzes service.QuizService,
	campus service.CampusService,
	interview service.InterviewService,
) *cliApp {
	return &cliApp{
		cfg:       cfg,
		api:       api,
		sessions:  sessions,
		quizzes:   quizzes,
		campus:    campus,
		interview: interview,
		in:        bufio.NewScanner(os.Stdin),
	}
}

const usage = `usage: classline <command> [args]

  login <email> <password>                 sign in as a student
  admin-login <email> <password> [key]     sign in as an admin
  register <email> <password> <name...>    create a student account
  logout                                   sign out
  whoami                                   show the current user
  quizzes                                  list available quizzes
  take <quiz-id>                           take a quiz interactively
  import <file.json>                       (admin) create a quiz from a JSON file
  courses                                  list enrolled courses
  notifications                            list notifications
  read <notification-id>                   mark a notification as read
  interview                                practice-interview chat
`

func (a *cliApp) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	cmd, rest := args[0], args[1:]

	// Restore a persisted session before anything that needs one.
	switch cmd {
	case "login", "admin-login", "register":
	default:
		if err := a.sessions.Bootstrap(ctx); err != nil {
			log.Warn().Err(err).Msg("Could not validate stored session")
		}
	}

	switch cmd {
	case "login":
		return a.cmdLogin(ctx, rest)
	case "admin-login":
		return a.cmdAdminLogin(ctx, rest)
	case "register":
		return a.cmdRegister(ctx, rest)
	case "logout":
		a.sessions.Logout()
		fmt.Println("Logged out.")
		return 0
	case "whoami":
		return a.cmdWhoami()
	case "quizzes":
		return a.cmdQuizzes(ctx)
	case "take":
		return a.cmdTake(ctx, rest)
	case "import":
		return a.cmdImport(ctx, rest)
	case "courses":
		return a.cmdCourses(ctx)
	case "notifications":
		return a.cmdNotifications(ctx)
	case "read":
		return a.cmdRead(ctx, rest)
	case "interview":
		return a.cmdInterview(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s", cmd, usage)
		return 2
	}
}

func fail(err error) int {
	switch {
	case apierr.IsAuth(err):
		fmt.Fprintf(os.Stderr, "Not signed in (or session expired): %v\n", err)
	case apierr.IsNetwork(err):
		fmt.Fprintf(os.Stderr, "Server unreachable: %v\n", err)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return 1
}

func (a *cliApp) cmdLogin(ctx context.Context, args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: classline login <email> <password>")
		return 2
	}
	usr, err := a.sessions.Login(ctx, args[0], args[1])
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Signed in as %s <%s>\n", usr.Name, usr.Email)
	return 0
}

func (a *cliApp) cmdAdminLogin(ctx context.Context, args []string) int {
	if len(args) != 2 && len(args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: classline admin-login <email> <password> [admin-key]")
		return 2
	}
	key := a.cfg.AdminKey
	if len(args) == 3 {
		key = args[2]
	}
	usr, err := a.sessions.AdminLogin(ctx, args[0], args[1], key)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Signed in as %s <%s> (admin)\n", usr.Name, usr.Email)
	return 0
}

func (a *cliApp) cmdRegister(ctx context.Context, args []string) int {
	if len(args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: classline register <email> <password> <name...>")
		return 2
	}
	usr, err := a.sessions.Register(ctx, args[0], args[1], strings.Join(args[2:], " "))
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Welcome, %s! You are signed in.\n", usr.Name)
	return 0
}

func (a *cliApp) cmdWhoami() int {
	usr := a.sessions.CurrentUser()
	if usr == nil {
		fmt.Println("Not signed in.")
		return 1
	}
	fmt.Printf("%s <%s> role=%s active=%v\n", usr.Name, usr.Email, usr.Role, usr.IsActive)
	return 0
}

func (a *cliApp) cmdQuizzes(ctx context.Context) int {
	quizzes, err := a.quizzes.List(ctx)
	if err != nil {
		return fail(err)
	}
	if len(quizzes) == 0 {
		fmt.Println("No quizzes available.")
		return 0
	}
	for _, q := range quizzes {
		fmt.Printf("%3d  %-30s %2d min  %d questions\n", q.ID, q.Title, q.Duration, q.QuestionCount)
	}
	return 0
}

func (a *cliApp) cmdImport(ctx context.Context, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: classline import <file.json>")
		return 2
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fail(err)
	}
	defer f.Close()
	quiz, err := a.quizzes.Import(ctx, f)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("Created quiz %d %q with %d questions.\n", quiz.ID, quiz.Title, len(quiz.Questions))
	return 0
}

func (a *cliApp) cmdCourses(ctx context.Context) int {
	courses, err := a.campus.Courses(ctx)
	if err != nil {
		return fail(err)
	}
	for _, c := range courses {
		fmt.Printf("%-8s %-30s %s\n", c.Code, c.Title, c.Instructor)
	}
	return 0
}

func (a *cliApp) cmdNotifications(ctx context.Context) int {
	notes, err := a.campus.Notifications(ctx)
	if err != nil {
		return fail(err)
	}
	for _, n := range notes {
		marker := " "
		if !n.Read {
			marker = "*"
		}
		fmt.Printf("%s %3d  %s\n", marker, n.ID, n.Title)
	}
	return 0
}

func (a *cliApp) cmdRead(ctx context.Context, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: classline read <notification-id>")
		return 2
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid notification id")
		return 2
	}
	if err := a.campus.MarkNotificationRead(ctx, uint(id)); err != nil {
		return fail(err)
	}
	fmt.Println("Marked as read.")
	return 0
}

func (a *cliApp) cmdInterview(ctx context.Context) int {
	fmt.Println("Practice interview. Type your answers; empty line to quit.")
	var history []model.InterviewTurn
	for {
		fmt.Print("> ")
		if !a.in.Scan() {
			return 0
		}
		msg := strings.TrimSpace(a.in.Text())
		if msg == "" {
			return 0
		}
		reply, err := a.interview.Ask(ctx, history, msg)
		if err != nil {
			return fail(err)
		}
		fmt.Printf("interviewer: %s\n", reply)
		history = append(history,
			model.InterviewTurn{Role: "user", Content: msg},
			model.InterviewTurn{Role: "interviewer", Content: reply},
		)
	}
}

func (a *cliApp) cmdTake(ctx context.Context, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: classline take <quiz-id>")
		return 2
	}
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid quiz id")
		return 2
	}

	ctrl := service.NewAttemptController(a.api)
	defer ctrl.Close()

	quiz, err := ctrl.Load(ctx, uint(id))
	if err != nil {
		return fail(err)
	}
	if ctrl.Phase() == model.PhaseSubmitted {
		fmt.Printf("%q was already attempted.\n", quiz.Title)
		printResult(ctrl.Result())
		return 0
	}

	fmt.Printf("%s: %d questions, %d minutes. Start? [y/N] ", quiz.Title, len(quiz.Questions), quiz.Duration)
	if !a.confirm() {
		return 0
	}
	if err := ctrl.Start(ctx); err != nil {
		return fail(err)
	}

	for {
		// The countdown may have submitted for us.
		select {
		case out := <-ctrl.Finished():
			if out.Err != nil {
				fmt.Fprintf(os.Stderr, "Time ran out and the submission failed: %v\n", out.Err)
				return 1
			}
			fmt.Println("\nTime is up, answers were submitted automatically.")
			printResult(out.Result)
			return 0
		default:
		}
		if ctrl.Phase() != model.PhaseInProgress {
			break
		}

		idx := ctrl.CurrentIndex()
		q := ctrl.CurrentQuestion()
		answers := ctrl.Answers()
		fmt.Printf("\n[%d/%d] %s  (%ds left, %d answered)\n", idx+1, len(quiz.Questions), q.Text, ctrl.Remaining(), len(answers))
		for _, letter := range []string{model.OptionA, model.OptionB, model.OptionC, model.OptionD} {
			marker := " "
			if answers[q.ID] == letter {
				marker = ">"
			}
			fmt.Printf(" %s %s) %s\n", marker, letter, q.OptionText(letter))
		}
		fmt.Print("a/b/c/d answer, n(ext), p(rev), <num> jump, s(ubmit), q(uit): ")
		if !a.in.Scan() {
			return 0
		}
		input := strings.ToLower(strings.TrimSpace(a.in.Text()))
		switch input {
		case "a", "b", "c", "d":
			if err := ctrl.SelectAnswer(q.ID, strings.ToUpper(input)); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		case "n":
			ctrl.Navigate(idx + 1)
		case "p":
			ctrl.Navigate(idx - 1)
		case "s":
			fmt.Print("Submit now? [y/N] ")
			if !a.confirm() {
				continue
			}
			result, err := ctrl.Submit(ctx)
			if err != nil {
				if errors.Is(err, service.ErrAttemptFinished) {
					// The timeout beat us to it; its outcome arrives on Finished.
					continue
				}
				fmt.Fprintf(os.Stderr, "Submission failed, your answers are kept: %v\n", err)
				continue
			}
			printResult(result)
			return 0
		case "q":
			fmt.Println("Leaving the attempt; the timer keeps running server-side.")
			return 0
		default:
			if n, err := strconv.Atoi(input); err == nil {
				ctrl.Navigate(n - 1)
			}
		}
	}
	return 0
}

func (a *cliApp) confirm() bool {
	if !a.in.Scan() {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(a.in.Text()), "y")
}

func printResult(res *model.AttemptResult) {
	if res == nil {
		return
	}
	fmt.Printf("Score: %.2f / %.2f\n", res.Score, res.TotalMarks)
}
