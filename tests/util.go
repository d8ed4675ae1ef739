package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/attempt"
	"github.com/trezcool/mathinsight/core/quiz"
	"github.com/trezcool/mathinsight/core/report"
	"github.com/trezcool/mathinsight/core/roster"
	"github.com/trezcool/mathinsight/core/user"
	emailsvc "github.com/trezcool/mathinsight/services/email"
	logsvc "github.com/trezcool/mathinsight/services/logger"
	dummydb "github.com/trezcool/mathinsight/storage/database/dummy"
)

// NewConfig returns the configuration used by tests.
func NewConfig() *core.Config {
	return &core.Config{
		Env:                       "TEST",
		TestMode:                  true,
		AppName:                   "MathInsight",
		WorkDir:                   ".",
		SecretKey:                 "test-secret-key",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          "noreply@mathinsight.test",
		DefaultFromName:           "MathInsight",
		PasswordResetTimeoutDelta: time.Hour,
		Database: core.DatabaseConfig{
			Engine: "memory",
		},
		Server: core.ServerConfig{
			Host:                      "localhost",
			Port:                      "8000",
			DisableReqLogs:            true,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
	}
}

// NewLogger returns a logger that reports nowhere.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

// NewValidator returns a validator with every custom tag and translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	quiz.InitValidators(validate, translator)
	return validate, translator
}

// Env wires every service on an in-memory store.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *dummydb.DB
	Tx         core.Transactor
	UserRepo   user.Repository
	QuizRepo   quiz.Repository
	Attempts   attempt.Repository
	UserSvc    *user.Service
	RosterSvc  *roster.Service
	QuizSvc    *quiz.Service
	AttemptSvc *attempt.Service
	ReportSvc  *report.Service
}

func NewEnv(t *testing.T) *Env {
	conf := NewConfig()
	logger := NewLogger(conf)
	core.ParseEmailTemplates(logger, true)

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	emailsvc.ResetSentMessages()

	env := &Env{
		Conf:     conf,
		Logger:   logger,
		DB:       db,
		Tx:       dummydb.NewTransactor(db),
		UserRepo: dummydb.NewUserRepository(db),
		QuizRepo: dummydb.NewQuizRepository(db),
		Attempts: dummydb.NewAttemptRepository(db),
	}
	env.UserSvc = user.NewService(conf, env.UserRepo, emailsvc.NewConsoleServiceMock(conf, logger), logger)
	env.RosterSvc = roster.NewService(env.Tx, dummydb.NewStudentRepository(db), env.UserSvc)
	env.QuizSvc = quiz.NewService(env.QuizRepo)
	env.AttemptSvc = attempt.NewService(env.Tx, env.Attempts, env.QuizSvc, env.RosterSvc)
	env.ReportSvc = report.NewService(env.RosterSvc, env.QuizSvc, env.AttemptSvc)
	return env
}

func CreateUser(t *testing.T, repo user.Repository, role user.Role, email, pwd string, names ...string) user.User {
	now := time.Now().UTC()
	usr := user.User{
		Username:  email,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(names) > 0 {
		usr.FirstName = names[0]
	}
	if len(names) > 1 {
		usr.LastName = names[1]
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (env *Env) CreateTeacher(t *testing.T, email string) user.User {
	return CreateUser(t, env.UserRepo, user.RoleTeacher, email, "Pass1234!", "Test", "Teacher")
}

// CreateStudent enrolls a student for teacher and returns it with its parent account.
func (env *Env) CreateStudent(t *testing.T, teacher user.User, name, parentEmail string) (roster.Student, user.User) {
	s, err := env.RosterSvc.Create(context.Background(), teacher, roster.NewStudent{
		Name:        name,
		ClassName:   "5A",
		ParentEmail: parentEmail,
		ParentName:  "Parent of " + name,
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	parent, err := env.UserSvc.GetByID(context.Background(), s.ParentID)
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return s, parent
}

// CreateQuiz stores a quiz of teacher with one question per marks value. Every question's correct option is A.
func (env *Env) CreateQuiz(t *testing.T, teacher user.User, title string, deadline time.Time, active bool, marks ...int) (quiz.Quiz, []quiz.Question) {
	ctx := context.Background()
	q, err := env.QuizRepo.CreateQuiz(ctx, quiz.Quiz{
		Title:            title,
		TeacherID:        teacher.ID,
		TimeLimitMinutes: 30,
		Deadline:         deadline.UTC(),
		IsActive:         active,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createQuiz() failed: %v", err)
	}

	questions := make([]quiz.Question, 0, len(marks))
	for _, m := range marks {
		qn, err := env.QuizRepo.CreateQuestion(ctx, quiz.Question{
			QuizID:        q.ID,
			QuestionText:  "What is 2 + 2?",
			OptionA:       "4",
			OptionB:       "3",
			OptionC:       "5",
			OptionD:       "22",
			CorrectOption: quiz.OptionA,
			Marks:         m,
		})
		if err != nil {
			t.Fatalf("createQuiz() failed: %v", err)
		}
		questions = append(questions, qn)
	}
	if q, err = env.QuizRepo.GetQuiz(ctx, q.ID); err != nil {
		t.Fatalf("createQuiz() failed: %v", err)
	}
	return q, questions
}

// CreateAttempt stores an attempt directly, bypassing the start checks.
func (env *Env) CreateAttempt(t *testing.T, q quiz.Quiz, s roster.Student, score int, completed bool, at time.Time) attempt.Attempt {
	ctx := context.Background()
	a, err := env.Attempts.CreateAttempt(ctx, attempt.Attempt{
		QuizID:      q.ID,
		StudentID:   s.ID,
		ParentID:    s.ParentID,
		TotalMarks:  q.TotalMarks,
		AttemptedAt: at.UTC(),
	})
	if err != nil {
		t.Fatalf("createAttempt() failed: %v", err)
	}
	if completed {
		a.Score = score
		a.IsCompleted = true
		a.CompletedAt.SetValid(at.UTC().Add(10 * time.Minute))
		if a, err = env.Attempts.UpdateAttempt(ctx, a); err != nil {
			t.Fatalf("createAttempt() failed: %v", err)
		}
	}
	return a
}
