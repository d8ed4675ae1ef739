package sqlxrepos_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/attempt"
	"github.com/trezcool/mathinsight/core/quiz"
	"github.com/trezcool/mathinsight/core/report"
	"github.com/trezcool/mathinsight/core/roster"
	"github.com/trezcool/mathinsight/core/user"
	emailsvc "github.com/trezcool/mathinsight/services/email"
	"github.com/trezcool/mathinsight/storage/database"
	sqlxrepos "github.com/trezcool/mathinsight/storage/database/sqlx"
	"github.com/trezcool/mathinsight/tests"
)

// openTestDB connects to MATHINSIGHT_TEST_DSN, migrates it and empties every table.
// Set MATHINSIGHT_INTEGRATION=1 to run.
func openTestDB(t *testing.T) *sqlx.DB {
	if os.Getenv("MATHINSIGHT_INTEGRATION") != "1" {
		t.Skip("set MATHINSIGHT_INTEGRATION=1 and MATHINSIGHT_TEST_DSN to run against PostgreSQL")
	}
	driver := os.Getenv("MATHINSIGHT_TEST_DRIVER")
	if driver == "" {
		driver = "pgx"
	}
	db, err := sqlx.Open(driver, os.Getenv("MATHINSIGHT_TEST_DSN"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db.DB, "up"))
	_, err = db.Exec("TRUNCATE users, student, quiz, question, quiz_attempt, quiz_answer RESTART IDENTITY CASCADE")
	require.NoError(t, err)
	return db
}

type services struct {
	usr     *user.Service
	roster  *roster.Service
	quiz    *quiz.Service
	attempt *attempt.Service
	report  *report.Service
	users   user.Repository
}

func newServices(db *sqlx.DB) services {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	tx := database.NewTransactor(db)

	svcs := services{users: sqlxrepos.NewUserRepository(db)}
	svcs.usr = user.NewService(conf, svcs.users, emailsvc.NewConsoleServiceMock(conf, logger), logger)
	svcs.roster = roster.NewService(tx, sqlxrepos.NewStudentRepository(db), svcs.usr)
	svcs.quiz = quiz.NewService(sqlxrepos.NewQuizRepository(db))
	svcs.attempt = attempt.NewService(tx, sqlxrepos.NewAttemptRepository(db), svcs.quiz, svcs.roster)
	svcs.report = report.NewService(svcs.roster, svcs.quiz, svcs.attempt)
	return svcs
}

func TestRepositories(t *testing.T) {
	db := openTestDB(t)
	svc := newServices(db)
	ctx := context.Background()

	teacher, err := svc.usr.RegisterTeacher(ctx, user.NewTeacher{Email: "teacher@test.cd", Password: "Pass1234!", FirstName: "Ada"})
	require.NoError(t, err)
	_, err = svc.users.CreateUser(ctx, user.User{Email: "teacher@test.cd", Username: "x", Role: user.RoleTeacher})
	assert.Equal(t, user.ErrEmailExists, errors.Cause(err))
	assert.Equal(t, user.ErrEmailExists, svc.users.CheckEmailUniqueness(ctx, "TEACHER@test.cd", nil))
	assert.NoError(t, svc.users.CheckEmailUniqueness(ctx, "teacher@test.cd", []user.User{teacher}))

	kid, err := svc.roster.Create(ctx, teacher, roster.NewStudent{Name: "Kid", ClassName: "5A", ParentEmail: "parent@test.cd"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", kid.TeacherName)
	sibling, err := svc.roster.Create(ctx, teacher, roster.NewStudent{Name: "Sibling", ClassName: "3B", ParentEmail: "Parent@test.cd"})
	require.NoError(t, err)
	assert.Equal(t, kid.ParentID, sibling.ParentID)
	parent, err := svc.usr.GetByID(ctx, kid.ParentID)
	require.NoError(t, err)

	active := true
	q, err := svc.quiz.Create(ctx, teacher, quiz.NewQuiz{
		Title: "Addition", TimeLimitMinutes: 10, IsActive: &active,
		Deadline: time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	var questions []quiz.Question
	for _, marks := range []int{1, 2} {
		m := marks
		qn, err := svc.quiz.AddQuestion(ctx, teacher, q.ID, quiz.NewQuestion{
			QuestionText: "2 + 2?", OptionA: "4", OptionB: "3", OptionC: "5", OptionD: "22",
			CorrectOption: quiz.OptionA, Marks: &m,
		})
		require.NoError(t, err)
		questions = append(questions, qn)
	}

	t.Run("quizzes", func(t *testing.T) {
		got, err := svc.quiz.GetOwned(ctx, teacher, q.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.TotalQuestions)
		assert.Equal(t, 3, got.TotalMarks)
		assert.Equal(t, "Ada", got.TeacherName)
		assert.Len(t, got.Questions, 2)

		open, err := svc.quiz.ListOpen(ctx, []int64{teacher.ID})
		require.NoError(t, err)
		require.Len(t, open, 1)

		_, err = svc.quiz.Get(ctx, q.ID+100)
		assert.Equal(t, quiz.ErrNotFound, errors.Cause(err))
	})

	t.Run("attempts", func(t *testing.T) {
		a, err := svc.attempt.Start(ctx, parent, q.ID, attempt.StartRequest{StudentID: kid.ID})
		require.NoError(t, err)
		assert.Equal(t, 3, a.TotalMarks)
		_, err = svc.attempt.Start(ctx, parent, q.ID, attempt.StartRequest{StudentID: kid.ID})
		assert.Equal(t, attempt.ErrAttemptExists, errors.Cause(err))

		res, err := svc.attempt.Submit(ctx, parent, q.ID, attempt.Submission{
			StudentID: kid.ID,
			Answers: []attempt.AnswerInput{
				{QuestionID: questions[0].ID, SelectedOption: quiz.OptionB},
				{QuestionID: questions[1].ID, SelectedOption: quiz.OptionA},
				{QuestionID: questions[0].ID, SelectedOption: quiz.OptionA},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Score)
		assert.Equal(t, float64(100), res.Percentage)
		assert.Len(t, res.Answers, 2)

		_, err = svc.attempt.Submit(ctx, parent, q.ID, attempt.Submission{
			StudentID: kid.ID, Answers: []attempt.AnswerInput{{QuestionID: questions[0].ID, SelectedOption: quiz.OptionA}},
		})
		assert.Equal(t, attempt.ErrAlreadySubmitted, errors.Cause(err))

		results, err := svc.attempt.TeacherResults(ctx, teacher, q.ID)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Kid", results[0].StudentName)
		assert.Equal(t, "Addition", results[0].QuizTitle)
	})

	t.Run("reports", func(t *testing.T) {
		overview, err := svc.report.ParentOverview(ctx, parent)
		require.NoError(t, err)
		assert.Equal(t, 2, overview.ChildrenCount)
		assert.Equal(t, float64(100), overview.OverallStatistics.OverallAveragePercentage)

		summaries, err := svc.report.TeacherStudents(ctx, teacher, teacher.ID)
		require.NoError(t, err)
		assert.Len(t, summaries, 2)
	})

	t.Run("transactions roll back", func(t *testing.T) {
		tx := database.NewTransactor(db)
		students := sqlxrepos.NewStudentRepository(db)
		err := tx.RunInTx(ctx, func(exec core.DBExecutor) error {
			if err := students.DeleteStudent(ctx, sibling.ID, exec); err != nil {
				return err
			}
			return errors.New("abort")
		})
		assert.EqualError(t, err, "abort")
		_, err = students.GetStudent(ctx, sibling.ID)
		assert.NoError(t, err)
	})

	t.Run("deleting the last child sweeps the parent", func(t *testing.T) {
		require.NoError(t, svc.roster.Delete(ctx, teacher, sibling.ID))
		_, err := svc.usr.GetByID(ctx, parent.ID)
		require.NoError(t, err)

		require.NoError(t, svc.roster.Delete(ctx, teacher, kid.ID))
		_, err = svc.usr.GetByID(ctx, parent.ID)
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})
}
