package quiz_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/quiz"
	"github.com/trezcool/mathinsight/core/user"
	"github.com/trezcool/mathinsight/tests"
)

func TestParseDeadline(t *testing.T) {
	want := time.Date(2030, time.March, 4, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2030-03-04T15:30", want: want},
		{in: "2030-03-04 15:30", want: want},
		{in: "2030-03-04T15:30:00", want: want},
		{in: "2030-03-04 15:30:00", want: want},
		{in: "2030-03-04T15:30:00Z", want: want},
		{in: "2030-03-04T17:30:00+02:00", want: want},
		{in: "04/03/2030 15:30", wantErr: true},
		{in: "2030-03-04", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := quiz.ParseDeadline(tt.in)
			if tt.wantErr {
				assert.Equal(t, quiz.ErrInvalidDeadline, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v; want %v", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestValidators(t *testing.T) {
	validate, _ := testutil.NewValidator()
	future := time.Now().Add(48 * time.Hour).UTC().Format("2006-01-02T15:04")
	past := time.Now().Add(-48 * time.Hour).UTC().Format("2006-01-02 15:04")

	tagOf := func(err error) string {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return ""
		}
		return verrs[0].Field() + ":" + verrs[0].Tag()
	}

	tests := []struct {
		name    string
		nq      quiz.NewQuiz
		wantTag string
	}{
		{name: "valid", nq: quiz.NewQuiz{Title: "Fractions", TimeLimitMinutes: 20, Deadline: future}},
		{name: "blank title", nq: quiz.NewQuiz{Title: "   ", TimeLimitMinutes: 20, Deadline: future}, wantTag: "title:required"},
		{name: "no time limit", nq: quiz.NewQuiz{Title: "T", Deadline: future}, wantTag: "time_limit:required"},
		{name: "bad deadline", nq: quiz.NewQuiz{Title: "T", TimeLimitMinutes: 5, Deadline: "tomorrow"}, wantTag: "deadline:deadline"},
		{name: "past deadline", nq: quiz.NewQuiz{Title: "T", TimeLimitMinutes: 5, Deadline: past}, wantTag: "deadline:future"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTag, tagOf(tt.nq.Validate(validate)))
		})
	}

	t.Run("option", func(t *testing.T) {
		nqn := quiz.NewQuestion{
			QuestionText: "2 + 2?", OptionA: "4", OptionB: "3", OptionC: "2", OptionD: "1", CorrectOption: " B ",
		}
		require.NoError(t, nqn.Validate(validate))
		assert.Equal(t, quiz.OptionB, nqn.CorrectOption)

		nqn.CorrectOption = "E"
		assert.Equal(t, "correct_option:option", tagOf(nqn.Validate(validate)))

		zero := 0
		nqn.CorrectOption = "A"
		nqn.Marks = &zero
		var verr *core.ValidationError
		require.True(t, errors.As(nqn.Validate(validate), &verr))
		assert.Equal(t, "marks", verr.Fields[0].Field)
	})
}

func TestService(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	teacher := env.CreateTeacher(t, "teacher@test.cd")
	other := env.CreateTeacher(t, "other@test.cd")
	_, parent := env.CreateStudent(t, teacher, "Kid", "parent@test.cd")

	inactive := false
	draft, err := env.QuizSvc.Create(ctx, teacher, quiz.NewQuiz{
		Title: "Draft", TimeLimitMinutes: 10, Deadline: "2099-01-01 08:00", IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, draft.IsActive)
	assert.Equal(t, time.Date(2099, time.January, 1, 8, 0, 0, 0, time.UTC), draft.Deadline)
	assert.Equal(t, "Test Teacher", draft.TeacherName)

	live, err := env.QuizSvc.Create(ctx, teacher, quiz.NewQuiz{Title: "Live", TimeLimitMinutes: 10, Deadline: "2098-01-01T08:00:00Z"})
	require.NoError(t, err)
	assert.True(t, live.IsActive)

	t.Run("questions", func(t *testing.T) {
		_, err := env.QuizSvc.AddQuestion(ctx, other, live.ID, quiz.NewQuestion{QuestionText: "?", CorrectOption: quiz.OptionA})
		assert.Equal(t, quiz.ErrNotFound, errors.Cause(err))

		three := 3
		qn1, err := env.QuizSvc.AddQuestion(ctx, teacher, live.ID, quiz.NewQuestion{
			QuestionText: "1 + 1?", OptionA: "2", OptionB: "3", OptionC: "4", OptionD: "5", CorrectOption: quiz.OptionA,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, qn1.Marks)
		_, err = env.QuizSvc.AddQuestion(ctx, teacher, live.ID, quiz.NewQuestion{
			QuestionText: "2 x 3?", OptionA: "5", OptionB: "6", OptionC: "7", OptionD: "8", CorrectOption: quiz.OptionB, Marks: &three,
		})
		require.NoError(t, err)
		_, err = env.QuizSvc.AddQuestion(ctx, teacher, draft.ID, quiz.NewQuestion{
			QuestionText: "Draft?", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d", CorrectOption: quiz.OptionD,
		})
		require.NoError(t, err)

		got, err := env.QuizSvc.GetOwned(ctx, teacher, live.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.TotalQuestions)
		assert.Equal(t, 4, got.TotalMarks)
		require.Len(t, got.Questions, 2)

		tests := []struct {
			name        string
			actor       user.User
			quizID      int64
			wantLen     int
			wantCorrect bool
		}{
			{name: "owner sees answers", actor: teacher, quizID: live.ID, wantLen: 2, wantCorrect: true},
			{name: "parent sees active quiz redacted", actor: parent, quizID: live.ID, wantLen: 2},
			{name: "parent does not see inactive quiz", actor: parent, quizID: draft.ID},
			{name: "other teacher sees nothing", actor: other, quizID: live.ID},
		}

		_, err = env.QuizSvc.Questions(ctx, teacher, 9999)
		assert.Equal(t, quiz.ErrNotFound, errors.Cause(err))

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				questions, err := env.QuizSvc.Questions(ctx, tt.actor, tt.quizID)
				require.NoError(t, err)
				require.Len(t, questions, tt.wantLen)
				for _, qn := range questions {
					assert.Equal(t, tt.wantCorrect, qn.CorrectOption != "")
				}
			})
		}
	})

	t.Run("get owned", func(t *testing.T) {
		_, err := env.QuizSvc.GetOwned(ctx, other, live.ID)
		assert.Equal(t, quiz.ErrNotFound, errors.Cause(err))
	})

	t.Run("update", func(t *testing.T) {
		title := "Live!"
		deadline := "2097-06-01 12:00"
		active := true
		_, err := env.QuizSvc.Update(ctx, other, live.ID, quiz.UpdateQuiz{Title: &title})
		assert.Equal(t, quiz.ErrNotFound, errors.Cause(err))

		updated, err := env.QuizSvc.Update(ctx, teacher, draft.ID, quiz.UpdateQuiz{Title: &title, Deadline: &deadline, IsActive: &active})
		require.NoError(t, err)
		assert.Equal(t, "Live!", updated.Title)
		assert.True(t, updated.IsActive)
		assert.Equal(t, time.Date(2097, time.June, 1, 12, 0, 0, 0, time.UTC), updated.Deadline)
		assert.Equal(t, 10, updated.TimeLimitMinutes)
		assert.Len(t, updated.Questions, 1)
	})

	t.Run("list", func(t *testing.T) {
		quizzes, err := env.QuizSvc.List(ctx, teacher, nil)
		require.NoError(t, err)
		require.Len(t, quizzes, 2)
		assert.Equal(t, live.ID, quizzes[0].ID, "newest first")

		quizzes, err = env.QuizSvc.List(ctx, teacher, []core.DBOrdering{{Field: "deadline", Ascending: true}, {Field: "password"}})
		require.NoError(t, err)
		require.Len(t, quizzes, 2)
		assert.Equal(t, draft.ID, quizzes[0].ID)

		quizzes, err = env.QuizSvc.List(ctx, other, nil)
		require.NoError(t, err)
		assert.Empty(t, quizzes)
	})

	t.Run("list open", func(t *testing.T) {
		env.CreateQuiz(t, teacher, "Due", time.Now().Add(-time.Minute), true, 1)

		quizzes, err := env.QuizSvc.ListOpen(ctx, []int64{teacher.ID})
		require.NoError(t, err)
		assert.Len(t, quizzes, 2)

		quizzes, err = env.QuizSvc.ListOpen(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, quizzes)
	})
}
