package tests

import (
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mathinsight/core/attempt"
	"github.com/trezcool/mathinsight/core/quiz"
)

func Test_attemptApi(t *testing.T) {
	a := setup(t)
	teacher := a.CreateTeacher(t, "teacher@test.cd")
	other := a.CreateTeacher(t, "other@test.cd")
	kid, parent := a.CreateStudent(t, teacher, "Kid", "parent@test.cd")
	sibling, _ := a.CreateStudent(t, teacher, "Sibling", "parent@test.cd")
	stranger, _ := a.CreateStudent(t, teacher, "Stranger", "stranger@test.cd")

	future := time.Now().Add(48 * time.Hour)
	open, questions := a.CreateQuiz(t, teacher, "Addition", future, true, 1, 2)
	inactive, _ := a.CreateQuiz(t, teacher, "Draft", future, false, 1)
	overdue, _ := a.CreateQuiz(t, teacher, "Overdue", time.Now().Add(-time.Hour), true, 1)
	foreign, foreignQns := a.CreateQuiz(t, other, "Foreign", future, true, 1)

	pToken := a.token(t, parent)
	tToken := a.token(t, teacher)
	quizPath := func(q quiz.Quiz, action string) string {
		return "/api/quizzes/" + strconv.FormatInt(q.ID, 10) + "/" + action
	}
	studentBody := func(id int64) []byte {
		return []byte(fmt.Sprintf(`{"student_id": %d}`, id))
	}
	errBody := func(msg string) []byte {
		return marchallObj(t, httpErr{Error: msg})
	}
	studentIDRequired := []byte(`{"student_id": "student_id is required."}`)

	t.Run("available quizzes", func(t *testing.T) {
		tests := []httpTest{
			{name: "teachers may not browse", path: "/api/parent/quizzes", token: tToken, wantCode: http.StatusForbidden},
			{name: "open quizzes of the children's teachers", path: "/api/parent/quizzes", token: pToken, wantData: marchallList(t, open)},
		}
		a.run(t, tests)
	})

	t.Run("start", func(t *testing.T) {
		tests := []httpTest{
			{
				name: "teachers may not start", method: http.MethodPost, path: quizPath(open, "attempt"), token: tToken,
				body: studentBody(kid.ID), wantCode: http.StatusForbidden, wantData: errBody("Permission denied."),
			},
			{
				name: "unknown quiz", method: http.MethodPost, path: "/api/quizzes/9999/attempt", token: pToken,
				body: studentBody(kid.ID), wantCode: http.StatusNotFound, wantData: errBody("Quiz not found."),
			},
			{
				name: "inactive quiz", method: http.MethodPost, path: quizPath(inactive, "attempt"), token: pToken,
				body: studentBody(kid.ID), wantCode: http.StatusBadRequest, wantData: errBody("This quiz is not currently active."),
			},
			{
				name: "deadline passed", method: http.MethodPost, path: quizPath(overdue, "attempt"), token: pToken,
				body: studentBody(kid.ID), wantCode: http.StatusBadRequest, wantData: errBody("This quiz has passed its deadline."),
			},
			{
				name: "student_id missing", method: http.MethodPost, path: quizPath(open, "attempt"), token: pToken,
				body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: studentIDRequired,
			},
			{
				name: "not my child", method: http.MethodPost, path: quizPath(open, "attempt"), token: pToken,
				body: studentBody(stranger.ID), wantCode: http.StatusNotFound, wantData: errBody("Student not found or not your child."),
			},
			{
				name: "quiz of another teacher", method: http.MethodPost, path: quizPath(foreign, "attempt"), token: pToken,
				body: studentBody(kid.ID), wantCode: http.StatusBadRequest, wantData: errBody("This quiz is not available for this student."),
			},
		}
		a.run(t, tests)

		rec := a.do(http.MethodPost, quizPath(open, "attempt"), pToken, studentBody(kid.ID))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var att attempt.Attempt
		unmarchall(t, rec, &att)
		assert.Equal(t, open.ID, att.QuizID)
		assert.Equal(t, kid.ID, att.StudentID)
		assert.Equal(t, parent.ID, att.ParentID)
		assert.Equal(t, 3, att.TotalMarks)
		assert.False(t, att.IsCompleted)
		assert.Equal(t, "Addition", att.QuizTitle)

		rec = a.do(http.MethodPost, quizPath(open, "attempt"), pToken, studentBody(kid.ID))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: errBody("This student has already attempted this quiz."),
		}, rec)
	})

	t.Run("submit", func(t *testing.T) {
		answers := fmt.Sprintf(`[{"question_id": %d, "selected_option": "A"}, {"question_id": %d, "selected_option": "B"}]`,
			questions[0].ID, questions[1].ID)
		tests := []httpTest{
			{
				name: "no answers", method: http.MethodPost, path: quizPath(open, "submit"), token: pToken,
				body: studentBody(kid.ID), wantCode: http.StatusBadRequest, wantData: []byte(`{"answers": "this field is required"}`),
			},
			{
				name: "bad option", method: http.MethodPost, path: quizPath(open, "submit"), token: pToken,
				body:     []byte(fmt.Sprintf(`{"student_id": %d, "answers": [{"question_id": %d, "selected_option": "Z"}]}`, kid.ID, questions[0].ID)),
				wantCode: http.StatusBadRequest,
			},
			{
				name: "student_id missing", method: http.MethodPost, path: quizPath(open, "submit"), token: pToken,
				body: []byte(`{"answers": ` + answers + `}`), wantCode: http.StatusBadRequest, wantData: studentIDRequired,
			},
			{
				name: "not started", method: http.MethodPost, path: quizPath(open, "submit"), token: pToken,
				body:     []byte(fmt.Sprintf(`{"student_id": %d, "answers": %s}`, sibling.ID, answers)),
				wantCode: http.StatusNotFound, wantData: errBody("Quiz attempt not found. Please start the quiz first."),
			},
			{
				name: "question of another quiz", method: http.MethodPost, path: quizPath(open, "submit"), token: pToken,
				body: []byte(fmt.Sprintf(
					`{"student_id": %d, "answers": [{"question_id": %d, "selected_option": "A"}]}`, kid.ID, foreignQns[0].ID,
				)),
				wantCode: http.StatusBadRequest, wantData: errBody(fmt.Sprintf("Question %d not found in this quiz.", foreignQns[0].ID)),
			},
		}
		a.run(t, tests)

		rec := a.do(http.MethodPost, quizPath(open, "submit"), pToken,
			[]byte(fmt.Sprintf(`{"student_id": %d, "answers": %s}`, kid.ID, answers)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res attempt.Result
		unmarchall(t, rec, &res)
		assert.Equal(t, 1, res.Score)
		assert.Equal(t, 3, res.TotalMarks)
		assert.Equal(t, 33.33, res.Percentage)
		assert.Equal(t, "Kid", res.StudentName)
		assert.True(t, res.CompletedAt.Valid)
		require.Len(t, res.Answers, 2)
		assert.True(t, res.Answers[0].IsCorrect)
		assert.False(t, res.Answers[1].IsCorrect)
		assert.Equal(t, quiz.OptionA, res.Answers[1].CorrectOption)

		rec = a.do(http.MethodPost, quizPath(open, "submit"), pToken,
			[]byte(fmt.Sprintf(`{"student_id": %d, "answers": %s}`, kid.ID, answers)))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: errBody("This quiz has already been submitted."),
		}, rec)
	})

	t.Run("results", func(t *testing.T) {
		resultsPath := quizPath(open, "results")
		tests := []httpTest{
			{name: "other teacher", path: resultsPath, token: a.token(t, other), wantCode: http.StatusForbidden, wantData: errBody("Permission denied.")},
			{name: "parent: student_id missing", path: resultsPath, token: pToken, wantCode: http.StatusBadRequest, wantData: studentIDRequired},
			{
				name: "parent: malformed student_id", path: resultsPath + "?student_id=abc", token: pToken,
				wantCode: http.StatusBadRequest, wantData: []byte(`{"student_id": "student_id must be an integer"}`),
			},
			{
				name: "parent: not attempted", path: resultsPath + "?student_id=" + strconv.FormatInt(sibling.ID, 10), token: pToken,
				wantCode: http.StatusNotFound, wantData: errBody("Quiz results not found."),
			},
			{
				name: "parent: not my child", path: resultsPath + "?student_id=" + strconv.FormatInt(stranger.ID, 10), token: pToken,
				wantCode: http.StatusNotFound, wantData: errBody("Student not found or not your child."),
			},
		}
		a.run(t, tests)

		rec := a.do(http.MethodGet, resultsPath, tToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var results []attempt.Result
		unmarchall(t, rec, &results)
		require.Len(t, results, 1)
		assert.Equal(t, 1, results[0].Score)
		assert.Len(t, results[0].Answers, 2)

		rec = a.do(http.MethodGet, resultsPath+"?student_id="+strconv.FormatInt(kid.ID, 10), pToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res attempt.Result
		unmarchall(t, rec, &res)
		assert.Equal(t, results[0].AttemptID, res.AttemptID)
		assert.Equal(t, 33.33, res.Percentage)

		rec = a.do(http.MethodGet, quizPath(inactive, "results"), tToken)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)
	})
}
