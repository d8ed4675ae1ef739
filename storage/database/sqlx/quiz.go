package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/quiz"
)

var questionColumns = []string{
	"id", "quiz_id", "question_text", "option_a", "option_b", "option_c", "option_d", "correct_option", "marks",
}

type quizRepository struct {
	base
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(exec core.DBExecutor) *quizRepository {
	return &quizRepository{base{exec: exec}}
}

func (repo quizRepository) selectQuizzes() sq.SelectBuilder {
	return psql.
		Select(
			"q.id", "q.title", "q.description", "q.teacher_id", "q.time_limit_minutes", "q.deadline",
			"q.is_active", "q.created_at", fullName("t")+" AS teacher_name",
			"(SELECT COUNT(*) FROM question qn WHERE qn.quiz_id = q.id) AS total_questions",
			"(SELECT COALESCE(SUM(qn.marks), 0) FROM question qn WHERE qn.quiz_id = q.id) AS total_marks",
		).
		From("quiz q").
		Join("users t ON t.id = q.teacher_id")
}

func (repo quizRepository) CreateQuiz(ctx context.Context, q quiz.Quiz, exec ...core.DBExecutor) (quiz.Quiz, error) {
	qb := psql.Insert("quiz").
		Columns("title", "description", "teacher_id", "time_limit_minutes", "deadline", "is_active", "created_at").
		Values(q.Title, q.Description, q.TeacherID, q.TimeLimitMinutes, q.Deadline.UTC(), q.IsActive, q.CreatedAt.UTC()).
		Suffix("RETURNING id")

	var id int64
	if err := repo.get(ctx, exec, &id, qb); err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return repo.GetQuiz(ctx, id, exec...)
}

func (repo quizRepository) GetQuiz(ctx context.Context, id int64, exec ...core.DBExecutor) (quiz.Quiz, error) {
	var q quiz.Quiz
	if err := repo.get(ctx, exec, &q, repo.selectQuizzes().Where(sq.Eq{"q.id": id})); err != nil {
		return quiz.Quiz{}, trapNoRowsErr(err, quiz.ErrNotFound, "getting quiz")
	}
	return q, nil
}

func (repo quizRepository) QueryQuizzes(ctx context.Context, filter quiz.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]quiz.Quiz, error) {
	qb := repo.selectQuizzes()
	if len(filter.IDs) > 0 {
		qb = qb.Where(sq.Eq{"q.id": filter.IDs})
	}
	if len(filter.TeacherIDs) > 0 {
		qb = qb.Where(sq.Eq{"q.teacher_id": filter.TeacherIDs})
	}
	if !filter.OpenAt.IsZero() {
		qb = qb.Where(sq.Eq{"q.is_active": true}).Where(sq.Gt{"q.deadline": filter.OpenAt.UTC()})
	}

	quizzes := make([]quiz.Quiz, 0)
	if err := repo.selekt(ctx, exec, &quizzes, qb.OrderBy(orderBy("q", ordering)...)); err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}
	return quizzes, nil
}

func (repo quizRepository) UpdateQuiz(ctx context.Context, q quiz.Quiz, exec ...core.DBExecutor) (quiz.Quiz, error) {
	qb := psql.Update("quiz").
		SetMap(map[string]interface{}{
			"title":              q.Title,
			"description":        q.Description,
			"time_limit_minutes": q.TimeLimitMinutes,
			"deadline":           q.Deadline.UTC(),
			"is_active":          q.IsActive,
		}).
		Where(sq.Eq{"id": q.ID})

	res, err := repo.exek(ctx, exec, qb)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "updating quiz")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	return repo.GetQuiz(ctx, q.ID, exec...)
}

func (repo quizRepository) CreateQuestion(ctx context.Context, qn quiz.Question, exec ...core.DBExecutor) (quiz.Question, error) {
	qb := psql.Insert("question").
		Columns(questionColumns[1:]...).
		Values(qn.QuizID, qn.QuestionText, qn.OptionA, qn.OptionB, qn.OptionC, qn.OptionD, qn.CorrectOption, qn.Marks).
		Suffix("RETURNING *")

	var created quiz.Question
	if err := repo.get(ctx, exec, &created, qb); err != nil {
		return quiz.Question{}, errors.Wrap(err, "inserting question")
	}
	return created, nil
}

func (repo quizRepository) QueryQuestions(ctx context.Context, quizID int64, exec ...core.DBExecutor) ([]quiz.Question, error) {
	questions := make([]quiz.Question, 0)
	qb := psql.Select(questionColumns...).From("question").Where(sq.Eq{"quiz_id": quizID}).OrderBy("id")
	if err := repo.selekt(ctx, exec, &questions, qb); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	return questions, nil
}
