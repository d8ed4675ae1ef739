package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/attempt"
)

type attemptRepository struct {
	base
}

var _ attempt.Repository = (*attemptRepository)(nil) // interface compliance check

func NewAttemptRepository(exec core.DBExecutor) *attemptRepository {
	return &attemptRepository{base{exec: exec}}
}

func (repo attemptRepository) selectAttempts() sq.SelectBuilder {
	return psql.
		Select(
			"a.id", "a.quiz_id", "a.student_id", "a.parent_id", "a.score", "a.total_marks", "a.attempted_at",
			"a.completed_at", "a.is_completed", "q.title AS quiz_title", "s.name AS student_name",
		).
		From("quiz_attempt a").
		Join("quiz q ON q.id = a.quiz_id").
		Join("student s ON s.id = a.student_id")
}

func (repo attemptRepository) CreateAttempt(ctx context.Context, a attempt.Attempt, exec ...core.DBExecutor) (attempt.Attempt, error) {
	qb := psql.Insert("quiz_attempt").
		Columns("quiz_id", "student_id", "parent_id", "score", "total_marks", "attempted_at", "is_completed").
		Values(a.QuizID, a.StudentID, a.ParentID, a.Score, a.TotalMarks, a.AttemptedAt.UTC(), a.IsCompleted).
		Suffix("RETURNING id")

	var id int64
	if err := repo.get(ctx, exec, &id, qb); err != nil {
		if isUniqueViolation(err) {
			return attempt.Attempt{}, attempt.ErrAttemptExists
		}
		return attempt.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return repo.GetAttempt(ctx, attempt.GetFilter{ID: id}, exec...)
}

func (repo attemptRepository) GetAttempt(ctx context.Context, filter attempt.GetFilter, exec ...core.DBExecutor) (attempt.Attempt, error) {
	qb := repo.selectAttempts().Limit(1)
	if filter.ID != 0 {
		qb = qb.Where(sq.Eq{"a.id": filter.ID})
	}
	if filter.QuizID != 0 {
		qb = qb.Where(sq.Eq{"a.quiz_id": filter.QuizID})
	}
	if filter.StudentID != 0 {
		qb = qb.Where(sq.Eq{"a.student_id": filter.StudentID})
	}
	if filter.ParentID != 0 {
		qb = qb.Where(sq.Eq{"a.parent_id": filter.ParentID})
	}

	var a attempt.Attempt
	if err := repo.get(ctx, exec, &a, qb); err != nil {
		return attempt.Attempt{}, trapNoRowsErr(err, attempt.ErrNotFound, "getting attempt")
	}
	return a, nil
}

func (repo attemptRepository) LockAttempt(ctx context.Context, id int64, exec ...core.DBExecutor) (attempt.Attempt, error) {
	qb := repo.selectAttempts().Where(sq.Eq{"a.id": id}).Suffix("FOR UPDATE OF a")

	var a attempt.Attempt
	if err := repo.get(ctx, exec, &a, qb); err != nil {
		return attempt.Attempt{}, trapNoRowsErr(err, attempt.ErrNotFound, "locking attempt")
	}
	return a, nil
}

func (repo attemptRepository) QueryAttempts(ctx context.Context, filter attempt.QueryFilter, exec ...core.DBExecutor) ([]attempt.Attempt, error) {
	qb := repo.selectAttempts()
	if filter.QuizID != 0 {
		qb = qb.Where(sq.Eq{"a.quiz_id": filter.QuizID})
	}
	if len(filter.StudentIDs) > 0 {
		qb = qb.Where(sq.Eq{"a.student_id": filter.StudentIDs})
	}
	if filter.Completed != nil {
		qb = qb.Where(sq.Eq{"a.is_completed": *filter.Completed})
	}

	attempts := make([]attempt.Attempt, 0)
	if err := repo.selekt(ctx, exec, &attempts, qb.OrderBy("a.attempted_at DESC", "a.id DESC")); err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	return attempts, nil
}

func (repo attemptRepository) UpdateAttempt(ctx context.Context, a attempt.Attempt, exec ...core.DBExecutor) (attempt.Attempt, error) {
	qb := psql.Update("quiz_attempt").
		SetMap(map[string]interface{}{
			"score":        a.Score,
			"is_completed": a.IsCompleted,
			"completed_at": a.CompletedAt,
		}).
		Where(sq.Eq{"id": a.ID})

	res, err := repo.exek(ctx, exec, qb)
	if err != nil {
		return attempt.Attempt{}, errors.Wrap(err, "updating attempt")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attempt.Attempt{}, attempt.ErrNotFound
	}
	return repo.GetAttempt(ctx, attempt.GetFilter{ID: a.ID}, exec...)
}

func (repo attemptRepository) UpsertAnswer(ctx context.Context, ans attempt.Answer, exec ...core.DBExecutor) (attempt.Answer, error) {
	qb := psql.Insert("quiz_answer").
		Columns("attempt_id", "question_id", "selected_option", "is_correct").
		Values(ans.AttemptID, ans.QuestionID, ans.SelectedOption, ans.IsCorrect).
		Suffix(
			"ON CONFLICT (attempt_id, question_id) DO UPDATE " +
				"SET selected_option = EXCLUDED.selected_option, is_correct = EXCLUDED.is_correct " +
				"RETURNING id",
		)

	if err := repo.get(ctx, exec, &ans.ID, qb); err != nil {
		return attempt.Answer{}, errors.Wrap(err, "upserting answer")
	}
	return ans, nil
}

func (repo attemptRepository) QueryAnswers(ctx context.Context, attemptIDs []int64, exec ...core.DBExecutor) ([]attempt.Answer, error) {
	answers := make([]attempt.Answer, 0)
	if len(attemptIDs) == 0 {
		return answers, nil
	}
	qb := psql.
		Select(
			"ans.id", "ans.attempt_id", "ans.question_id", "ans.selected_option", "ans.is_correct",
			"qn.question_text", "qn.correct_option", "qn.marks",
		).
		From("quiz_answer ans").
		Join("question qn ON qn.id = ans.question_id").
		Where(sq.Eq{"ans.attempt_id": attemptIDs}).
		OrderBy("ans.attempt_id", "ans.question_id")
	if err := repo.selekt(ctx, exec, &answers, qb); err != nil {
		return nil, errors.Wrap(err, "querying answers")
	}
	return answers, nil
}
