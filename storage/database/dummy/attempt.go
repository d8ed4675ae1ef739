package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/attempt"
)

type attemptRepository struct {
	db *DB
}

var _ attempt.Repository = (*attemptRepository)(nil) // interface compliance check

func NewAttemptRepository(db *DB) *attemptRepository {
	return &attemptRepository{db: db}
}

// join must be called with the read lock held.
func (repo *attemptRepository) join(a attempt.Attempt) attempt.Attempt {
	a.QuizTitle = repo.db.quizzes[a.QuizID].Title
	a.StudentName = repo.db.students[a.StudentID].Name
	return a
}

func (repo *attemptRepository) CreateAttempt(_ context.Context, a attempt.Attempt, exec ...core.DBExecutor) (attempt.Attempt, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.attempts {
		if existing.QuizID == a.QuizID && existing.StudentID == a.StudentID {
			return attempt.Attempt{}, attempt.ErrAttemptExists
		}
	}
	a.ID = repo.db.nextID()
	track(txOf(exec), repo.db.attempts, a.ID)
	repo.db.attempts[a.ID] = a
	return repo.join(a), nil
}

func (repo *attemptRepository) GetAttempt(_ context.Context, filter attempt.GetFilter, _ ...core.DBExecutor) (attempt.Attempt, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, a := range repo.db.attempts {
		if filter.ID != 0 && a.ID != filter.ID {
			continue
		}
		if filter.QuizID != 0 && a.QuizID != filter.QuizID {
			continue
		}
		if filter.StudentID != 0 && a.StudentID != filter.StudentID {
			continue
		}
		if filter.ParentID != 0 && a.ParentID != filter.ParentID {
			continue
		}
		return repo.join(a), nil
	}
	return attempt.Attempt{}, attempt.ErrNotFound
}

// LockAttempt relies on the Transactor serializing units of work.
func (repo *attemptRepository) LockAttempt(ctx context.Context, id int64, exec ...core.DBExecutor) (attempt.Attempt, error) {
	return repo.GetAttempt(ctx, attempt.GetFilter{ID: id}, exec...)
}

func (repo *attemptRepository) QueryAttempts(_ context.Context, filter attempt.QueryFilter, _ ...core.DBExecutor) ([]attempt.Attempt, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	studentIDs := toSet(filter.StudentIDs)
	attempts := make([]attempt.Attempt, 0)
	for _, a := range repo.db.attempts {
		if filter.QuizID != 0 && a.QuizID != filter.QuizID {
			continue
		}
		if studentIDs != nil && !studentIDs[a.StudentID] {
			continue
		}
		if filter.Completed != nil && a.IsCompleted != *filter.Completed {
			continue
		}
		attempts = append(attempts, repo.join(a))
	}
	sort.Slice(attempts, func(i, j int) bool {
		if attempts[i].AttemptedAt.Equal(attempts[j].AttemptedAt) {
			return attempts[i].ID > attempts[j].ID
		}
		return attempts[i].AttemptedAt.After(attempts[j].AttemptedAt)
	})
	return attempts, nil
}

func (repo *attemptRepository) UpdateAttempt(_ context.Context, a attempt.Attempt, exec ...core.DBExecutor) (attempt.Attempt, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.attempts[a.ID]
	if !ok {
		return attempt.Attempt{}, attempt.ErrNotFound
	}
	orig.Score = a.Score
	orig.IsCompleted = a.IsCompleted
	orig.CompletedAt = a.CompletedAt
	track(txOf(exec), repo.db.attempts, a.ID)
	repo.db.attempts[a.ID] = orig
	return repo.join(orig), nil
}

func (repo *attemptRepository) UpsertAnswer(_ context.Context, ans attempt.Answer, exec ...core.DBExecutor) (attempt.Answer, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, existing := range repo.db.answers {
		if existing.AttemptID == ans.AttemptID && existing.QuestionID == ans.QuestionID {
			ans.ID = id
			track(txOf(exec), repo.db.answers, id)
			repo.db.answers[id] = ans
			return ans, nil
		}
	}
	ans.ID = repo.db.nextID()
	track(txOf(exec), repo.db.answers, ans.ID)
	repo.db.answers[ans.ID] = ans
	return ans, nil
}

func (repo *attemptRepository) QueryAnswers(_ context.Context, attemptIDs []int64, _ ...core.DBExecutor) ([]attempt.Answer, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := toSet(attemptIDs)
	answers := make([]attempt.Answer, 0)
	if ids == nil {
		return answers, nil
	}
	for _, ans := range repo.db.answers {
		if !ids[ans.AttemptID] {
			continue
		}
		qn := repo.db.questions[ans.QuestionID]
		ans.QuestionText = qn.QuestionText
		ans.CorrectOption = qn.CorrectOption
		ans.Marks = qn.Marks
		answers = append(answers, ans)
	}
	sort.Slice(answers, func(i, j int) bool {
		if answers[i].AttemptID == answers[j].AttemptID {
			return answers[i].QuestionID < answers[j].QuestionID
		}
		return answers[i].AttemptID < answers[j].AttemptID
	})
	return answers, nil
}
