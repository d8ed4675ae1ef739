package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/quiz"
)

type quizRepository struct {
	db *DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *DB) *quizRepository {
	return &quizRepository{db: db}
}

// join sets the derived fields. Must be called with the read lock held.
func (repo *quizRepository) join(q quiz.Quiz) quiz.Quiz {
	if t, ok := repo.db.users[q.TeacherID]; ok {
		q.TeacherName = t.FullName()
	}
	q.TotalQuestions, q.TotalMarks = 0, 0
	for _, qn := range repo.db.questions {
		if qn.QuizID == q.ID {
			q.TotalQuestions++
			q.TotalMarks += qn.Marks
		}
	}
	q.Questions = nil
	return q
}

func (repo *quizRepository) CreateQuiz(_ context.Context, q quiz.Quiz, exec ...core.DBExecutor) (quiz.Quiz, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	q.ID = repo.db.nextID()
	q.Questions = nil
	track(txOf(exec), repo.db.quizzes, q.ID)
	repo.db.quizzes[q.ID] = q
	return repo.join(q), nil
}

func (repo *quizRepository) GetQuiz(_ context.Context, id int64, _ ...core.DBExecutor) (quiz.Quiz, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	q, ok := repo.db.quizzes[id]
	if !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	return repo.join(q), nil
}

func (repo *quizRepository) QueryQuizzes(_ context.Context, filter quiz.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]quiz.Quiz, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ids := toSet(filter.IDs)
	teacherIDs := toSet(filter.TeacherIDs)
	quizzes := make([]quiz.Quiz, 0)
	for _, q := range repo.db.quizzes {
		if ids != nil && !ids[q.ID] {
			continue
		}
		if teacherIDs != nil && !teacherIDs[q.TeacherID] {
			continue
		}
		if !filter.OpenAt.IsZero() && !q.OpenAt(filter.OpenAt) {
			continue
		}
		quizzes = append(quizzes, repo.join(q))
	}

	sort.Slice(quizzes, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareQuizzes(quizzes[i], quizzes[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return quizzes[i].ID > quizzes[j].ID
	})
	return quizzes, nil
}

func compareQuizzes(a, b quiz.Quiz, field string) int {
	switch field {
	case "title":
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case "deadline":
		return compareTimes(a.Deadline.UnixNano(), b.Deadline.UnixNano())
	case "created_at":
		return compareTimes(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	case "is_active":
		switch {
		case a.IsActive == b.IsActive:
			return 0
		case b.IsActive:
			return -1
		default:
			return 1
		}
	}
	return 0
}

func compareTimes(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (repo *quizRepository) UpdateQuiz(_ context.Context, q quiz.Quiz, exec ...core.DBExecutor) (quiz.Quiz, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.quizzes[q.ID]
	if !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	orig.Title = q.Title
	orig.Description = q.Description
	orig.TimeLimitMinutes = q.TimeLimitMinutes
	orig.Deadline = q.Deadline
	orig.IsActive = q.IsActive
	track(txOf(exec), repo.db.quizzes, q.ID)
	repo.db.quizzes[q.ID] = orig
	return repo.join(orig), nil
}

func (repo *quizRepository) CreateQuestion(_ context.Context, qn quiz.Question, exec ...core.DBExecutor) (quiz.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.quizzes[qn.QuizID]; !ok {
		return quiz.Question{}, quiz.ErrNotFound
	}
	qn.ID = repo.db.nextID()
	track(txOf(exec), repo.db.questions, qn.ID)
	repo.db.questions[qn.ID] = qn
	return qn, nil
}

func (repo *quizRepository) QueryQuestions(_ context.Context, quizID int64, _ ...core.DBExecutor) ([]quiz.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	questions := make([]quiz.Question, 0)
	for _, qn := range repo.db.questions {
		if qn.QuizID == quizID {
			questions = append(questions, qn)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

func toSet(ids []int64) map[int64]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
