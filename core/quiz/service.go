package quiz

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/mathinsight/core"
	"github.com/trezcool/mathinsight/core/access"
	"github.com/trezcool/mathinsight/core/user"
)

const defaultMarks = 1

var (
	// errors
	ErrNotFound = core.NewNotFoundError("Quiz not found.")

	defaultOrdering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
)

type (
	Repository interface {
		CreateQuiz(ctx context.Context, q Quiz, exec ...core.DBExecutor) (Quiz, error)
		// GetQuiz returns the quiz with its derived totals, without questions.
		GetQuiz(ctx context.Context, id int64, exec ...core.DBExecutor) (Quiz, error)
		// QueryQuizzes applies AND operation on non-zero QueryFilter fields.
		QueryQuizzes(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Quiz, error)
		UpdateQuiz(ctx context.Context, q Quiz, exec ...core.DBExecutor) (Quiz, error)
		CreateQuestion(ctx context.Context, qn Question, exec ...core.DBExecutor) (Question, error)
		// QueryQuestions returns the questions of quizID ordered by id.
		QueryQuestions(ctx context.Context, quizID int64, exec ...core.DBExecutor) ([]Question, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a quiz owned by teacher. NewQuiz must have been validated.
func (svc *Service) Create(ctx context.Context, teacher user.User, nq NewQuiz) (Quiz, error) {
	deadline, err := ParseDeadline(nq.Deadline)
	if err != nil {
		return Quiz{}, core.NewValidationError(err, core.FieldError{Field: "deadline", Error: err.Error()})
	}
	isActive := true
	if nq.IsActive != nil {
		isActive = *nq.IsActive
	}
	return svc.repo.CreateQuiz(ctx, Quiz{
		Title:            nq.Title,
		Description:      nq.Description,
		TeacherID:        teacher.ID,
		TimeLimitMinutes: nq.TimeLimitMinutes,
		Deadline:         deadline,
		IsActive:         isActive,
		CreatedAt:        time.Now().UTC(),
	})
}

// List returns the quizzes of teacher, newest first unless ordering says otherwise.
// Unknown ordering fields are ignored.
func (svc *Service) List(ctx context.Context, teacher user.User, ordering []core.DBOrdering) ([]Quiz, error) {
	ords := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if OrderableFields[ord.Field] {
			ords = append(ords, ord)
		}
	}
	if len(ords) == 0 {
		ords = defaultOrdering
	}
	return svc.repo.QueryQuizzes(ctx, QueryFilter{TeacherIDs: []int64{teacher.ID}}, ords)
}

// ListOpen returns the active, not yet due quizzes of the given teachers, newest first.
func (svc *Service) ListOpen(ctx context.Context, teacherIDs []int64) ([]Quiz, error) {
	if len(teacherIDs) == 0 {
		return []Quiz{}, nil
	}
	return svc.repo.QueryQuizzes(ctx, QueryFilter{TeacherIDs: teacherIDs, OpenAt: nowFunc().UTC()}, defaultOrdering)
}

// QueryByID returns quizzes keyed by id.
func (svc *Service) QueryByID(ctx context.Context, ids []int64) (map[int64]Quiz, error) {
	byID := make(map[int64]Quiz, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	quizzes, err := svc.repo.QueryQuizzes(ctx, QueryFilter{IDs: ids}, defaultOrdering)
	if err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}
	for _, q := range quizzes {
		byID[q.ID] = q
	}
	return byID, nil
}

// Get returns the quiz without ownership checks.
func (svc *Service) Get(ctx context.Context, id int64, exec ...core.DBExecutor) (Quiz, error) {
	return svc.repo.GetQuiz(ctx, id, exec...)
}

// GetOwned returns the quiz, with its questions, if teacher owns it.
// A quiz owned by another teacher is reported as ErrNotFound.
func (svc *Service) GetOwned(ctx context.Context, teacher user.User, id int64) (Quiz, error) {
	q, err := svc.repo.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	if !access.Owns(teacher, q) {
		return Quiz{}, ErrNotFound
	}
	if q.Questions, err = svc.repo.QueryQuestions(ctx, q.ID); err != nil {
		return Quiz{}, errors.Wrap(err, "querying questions")
	}
	return q, nil
}

// Update applies the validated changes to a quiz teacher owns.
func (svc *Service) Update(ctx context.Context, teacher user.User, id int64, uq UpdateQuiz) (Quiz, error) {
	q, err := svc.GetOwned(ctx, teacher, id)
	if err != nil {
		return Quiz{}, err
	}
	if uq.Title != nil {
		q.Title = *uq.Title
	}
	if uq.Description != nil {
		q.Description = *uq.Description
	}
	if uq.TimeLimitMinutes != nil {
		q.TimeLimitMinutes = *uq.TimeLimitMinutes
	}
	if uq.Deadline != nil {
		if q.Deadline, err = ParseDeadline(*uq.Deadline); err != nil {
			return Quiz{}, core.NewValidationError(err, core.FieldError{Field: "deadline", Error: err.Error()})
		}
	}
	if uq.IsActive != nil {
		q.IsActive = *uq.IsActive
	}
	questions := q.Questions
	if q, err = svc.repo.UpdateQuiz(ctx, q); err != nil {
		return Quiz{}, err
	}
	q.Questions = questions
	return q, nil
}

// AddQuestion appends a question to a quiz teacher owns. Marks default to 1.
func (svc *Service) AddQuestion(ctx context.Context, teacher user.User, quizID int64, nq NewQuestion) (Question, error) {
	q, err := svc.repo.GetQuiz(ctx, quizID)
	if err != nil {
		return Question{}, err
	}
	if !access.Owns(teacher, q) {
		return Question{}, ErrNotFound
	}
	marks := defaultMarks
	if nq.Marks != nil {
		marks = *nq.Marks
	}
	return svc.repo.CreateQuestion(ctx, Question{
		QuizID:        q.ID,
		QuestionText:  nq.QuestionText,
		OptionA:       nq.OptionA,
		OptionB:       nq.OptionB,
		OptionC:       nq.OptionC,
		OptionD:       nq.OptionD,
		CorrectOption: nq.CorrectOption,
		Marks:         marks,
	})
}

// Questions returns the questions of a quiz as actor may see them:
// the owning teacher sees everything, parents see redacted questions of active quizzes,
// anyone else gets an empty list. An unknown quiz is ErrNotFound.
func (svc *Service) Questions(ctx context.Context, actor user.User, quizID int64) ([]Question, error) {
	q, err := svc.repo.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.IsTeacher() && access.Owns(actor, q):
		return svc.repo.QueryQuestions(ctx, q.ID)
	case actor.IsParent() && q.IsActive:
		questions, err := svc.repo.QueryQuestions(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		for i := range questions {
			questions[i] = questions[i].Redacted()
		}
		return questions, nil
	default:
		return []Question{}, nil
	}
}

// QuestionsOf returns the full questions of a quiz, for scoring.
func (svc *Service) QuestionsOf(ctx context.Context, quizID int64, exec ...core.DBExecutor) ([]Question, error) {
	return svc.repo.QueryQuestions(ctx, quizID, exec...)
}
